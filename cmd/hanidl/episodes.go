package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hanidl/internal/engine"
)

func newEpisodesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "episodes <url>",
		Short: "List all episodes in the series an episode page belongs to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appCtx, err := ctx.ensureApp()
			if err != nil {
				return err
			}

			d := engine.NewDownloader(appCtx, nil)
			title, refs, err := d.Episodes(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Printf("%s: %d episode(s)\n", title, len(refs))
			for i, ref := range refs {
				fmt.Printf("%3d  %s\n", i+1, ref.Slug)
			}
			return nil
		},
	}
}
