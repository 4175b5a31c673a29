package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past download jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			appCtx, err := ctx.ensureApp()
			if err != nil {
				return err
			}
			if appCtx.Store == nil {
				return fmt.Errorf("history store is unavailable")
			}

			recs, err := appCtx.Store.ListJobs(limit)
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				fmt.Println("no download history")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "STARTED\tEPISODE\tRES\tSTATE\tSEGMENTS\tMISSING\tERROR")
			for _, rec := range recs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
					rec.StartedAt.Format("2006-01-02 15:04"),
					rec.EpisodeID,
					rec.Resolution,
					rec.State,
					rec.SegmentsTotal,
					rec.SegmentsMissing,
					rec.Error,
				)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of jobs to show")

	return cmd
}
