package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hanidl/internal/app"
	"hanidl/internal/config"
	"hanidl/internal/logger"
	"hanidl/internal/progress"
	"hanidl/internal/store"
)

// commandContext lazily assembles the shared application environment so
// that commands which never download (help, completion) don't touch the
// log file or the database.
type commandContext struct {
	configFlag *string
	disableUI  *bool

	appCtx *app.Context
}

// ensureApp loads configuration and wires the logger, progress reporter
// and history store together. Called once; later commands reuse the result.
func (c *commandContext) ensureApp() (*app.Context, error) {
	if c.appCtx != nil {
		return c.appCtx, nil
	}

	cfg, err := config.Load(*c.configFlag)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log.Path, logger.ParseLevel(cfg.Log.Level), cfg.Log.IncludeStdout)
	if err != nil {
		return nil, fmt.Errorf("could not open log file: %w", err)
	}

	var reporter progress.Reporter
	if *c.disableUI {
		reporter = progress.NewPlain(log)
	} else {
		reporter = progress.NewLive(log)
	}

	appCtx := app.NewContext(cfg, log, reporter)

	// History is best-effort for downloads: a broken database costs the
	// record, not the episode. Commands that read history check for nil.
	if st, err := store.Open(cfg.Store.SQLitePath); err != nil {
		log.Warn("history store unavailable: %v", err)
	} else {
		appCtx.Store = st
	}

	c.appCtx = appCtx
	return appCtx, nil
}

func newRootCommand() *cobra.Command {
	var configFlag string
	var disableUI bool

	ctx := &commandContext{configFlag: &configFlag, disableUI: &disableUI}

	rootCmd := &cobra.Command{
		Use:           "hanidl",
		Short:         "Download encrypted episode streams and reassemble them into playable files",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVar(&disableUI, "disable-ui", false, "Disable the live progress UI")

	rootCmd.AddCommand(newDownloadCommand(ctx))
	rootCmd.AddCommand(newEpisodesCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newServeCommand(ctx))

	return rootCmd
}
