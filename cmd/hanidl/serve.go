package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/spf13/cobra"

	"hanidl/internal/api"
	"hanidl/internal/engine"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the download queue behind an HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			appCtx, err := ctx.ensureApp()
			if err != nil {
				return err
			}
			if appCtx.Store == nil {
				return fmt.Errorf("serve mode requires the history store")
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			d := engine.NewDownloader(appCtx, nil)
			queue := engine.NewQueueManager(d)

			e := echo.New()
			api.RegisterRoutes(e, appCtx, queue)

			go queue.Start(runCtx)

			srv := &http.Server{
				Addr:    ":" + appCtx.Config.Port,
				Handler: e,
			}

			go func() {
				<-runCtx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			appCtx.Logger.Info("serving queue API on %s", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
}
