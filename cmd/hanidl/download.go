package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"hanidl/internal/engine"
)

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	var urlsFile string
	var resolution string
	var customPath string
	var allEpisodes bool

	cmd := &cobra.Command{
		Use:   "download [urls...]",
		Short: "Download one or more episodes by page URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			urls, err := collectURLs(args, urlsFile)
			if err != nil {
				return err
			}
			if len(urls) == 0 {
				return fmt.Errorf("no URLs given: pass them as arguments or via --file")
			}

			appCtx, err := ctx.ensureApp()
			if err != nil {
				return err
			}
			if resolution != "" {
				appCtx.Config.Download.Resolution = resolution
			}
			if customPath != "" {
				appCtx.Config.Download.OutDir = customPath
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			d := engine.NewDownloader(appCtx, nil)

			// A fatal error is local to its URL; the batch moves on and the
			// combined error decides the exit code.
			var errs []error
			for _, u := range urls {
				if runCtx.Err() != nil {
					return context.Canceled
				}

				var err error
				if allEpisodes {
					err = d.DownloadAll(runCtx, u)
				} else {
					err = d.Download(runCtx, u, "")
				}
				if err != nil {
					if runCtx.Err() != nil {
						return context.Canceled
					}
					appCtx.Reporter.Log("Download failed", fmt.Sprintf("%s: %v", u, err))
					errs = append(errs, fmt.Errorf("%s: %w", u, err))
				}
			}

			return errors.Join(errs...)
		},
	}

	cmd.Flags().StringVarP(&urlsFile, "file", "f", "", "Read newline-delimited page URLs from a file")
	cmd.Flags().StringVarP(&resolution, "resolution", "r", "", "Preferred resolution (e.g. 480p, 720p, 1080p)")
	cmd.Flags().StringVar(&customPath, "custom-path", "", "Base directory for downloaded files")
	cmd.Flags().BoolVar(&allEpisodes, "all-episodes", false, "Download every episode of each URL's series")

	return cmd
}

// collectURLs merges positional URLs with the optional URL file, skipping
// blank lines and comments.
func collectURLs(args []string, urlsFile string) ([]string, error) {
	urls := append([]string{}, args...)

	if urlsFile == "" {
		return urls, nil
	}

	f, err := os.Open(urlsFile)
	if err != nil {
		return nil, fmt.Errorf("could not open URL file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}

	return urls, scanner.Err()
}
