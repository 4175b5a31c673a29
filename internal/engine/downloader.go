package engine

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/segmentio/ksuid"

	"hanidl/internal/app"
	"hanidl/internal/catalog"
	"hanidl/internal/domain"
	"hanidl/internal/fsutil"
	"hanidl/internal/manifest"
	"hanidl/internal/segcrypt"
	"hanidl/internal/stream"
)

// Downloader ties variant selection, manifest resolution, the segment
// pipeline and the sequencing writer into one "download episode" operation.
type Downloader struct {
	app      *app.Context
	catalog  *catalog.Client
	resolver *manifest.Resolver
	pipeline *Pipeline
}

func NewDownloader(appCtx *app.Context, httpClient *http.Client) *Downloader {
	cfg := appCtx.Config
	return &Downloader{
		app:      appCtx,
		catalog:  catalog.New(cfg.API.BaseURL, httpClient),
		resolver: manifest.NewResolver(httpClient),
		pipeline: NewPipeline(httpClient, appCtx.Logger, appCtx.Reporter,
			cfg.Download.Retries, cfg.Download.MaxDelay),
	}
}

// Download runs one episode job from page URL to assembled file. The error
// it returns is always fatal for this job; segment-level trouble has
// already been degraded into skipped or partial segments by then. An empty
// resolution falls back to the configured preference.
func (d *Downloader) Download(ctx context.Context, pageURL, resolution string) error {
	episodeID, err := catalog.ExtractID(pageURL)
	if err != nil {
		return err
	}

	info, err := d.catalog.FetchInfo(ctx, episodeID)
	if err != nil {
		return err
	}

	return d.downloadEpisode(ctx, episodeID, info, resolution)
}

// DownloadAll expands the episode's franchise and downloads every sibling.
// A fatal error in one episode is reported and the batch moves on; the
// combined failure count decides the caller's exit status.
func (d *Downloader) DownloadAll(ctx context.Context, pageURL string) error {
	episodeID, err := catalog.ExtractID(pageURL)
	if err != nil {
		return err
	}

	seed, err := d.catalog.FetchInfo(ctx, episodeID)
	if err != nil {
		return err
	}

	refs := seed.Episodes
	if len(refs) == 0 {
		refs = []catalog.EpisodeRef{{Slug: episodeID}}
	}

	failed := 0
	for _, ref := range refs {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		info, err := d.catalog.FetchInfo(ctx, ref.Slug)
		if err == nil {
			err = d.downloadEpisode(ctx, ref.Slug, info, "")
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failed++
			d.app.Reporter.Log("Episode failed", fmt.Sprintf("%s: %v", ref.Slug, err))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d episodes failed", failed, len(refs))
	}
	return nil
}

// Episodes lists the franchise siblings of an episode page for batch
// inspection.
func (d *Downloader) Episodes(ctx context.Context, pageURL string) (string, []catalog.EpisodeRef, error) {
	episodeID, err := catalog.ExtractID(pageURL)
	if err != nil {
		return "", nil, err
	}

	info, err := d.catalog.FetchInfo(ctx, episodeID)
	if err != nil {
		return "", nil, err
	}

	return info.Title, info.Episodes, nil
}

// downloadEpisode is the job state machine: Initializing ->
// ManifestResolved -> SegmentsFetching -> Writing -> Done, with Failed
// reachable from any non-terminal state on a fatal error.
func (d *Downloader) downloadEpisode(ctx context.Context, episodeID string, info *catalog.EpisodeInfo, resolution string) (err error) {
	cfg := d.app.Config
	if resolution == "" {
		resolution = cfg.Download.Resolution
	}

	rec := &domain.JobRecord{
		ID:         ksuid.New().String(),
		EpisodeID:  episodeID,
		Title:      info.Title,
		Resolution: resolution,
		State:      domain.StateInitializing,
		StartedAt:  time.Now(),
	}
	defer func() {
		rec.FinishedAt = time.Now()
		if err != nil {
			rec.State = domain.StateFailed
			rec.Error = err.Error()
		}
		d.saveRecord(rec)
	}()

	variant, err := stream.Select(resolution, info.Variants)
	if err != nil {
		return err
	}

	dir, err := fsutil.EnsureDirectory(info.Title, cfg.Download.OutDir)
	if err != nil {
		return err
	}

	filename := fmt.Sprintf("%s-%dp.mp4", episodeID, variant.Height)

	job := domain.DownloadJob{
		EpisodeID:            episodeID,
		Title:                info.Title,
		OutputPath:           filepath.Join(dir, filename),
		ResolutionPreference: resolution,
		ConcurrencyLimit:     cfg.Download.MaxWorkers,
	}
	rec.OutputPath = job.OutputPath

	m, err := d.resolver.Resolve(ctx, variant)
	if err != nil {
		return err
	}
	d.setState(rec, domain.StateManifestResolved)

	keyData, err := d.resolver.FetchKey(ctx, m.KeyURI)
	if err != nil {
		return err
	}
	cipher, err := segcrypt.New(keyData, m.KeyIV)
	if err != nil {
		return err
	}

	rec.SegmentsTotal = len(m.SegmentURIs)
	d.setState(rec, domain.StateSegmentsFetching)
	d.app.Logger.Info("downloading %s: %d segments at %dp with %d workers",
		episodeID, len(m.SegmentURIs), variant.Height, job.ConcurrencyLimit)

	task := d.app.Reporter.StartTask(filename, len(m.SegmentURIs))
	results, err := d.pipeline.Run(ctx, m, cipher, job.ConcurrencyLimit, task)
	if err != nil {
		return err
	}

	for _, res := range results {
		if res.Missing() {
			rec.SegmentsMissing++
		}
		if res.Degraded {
			rec.SegmentsDegraded++
		}
	}

	d.setState(rec, domain.StateWriting)
	if err := writeSegments(job.OutputPath, results, d.app.Reporter); err != nil {
		return err
	}

	d.app.Reporter.FinishTask(task)
	d.setState(rec, domain.StateDone)
	d.app.Logger.Info("finished %s -> %s (%d missing, %d degraded)",
		episodeID, job.OutputPath, rec.SegmentsMissing, rec.SegmentsDegraded)

	return nil
}

func (d *Downloader) setState(rec *domain.JobRecord, state domain.JobState) {
	rec.State = state
	d.app.Logger.Debug("job %s: %s", rec.EpisodeID, state)
	if !state.Terminal() {
		d.saveRecord(rec)
	}
}

func (d *Downloader) saveRecord(rec *domain.JobRecord) {
	if d.app.Store == nil {
		return
	}
	if err := d.app.Store.SaveJob(rec); err != nil {
		d.app.Logger.Warn("failed to save job record %s: %v", rec.ID, err)
	}
}
