package engine

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"

	"hanidl/internal/domain"
	"hanidl/internal/logger"
	"hanidl/internal/progress"
	"hanidl/internal/segcrypt"
)

// segmentJob is one manifest entry queued for a worker.
type segmentJob struct {
	Index int
	URI   string
}

// Pipeline fetches and decrypts segments under bounded concurrency.
// Individual segment failure never surfaces as an error; an exhausted retry
// budget degrades the segment to a missing-payload result instead.
type Pipeline struct {
	http     *http.Client
	log      *logger.Logger
	report   progress.Reporter
	retries  int
	maxDelay time.Duration
}

func NewPipeline(httpClient *http.Client, log *logger.Logger, report progress.Reporter, retries int, maxDelay time.Duration) *Pipeline {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Pipeline{
		http:     httpClient,
		log:      log,
		report:   report,
		retries:  retries,
		maxDelay: maxDelay,
	}
}

// Run downloads every segment of the manifest and returns one result per
// manifest index, in index order, regardless of completion order. The only
// error it returns is context cancellation.
func (p *Pipeline) Run(ctx context.Context, m *domain.Manifest, cipher *segcrypt.CipherContext, concurrency int, task progress.TaskHandle) ([]domain.SegmentResult, error) {
	total := len(m.SegmentURIs)
	results := make([]domain.SegmentResult, total)
	if total == 0 {
		return results, nil
	}

	if concurrency <= 0 {
		concurrency = 1
	}
	if concurrency > total {
		concurrency = total
	}

	jobs := make(chan segmentJob, concurrency)
	done := make(chan domain.SegmentResult, concurrency)

	// Start the workers. A worker parks inside its own backoff sleep
	// without blocking the rest of the pool. Once the context is cancelled
	// the collector stops reading, so the send must give up too or the
	// worker outlives the run.
	for w := 0; w < concurrency; w++ {
		go func() {
			for job := range jobs {
				select {
				case done <- p.processSegment(ctx, job, cipher):
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	// Dispatch all segment jobs.
	go func() {
		defer close(jobs)
		for i, uri := range m.SegmentURIs {
			select {
			case jobs <- segmentJob{Index: i, URI: uri}:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Collect until every index is represented. Completion order is
	// whatever the pool yields; the index on each result restores order.
	completed := 0
	for completed < total {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-done:
			results[res.Index] = res
			completed++
			p.report.UpdateTask(task, float64(completed)/float64(total)*100)
		}
	}

	return results, nil
}

// processSegment runs the fetch/decrypt pipeline for a single segment,
// retrying transient failures with capped exponential backoff.
func (p *Pipeline) processSegment(ctx context.Context, job segmentJob, cipher *segcrypt.CipherContext) domain.SegmentResult {
	for attempt := 0; attempt < p.retries; attempt++ {
		data, err := p.fetchSegment(ctx, job.URI)
		if err == nil {
			payload, degraded := cipher.Decrypt(data)
			if degraded {
				p.report.Log("Decryption error",
					fmt.Sprintf("Padding error for segment %s. Proceeding with partial data.", job.URI))
			}
			return domain.SegmentResult{Index: job.Index, Payload: payload, Degraded: degraded}
		}

		if ctx.Err() != nil {
			break
		}

		if attempt < p.retries-1 {
			delay := backoffDelay(attempt, p.maxDelay)
			p.log.Debug("segment %d attempt %d failed: %v (retrying in %s)", job.Index, attempt+1, err, delay)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return domain.SegmentResult{Index: job.Index}
			}

			p.report.Log("Request error",
				fmt.Sprintf("Retrying to download segment %s... (%d/%d)", job.URI, attempt+1, p.retries))
		}
	}

	p.report.Log("Failed segment download", fmt.Sprintf("Failed to download %s", job.URI))
	return domain.SegmentResult{Index: job.Index}
}

func (p *Pipeline) fetchSegment(ctx context.Context, uri string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", uri, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("segment fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("segment returned status: %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// backoffDelay computes the retry delay for a zero-based attempt number:
// 2^(attempt+1) seconds plus bounded jitter, capped at maxDelay. The jitter
// spreads retries so a flaky origin isn't hammered in lockstep.
func backoffDelay(attempt int, maxDelay time.Duration) time.Duration {
	jitter := 1 + rand.Float64()*2
	seconds := math.Pow(2, float64(attempt+1)) + jitter
	delay := time.Duration(seconds * float64(time.Second))
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}
