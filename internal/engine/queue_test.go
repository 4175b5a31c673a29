package engine

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"hanidl/internal/domain"
)

func TestQueueAddRejectsInvalidURL(t *testing.T) {
	appCtx := testAppContext(t, "http://unused")
	q := NewQueueManager(NewDownloader(appCtx, nil))

	if _, err := q.Add("ftp://nope", ""); !errors.Is(err, domain.ErrInvalidURL) {
		t.Fatalf("Add() error = %v, want ErrInvalidURL", err)
	}
}

func TestQueueProcessesItems(t *testing.T) {
	var fetches atomic.Int32
	srv := newEpisodeServer(t, &fetches)
	defer srv.Close()

	appCtx := testAppContext(t, srv.URL)
	q := NewQueueManager(NewDownloader(appCtx, srv.Client()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Start(ctx)

	item, err := q.Add(testPageURL, "720p")
	if err != nil {
		t.Fatalf("Add() unexpected error: %v", err)
	}
	if item.EpisodeID != "test-episode-1" {
		t.Errorf("EpisodeID = %q, want test-episode-1", item.EpisodeID)
	}
	if item.State != domain.StateInitializing {
		t.Errorf("fresh item state = %s, want initializing", item.State)
	}

	// Finished items drop out of the live queue.
	deadline := time.After(10 * time.Second)
	for len(q.GetAllItems()) > 0 {
		select {
		case <-deadline:
			t.Fatal("queue item never finished")
		case <-time.After(10 * time.Millisecond):
		}
	}

	outPath := filepath.Join(appCtx.Config.Download.OutDir, "Test Franchise", "test-episode-1-720p.mp4")
	if _, err := os.Stat(outPath); err != nil {
		t.Errorf("output file missing after queue run: %v", err)
	}
}

func TestQueueListDuringRunIsSafe(t *testing.T) {
	var fetches atomic.Int32
	srv := newEpisodeServer(t, &fetches)
	defer srv.Close()

	appCtx := testAppContext(t, srv.URL)
	q := NewQueueManager(NewDownloader(appCtx, srv.Client()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Start(ctx)

	if _, err := q.Add(testPageURL, "720p"); err != nil {
		t.Fatalf("Add() unexpected error: %v", err)
	}

	// Hammer the read side while the processor loop mutates item state.
	// The accessors hand out snapshots, so marshalling them must never
	// observe a write in flight.
	readers := make(chan struct{})
	for i := 0; i < 4; i++ {
		go func() {
			defer func() { readers <- struct{}{} }()
			for j := 0; j < 200; j++ {
				for _, item := range q.GetAllItems() {
					if _, err := json.Marshal(item); err != nil {
						t.Errorf("marshal queue item: %v", err)
					}
					if snap, ok := q.GetItem(item.ID); ok && snap.CancelFunc != nil {
						t.Error("snapshot leaked a cancel func")
					}
				}
				q.GetActiveItem()
			}
		}()
	}
	for i := 0; i < 4; i++ {
		<-readers
	}

	deadline := time.After(10 * time.Second)
	for len(q.GetAllItems()) > 0 {
		select {
		case <-deadline:
			t.Fatal("queue item never finished")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestQueueCancelUnknownItem(t *testing.T) {
	appCtx := testAppContext(t, "http://unused")
	q := NewQueueManager(NewDownloader(appCtx, nil))

	if q.Cancel("no-such-id") {
		t.Error("Cancel() reported success for unknown item")
	}
}

func TestQueueCancelPendingItem(t *testing.T) {
	appCtx := testAppContext(t, "http://unused")
	q := NewQueueManager(NewDownloader(appCtx, nil))

	// No Start() loop running: the item stays pending and cancellation
	// must mark it failed without a cancel func.
	item, err := q.Add(testPageURL, "")
	if err != nil {
		t.Fatal(err)
	}

	if !q.Cancel(item.ID) {
		t.Fatal("Cancel() failed for pending item")
	}
	if snap, ok := q.GetItem(item.ID); !ok || snap.State != domain.StateFailed {
		t.Errorf("cancelled item state = %s, want failed", snap.State)
	}
	if q.Cancel(item.ID) {
		t.Error("Cancel() succeeded twice for the same item")
	}
}
