package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/segmentio/ksuid"

	"hanidl/internal/catalog"
	"hanidl/internal/domain"
)

// QueueManager serializes serve-mode downloads: one job at a time, in
// arrival order, each cancellable on its own. Finished items drop out of
// the live queue; their records live on in the history store.
type QueueManager struct {
	mu         sync.RWMutex
	downloader *Downloader
	queue      []*domain.QueueItem
	activeItem *domain.QueueItem

	newJobChan chan struct{}
}

func NewQueueManager(d *Downloader) *QueueManager {
	return &QueueManager{
		downloader: d,
		newJobChan: make(chan struct{}, 1),
	}
}

// Add validates the URL, queues it and notifies the processor loop. The
// returned item is a snapshot; look it up by ID for current state.
func (m *QueueManager) Add(pageURL, resolution string) (domain.QueueItem, error) {
	episodeID, err := catalog.ExtractID(pageURL)
	if err != nil {
		return domain.QueueItem{}, err
	}

	if resolution == "" {
		resolution = m.downloader.app.Config.Download.Resolution
	}

	item := &domain.QueueItem{
		ID:         ksuid.New().String(),
		URL:        pageURL,
		EpisodeID:  episodeID,
		Resolution: resolution,
		State:      domain.StateInitializing,
	}

	m.mu.Lock()
	m.queue = append(m.queue, item)
	snap := snapshot(item)
	m.mu.Unlock()

	// Signal the Start() loop that there is work to do
	select {
	case m.newJobChan <- struct{}{}:
	default:
	}

	return snap, nil
}

// snapshot copies an item for callers outside the lock. The processor loop
// mutates the live item under the mutex, so pointers must never escape.
func snapshot(item *domain.QueueItem) domain.QueueItem {
	snap := *item
	snap.CancelFunc = nil
	return snap
}

// Start runs the queue until ctx is cancelled.
func (m *QueueManager) Start(ctx context.Context) {
	for {
		next := m.nextPending()

		if next == nil {
			select {
			case <-m.newJobChan:
				continue
			case <-ctx.Done():
				return
			}
		}

		m.mu.Lock()
		m.activeItem = next
		jobCtx, cancel := context.WithCancel(ctx)
		next.CancelFunc = cancel
		next.State = domain.StateSegmentsFetching
		m.mu.Unlock()

		err := m.downloader.Download(jobCtx, next.URL, next.Resolution)
		cancel()

		if ctx.Err() != nil {
			m.finalize(next, ctx.Err())
			return
		}
		m.finalize(next, err)
	}
}

func (m *QueueManager) nextPending() *domain.QueueItem {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, item := range m.queue {
		if !item.State.Terminal() {
			return item
		}
	}
	return nil
}

// GetActiveItem allows the API to see what's currently running.
func (m *QueueManager) GetActiveItem() (domain.QueueItem, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.activeItem == nil {
		return domain.QueueItem{}, false
	}
	return snapshot(m.activeItem), true
}

func (m *QueueManager) GetItem(id string) (domain.QueueItem, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, item := range m.queue {
		if item.ID == id {
			return snapshot(item), true
		}
	}
	return domain.QueueItem{}, false
}

// GetAllItems returns snapshots of the live queue, in arrival order.
func (m *QueueManager) GetAllItems() []domain.QueueItem {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := make([]domain.QueueItem, len(m.queue))
	for i, item := range m.queue {
		items[i] = snapshot(item)
	}
	return items
}

// Cancel aborts a queued or running item. In-flight segment tasks are not
// rolled back; the partial output file stays where it is.
func (m *QueueManager) Cancel(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, item := range m.queue {
		if item.ID != id {
			continue
		}
		if item.State.Terminal() {
			return false
		}
		if item.CancelFunc != nil {
			item.CancelFunc()
			return true
		}
		// Not started yet: mark it failed so the loop skips it.
		item.State = domain.StateFailed
		item.Error = "cancelled before start"
		return true
	}
	return false
}

func (m *QueueManager) finalize(item *domain.QueueItem, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		item.State = domain.StateFailed
		if errors.Is(err, context.Canceled) {
			item.Error = "cancelled"
		} else {
			item.Error = err.Error()
		}
	} else {
		item.State = domain.StateDone
	}

	m.activeItem = nil
	m.removeFromLiveQueue(item.ID)
}

// removeFromLiveQueue keeps the active slice small by dropping finished items.
func (m *QueueManager) removeFromLiveQueue(id string) {
	for i, itm := range m.queue {
		if itm.ID == id {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			break
		}
	}
}
