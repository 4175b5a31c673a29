package domain

import "context"

// JobState tracks one download job through its lifecycle. Failed is reachable
// from any non-terminal state; segment-level failures never produce it.
type JobState string

const (
	StateInitializing     JobState = "initializing"
	StateManifestResolved JobState = "manifest_resolved"
	StateSegmentsFetching JobState = "segments_fetching"
	StateWriting          JobState = "writing"
	StateDone             JobState = "done"
	StateFailed           JobState = "failed"
)

// Terminal reports whether the state ends the job.
func (s JobState) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// QueueItem is one queued episode in serve mode. The live queue keeps a
// small slice of these; finished items survive only in the history store.
type QueueItem struct {
	ID         string   `json:"id"`
	URL        string   `json:"url"`
	EpisodeID  string   `json:"episode_id"`
	Title      string   `json:"title"`
	Resolution string   `json:"resolution"`
	State      JobState `json:"state"`
	Error      string   `json:"error,omitempty"`

	CancelFunc context.CancelFunc `json:"-"`
}
