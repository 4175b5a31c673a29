package domain

import "time"

// JobRecord is the persisted outcome of one download job. Missing and
// degraded segment counts are kept so garbled output can be traced back to
// its cause after the fact.
type JobRecord struct {
	ID               string    `json:"id"`
	EpisodeID        string    `json:"episode_id"`
	Title            string    `json:"title"`
	Resolution       string    `json:"resolution"`
	OutputPath       string    `json:"output_path"`
	State            JobState  `json:"state"`
	Error            string    `json:"error,omitempty"`
	SegmentsTotal    int       `json:"segments_total"`
	SegmentsMissing  int       `json:"segments_missing"`
	SegmentsDegraded int       `json:"segments_degraded"`
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at"`
}
