package store

import (
	"database/sql"

	"hanidl/internal/domain"
)

// SaveJob inserts or replaces a job record; the orchestrator saves on every
// state transition, so the row always reflects the latest known state.
func (s *Store) SaveJob(rec *domain.JobRecord) error {
	query := `INSERT OR REPLACE INTO jobs
		(id, episode_id, title, resolution, output_path, state, error,
		 segments_total, segments_missing, segments_degraded, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var finished any
	if !rec.FinishedAt.IsZero() {
		finished = rec.FinishedAt
	}

	_, err := s.db.Exec(query,
		rec.ID,
		rec.EpisodeID,
		rec.Title,
		rec.Resolution,
		rec.OutputPath,
		string(rec.State),
		rec.Error,
		rec.SegmentsTotal,
		rec.SegmentsMissing,
		rec.SegmentsDegraded,
		rec.StartedAt,
		finished,
	)
	return err
}

// ListJobs returns the most recent job records, newest first.
func (s *Store) ListJobs(limit int) ([]*domain.JobRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(`SELECT id, episode_id, title, resolution, output_path,
		state, error, segments_total, segments_missing, segments_degraded,
		started_at, finished_at
		FROM jobs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*domain.JobRecord
	for rows.Next() {
		rec := &domain.JobRecord{}
		var state string
		var finished sql.NullTime

		err := rows.Scan(&rec.ID, &rec.EpisodeID, &rec.Title, &rec.Resolution,
			&rec.OutputPath, &state, &rec.Error, &rec.SegmentsTotal,
			&rec.SegmentsMissing, &rec.SegmentsDegraded, &rec.StartedAt, &finished)
		if err != nil {
			return nil, err
		}

		rec.State = domain.JobState(state)
		if finished.Valid {
			rec.FinishedAt = finished.Time
		}
		recs = append(recs, rec)
	}

	return recs, rows.Err()
}
