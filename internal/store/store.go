// Package store persists download job history in SQLite.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	// Ping makes sure the file is actually accessible and the DSN is valid
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to sqlite: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("could not migrate database: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS jobs (
			id                TEXT PRIMARY KEY,
			episode_id        TEXT NOT NULL,
			title             TEXT NOT NULL,
			resolution        TEXT NOT NULL,
			output_path       TEXT NOT NULL,
			state             TEXT NOT NULL,
			error             TEXT NOT NULL DEFAULT '',
			segments_total    INTEGER NOT NULL DEFAULT 0,
			segments_missing  INTEGER NOT NULL DEFAULT 0,
			segments_degraded INTEGER NOT NULL DEFAULT 0,
			started_at        TIMESTAMP NOT NULL,
			finished_at       TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_jobs_episode ON jobs(episode_id);
	`)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}
