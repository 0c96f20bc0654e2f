// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists pipeline state in a single SQLite database: items
// and their processing lifecycle, analysis results, relevance scores,
// per-category harvest watermarks, and run summaries. All state
// transitions are conditional updates so concurrent workers never process
// the same item twice.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/paperwatch/pkg/types"
)

// Store wraps the pipeline database. Safe for concurrent use.
type Store struct {
	db          *sql.DB
	maxAttempts int
}

// Open opens or creates the database at cfg.Path and ensures the schema
// exists.
func Open(cfg types.StoreConfig) (*Store, error) {
	path := cfg.Path
	if path == "" {
		path = "paperwatch.db"
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, maxAttempts: maxAttempts}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS items (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			authors TEXT NOT NULL,
			abstract TEXT,
			categories TEXT NOT NULL,
			published TEXT NOT NULL,
			updated TEXT NOT NULL,
			content_url TEXT,
			state TEXT NOT NULL DEFAULT 'unprocessed',
			failure_reason TEXT,
			attempts INTEGER NOT NULL DEFAULT 0,
			claimed_by TEXT,
			claimed_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_items_state ON items(state)`,
		`CREATE TABLE IF NOT EXISTS analyses (
			item_id TEXT PRIMARY KEY REFERENCES items(id),
			key_concepts TEXT,
			summary TEXT,
			confidence REAL NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS scores (
			item_id TEXT PRIMARY KEY REFERENCES items(id),
			run_id TEXT NOT NULL,
			score REAL NOT NULL,
			flagged INTEGER NOT NULL,
			text_similarity REAL NOT NULL,
			collaborator_match INTEGER NOT NULL,
			matched_collaborators TEXT,
			ai_confidence REAL NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scores_run ON scores(run_id)`,
		`CREATE TABLE IF NOT EXISTS watermarks (
			category TEXT PRIMARY KEY,
			seen TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			phase TEXT NOT NULL,
			started TEXT NOT NULL,
			finished TEXT NOT NULL,
			fetched INTEGER NOT NULL,
			processed INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			deferred INTEGER NOT NULL,
			flagged INTEGER NOT NULL,
			feed_errors TEXT,
			delivery_warning TEXT
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}
