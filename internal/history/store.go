// Package history persists cycle results to a local SQLite database so an
// operator can reconstruct what the reconciler did and when, long after
// the logs have rotated away.
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"grimm.is/rampart/internal/reconcile"
)

// Entry is one recorded cycle.
type Entry struct {
	ID       int64     `json:"id"`
	CycleID  string    `json:"cycle_id"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
	Drift    bool      `json:"drift"`
	Restored bool      `json:"restored"`
	Bounced  bool      `json:"bounced"`
	Alerted  bool      `json:"alerted"`
	Errors   []string  `json:"errors,omitempty"`
}

// Store provides persistent storage for cycle history.
type Store struct {
	mu        sync.RWMutex
	db        *sql.DB
	retention int
}

// NewStore opens (creating if needed) the history database at dbPath.
// retentionDays bounds how far back Prune keeps entries.
func NewStore(dbPath string, retentionDays int) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS cycles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			cycle_id TEXT NOT NULL,
			started DATETIME NOT NULL,
			finished DATETIME NOT NULL,
			drift INTEGER NOT NULL DEFAULT 0,
			restored INTEGER NOT NULL DEFAULT 0,
			bounced INTEGER NOT NULL DEFAULT 0,
			alerted INTEGER NOT NULL DEFAULT 0,
			errors TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_cycles_started ON cycles(started);
		CREATE INDEX IF NOT EXISTS idx_cycles_drift ON cycles(drift);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create cycles table: %w", err)
	}

	if retentionDays <= 0 {
		retentionDays = 90
	}

	return &Store{db: db, retention: retentionDays}, nil
}

// Record implements the reconciler's Recorder contract.
func (s *Store) Record(res *reconcile.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []string
	for _, e := range res.Errors {
		errs = append(errs, e.Error())
	}
	var errsJSON []byte
	if len(errs) > 0 {
		var err error
		errsJSON, err = json.Marshal(errs)
		if err != nil {
			errsJSON = []byte("[]")
		}
	}

	_, err := s.db.Exec(`
		INSERT INTO cycles (cycle_id, started, finished, drift, restored, bounced, alerted, errors)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, res.CycleID, res.Started.UTC(), res.Finished.UTC(),
		res.DriftDetected, res.RestoreRan, res.BounceRan, res.Alerted, string(errsJSON))

	if err != nil {
		return fmt.Errorf("insert cycle: %w", err)
	}
	return nil
}

// Recent returns the most recent entries, newest first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT id, cycle_id, started, finished, drift, restored, bounced, alerted, errors
		FROM cycles ORDER BY started DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query cycles: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var errsJSON sql.NullString

		err := rows.Scan(&e.ID, &e.CycleID, &e.Started, &e.Finished,
			&e.Drift, &e.Restored, &e.Bounced, &e.Alerted, &errsJSON)
		if err != nil {
			return nil, fmt.Errorf("scan cycle: %w", err)
		}

		if errsJSON.Valid && errsJSON.String != "" {
			json.Unmarshal([]byte(errsJSON.String), &e.Errors)
		}

		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune removes entries older than the retention period and returns how
// many were deleted.
func (s *Store) Prune() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().AddDate(0, 0, -s.retention)
	result, err := s.db.Exec("DELETE FROM cycles WHERE started < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune cycles: %w", err)
	}
	return result.RowsAffected()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
