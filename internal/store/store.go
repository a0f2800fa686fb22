// Package store persists sign-in attempt history in SQLite.
package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Attempt is one recorded sign-in run.
type Attempt struct {
	ID        int64
	StartedAt time.Time
	Method    string // "cookie", "cached-cookie" or "password"
	Success   bool
	Reason    string
	CheckedIn bool
}

// Store handles all database operations
type Store struct {
	db *sql.DB
}

// New creates a new Store with SQLite backend
func New(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS attempts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at DATETIME NOT NULL,
		method TEXT NOT NULL,
		success BOOLEAN NOT NULL,
		reason TEXT,
		checked_in BOOLEAN NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_attempts_started_at ON attempts(started_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// RecordAttempt inserts an attempt and fills in its ID.
func (s *Store) RecordAttempt(a *Attempt) error {
	res, err := s.db.Exec(`
		INSERT INTO attempts (started_at, method, success, reason, checked_in)
		VALUES (?, ?, ?, ?, ?)
	`, a.StartedAt, a.Method, a.Success, a.Reason, a.CheckedIn)
	if err != nil {
		return err
	}

	a.ID, err = res.LastInsertId()
	return err
}

// RecentAttempts returns the most recent attempts, newest first.
func (s *Store) RecentAttempts(limit int) ([]Attempt, error) {
	rows, err := s.db.Query(`
		SELECT id, started_at, method, success, reason, checked_in
		FROM attempts
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		var a Attempt
		if err := rows.Scan(&a.ID, &a.StartedAt, &a.Method, &a.Success, &a.Reason, &a.CheckedIn); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// LastSuccessfulCheckIn returns when the check-in last went through.
// ok is false when it never has.
func (s *Store) LastSuccessfulCheckIn() (time.Time, bool, error) {
	var ts time.Time
	err := s.db.QueryRow(`
		SELECT started_at FROM attempts
		WHERE success = 1 AND checked_in = 1
		ORDER BY started_at DESC
		LIMIT 1
	`).Scan(&ts)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return ts, true, nil
}
