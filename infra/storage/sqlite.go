// Package storage provides the SQLite-backed implementation of the calendar
// and proposal stores, using the pure Go driver so deployments need no cgo.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/coparent/rota/core/model"
	"github.com/coparent/rota/core/proposal"
	"github.com/coparent/rota/core/storage"
)

// SQLiteStore implements storage.Store and proposal.Store on one database.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS calendar_days (
	date TEXT PRIMARY KEY,
	assigned_to TEXT NOT NULL,
	original_assigned_to TEXT NOT NULL DEFAULT '',
	is_disrupted INTEGER NOT NULL DEFAULT 0,
	disrupted_by TEXT NOT NULL DEFAULT '',
	note TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS settings (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	data TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS proposals (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	created_at TEXT NOT NULL,
	data TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_proposals_status ON proposals(status);
`

// New opens (or creates) the database at path and migrates the schema.
// Use ":memory:" for tests.
func New(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// LoadCalendar returns the committed calendar or nil when none is stored.
func (s *SQLiteStore) LoadCalendar() (model.Calendar, error) {
	rows, err := s.db.Query(`SELECT date, assigned_to, original_assigned_to, is_disrupted, disrupted_by, note
		FROM calendar_days ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("load calendar: %w", err)
	}
	defer rows.Close()

	var cal model.Calendar
	for rows.Next() {
		var day model.Day
		var disrupted int
		if err := rows.Scan(&day.Date, &day.AssignedTo, &day.OriginalAssignedTo, &disrupted, &day.DisruptedBy, &day.Note); err != nil {
			return nil, fmt.Errorf("scan day: %w", err)
		}
		day.IsDisrupted = disrupted != 0
		cal = append(cal, day)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cal) == 0 {
		return nil, nil
	}
	return cal, nil
}

// SaveCalendar replaces the stored calendar in one transaction, making the
// save idempotent.
func (s *SQLiteStore) SaveCalendar(cal model.Calendar) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(`DELETE FROM calendar_days`); err != nil {
		return fmt.Errorf("clear calendar: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO calendar_days
		(date, assigned_to, original_assigned_to, is_disrupted, disrupted_by, note)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, day := range cal {
		disrupted := 0
		if day.IsDisrupted {
			disrupted = 1
		}
		if _, err := stmt.Exec(day.Date, day.AssignedTo, day.OriginalAssignedTo, disrupted, day.DisruptedBy, day.Note); err != nil {
			return fmt.Errorf("insert day %s: %w", day.Date, err)
		}
	}
	return tx.Commit()
}

// LoadSettings returns the shared settings or nil when unset.
func (s *SQLiteStore) LoadSettings() (*storage.Settings, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM settings WHERE id = 1`).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	var cfg storage.Settings
	if err := json.Unmarshal([]byte(data), &cfg); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return &cfg, nil
}

// SaveSettings upserts the shared settings.
func (s *SQLiteStore) SaveSettings(cfg storage.Settings) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO settings (id, data) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data`, string(data))
	return err
}

// Put upserts a proposal.
func (s *SQLiteStore) Put(p proposal.Proposal) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO proposals (id, status, created_at, data) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET status = excluded.status, data = excluded.data`,
		p.ID, string(p.Status), p.CreatedAt.UTC().Format(time.RFC3339Nano), string(data))
	return err
}

// Get loads one proposal by id.
func (s *SQLiteStore) Get(id string) (proposal.Proposal, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM proposals WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return proposal.Proposal{}, proposal.ErrNotFound
	}
	if err != nil {
		return proposal.Proposal{}, fmt.Errorf("load proposal: %w", err)
	}
	var p proposal.Proposal
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return proposal.Proposal{}, fmt.Errorf("decode proposal: %w", err)
	}
	return p, nil
}

// List returns all stored proposals.
func (s *SQLiteStore) List() ([]proposal.Proposal, error) {
	rows, err := s.db.Query(`SELECT data FROM proposals ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}
	defer rows.Close()

	var out []proposal.Proposal
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var p proposal.Proposal
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return nil, fmt.Errorf("decode proposal: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
