// Package store provides SQLite-backed persistence for pomo.
//
// The same database file serves two roles: on the client it holds the timer
// key/value entries and the focus journal; under `pomo serve` it also holds
// the task and record tables of the development backend.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fentz26/pomo/internal/models"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store provides access to the pomo SQLite database.
type Store struct {
	db *sql.DB
}

// New creates a new Store and runs migrations.
func New(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer at a time
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate runs idempotent schema migrations.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS journal (
		id TEXT PRIMARY KEY,
		action TEXT NOT NULL,
		inputs_hash TEXT NOT NULL,
		outcome TEXT NOT NULL,
		task_id TEXT,
		details TEXT,
		timestamp DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT,
		related_task_ids TEXT,
		priority_score INTEGER NOT NULL DEFAULT 0,
		estimated_pomodoros INTEGER NOT NULL DEFAULT 1,
		order_index INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'pending',
		started_at DATETIME,
		completed_at DATETIME,
		pomodoros_completed INTEGER NOT NULL DEFAULT 0,
		total_focus_time INTEGER NOT NULL DEFAULT 0,
		ai_reasoning TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS records (
		id TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		priority TEXT NOT NULL DEFAULT 'medium',
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
	CREATE INDEX IF NOT EXISTS idx_journal_task_id ON journal(task_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// --- Key/Value Operations ---

// GetValue returns the raw value stored under key. The boolean is false when
// the key has never been written or was deleted.
func (s *Store) GetValue(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query value %q: %w", key, err)
	}
	return value, true, nil
}

// SetValue writes value under key, replacing any previous value.
func (s *Store) SetValue(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("write value %q: %w", key, err)
	}
	return nil
}

// DeleteValues removes the given keys. Missing keys are ignored.
func (s *Store) DeleteValues(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]interface{}, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	if _, err := s.db.Exec(`DELETE FROM kv WHERE key IN (`+placeholders+`)`, args...); err != nil {
		return fmt.Errorf("delete values: %w", err)
	}
	return nil
}

// --- Journal Operations ---

// WriteJournal appends a lifecycle decision to the focus journal.
func (s *Store) WriteJournal(action, inputsHash, outcome, taskID, details string) (*models.JournalEntry, error) {
	entry := &models.JournalEntry{
		ID:         uuid.New().String(),
		Action:     action,
		InputsHash: inputsHash,
		Outcome:    outcome,
		TaskID:     taskID,
		Details:    details,
		Timestamp:  time.Now().UTC(),
	}

	_, err := s.db.Exec(
		`INSERT INTO journal (id, action, inputs_hash, outcome, task_id, details, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Action, entry.InputsHash, entry.Outcome, entry.TaskID, entry.Details, entry.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert journal: %w", err)
	}
	return entry, nil
}

// ListJournal returns the most recent journal entries, newest first.
func (s *Store) ListJournal(limit int) ([]models.JournalEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT id, action, inputs_hash, outcome, task_id, details, timestamp FROM journal ORDER BY timestamp DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var entries []models.JournalEntry
	for rows.Next() {
		var e models.JournalEntry
		var taskID, details sql.NullString
		if err := rows.Scan(&e.ID, &e.Action, &e.InputsHash, &e.Outcome, &taskID, &details, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan journal: %w", err)
		}
		e.TaskID = taskID.String
		e.Details = details.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
