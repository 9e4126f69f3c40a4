// Package history provides a SQLite-backed audit log of executed commands.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Execution is one recorded command execution.
type Execution struct {
	ID         string    `db:"id" json:"id"`
	Command    string    `db:"command" json:"command"`
	OK         bool      `db:"ok" json:"ok"`
	ExitCode   *int64    `db:"exit_code" json:"exit_code"`
	CwdAfter   string    `db:"cwd_after" json:"cwd_after"`
	Truncated  bool      `db:"truncated" json:"truncated"`
	DurationMS int64     `db:"duration_ms" json:"duration_ms"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Store persists executions in SQLite.
type Store struct {
	db *sqlx.DB
}

// Open opens (creating if necessary) the history database at path and
// initializes the schema. Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// Single connection: SQLite allows one writer, and shared in-memory
	// databases require it.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS executions (
		id TEXT PRIMARY KEY,
		command TEXT NOT NULL,
		ok INTEGER NOT NULL,
		exit_code INTEGER,
		cwd_after TEXT NOT NULL DEFAULT '',
		truncated INTEGER NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_executions_created_at ON executions(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record inserts an execution. ID and CreatedAt are assigned when unset.
func (s *Store) Record(ctx context.Context, e *Execution) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO executions (id, command, ok, exit_code, cwd_after, truncated, duration_ms, created_at)
		VALUES (:id, :command, :ok, :exit_code, :cwd_after, :truncated, :duration_ms, :created_at)
	`, e)
	if err != nil {
		return fmt.Errorf("failed to record execution: %w", err)
	}
	return nil
}

// Recent returns the most recent executions, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Execution, error) {
	if limit <= 0 {
		limit = 50
	}

	var out []Execution
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, command, ok, exit_code, cwd_after, truncated, duration_ms, created_at
		FROM executions
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}
	return out, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
