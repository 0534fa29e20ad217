// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history records drill conversion runs in a local SQLite
// database and exports them as YAML.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/drill-export/pkg/types"
)

const (
	dbFile       = "history.db"
	defaultLimit = 20

	// timeFormat is fixed width so started_at sorts lexically.
	timeFormat = "2006-01-02T15:04:05.000000000Z07:00"
)

// ErrRunNotFound is returned by Get for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// Store manages the history database.
type Store struct {
	db *sql.DB
}

// Open opens or creates dir/history.db and its schema.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
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
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			source_path TEXT NOT NULL,
			drill_path TEXT,
			compat_path TEXT,
			exit_code INTEGER,
			stderr TEXT,
			status TEXT NOT NULL,
			sentinel_found INTEGER,
			lines_skipped INTEGER,
			lines_written INTEGER,
			substitutions INTEGER,
			intermediate_removed INTEGER,
			message TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_source ON runs(source_path)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores run, replacing any earlier run with the same ID.
func (s *Store) Record(ctx context.Context, run types.Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (
			id, started_at, source_path, drill_path, compat_path,
			exit_code, stderr, status, sentinel_found,
			lines_skipped, lines_written, substitutions,
			intermediate_removed, message
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.StartedAt.UTC().Format(timeFormat),
		run.Paths.Source,
		run.Paths.Drill,
		run.Paths.Compat,
		run.Export.ExitCode,
		run.Export.Stderr,
		string(run.Status),
		run.Rewrite.SentinelFound,
		run.Rewrite.LinesSkipped,
		run.Rewrite.LinesWritten,
		run.Rewrite.Substitutions,
		run.IntermediateRemoved,
		run.Message,
	)
	if err != nil {
		return fmt.Errorf("recording run %s: %w", run.ID, err)
	}
	return nil
}

const selectRuns = `SELECT id, started_at, source_path, drill_path, compat_path,
	exit_code, stderr, status, sentinel_found,
	lines_skipped, lines_written, substitutions,
	intermediate_removed, message
	FROM runs`

// Recent returns up to limit runs, newest first. A non-positive limit
// uses the default of 20.
func (s *Store) Recent(ctx context.Context, limit int) ([]types.Run, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	rows, err := s.db.QueryContext(ctx, selectRuns+` ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()
	return scanRuns(rows)
}

// Get returns the run with the given ID.
func (s *Store) Get(ctx context.Context, id string) (types.Run, error) {
	rows, err := s.db.QueryContext(ctx, selectRuns+` WHERE id = ?`, id)
	if err != nil {
		return types.Run{}, fmt.Errorf("querying run %s: %w", id, err)
	}
	defer rows.Close()

	runs, err := scanRuns(rows)
	if err != nil {
		return types.Run{}, err
	}
	if len(runs) == 0 {
		return types.Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return runs[0], nil
}

// ExportYAML writes every recorded run, oldest first, to path.
func (s *Store) ExportYAML(ctx context.Context, path string) error {
	rows, err := s.db.QueryContext(ctx, selectRuns+` ORDER BY started_at ASC, rowid ASC`)
	if err != nil {
		return fmt.Errorf("querying runs for export: %w", err)
	}
	defer rows.Close()

	runs, err := scanRuns(rows)
	if err != nil {
		return err
	}
	if runs == nil {
		runs = []types.Run{}
	}

	data, err := yaml.Marshal(runs)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func scanRuns(rows *sql.Rows) ([]types.Run, error) {
	var runs []types.Run
	for rows.Next() {
		var (
			r         types.Run
			startedAt string
			status    string
			drill     sql.NullString
			compat    sql.NullString
			stderr    sql.NullString
			message   sql.NullString
		)
		if err := rows.Scan(
			&r.ID, &startedAt, &r.Paths.Source, &drill, &compat,
			&r.Export.ExitCode, &stderr, &status, &r.Rewrite.SentinelFound,
			&r.Rewrite.LinesSkipped, &r.Rewrite.LinesWritten, &r.Rewrite.Substitutions,
			&r.IntermediateRemoved, &message,
		); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		t, err := time.Parse(timeFormat, startedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing start time of run %s: %w", r.ID, err)
		}
		r.StartedAt = t
		r.Status = types.ConversionStatus(status)
		r.Paths.Drill = drill.String
		r.Paths.Compat = compat.String
		r.Export.Stderr = stderr.String
		r.Message = message.String
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}
