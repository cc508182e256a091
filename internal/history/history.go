// history.go records managed project runs in an on-disk SQLite database.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	createTableStmt = `
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at TEXT NOT NULL,
    finished_at TEXT NOT NULL,
    project TEXT NOT NULL,
    services TEXT,
    outcome TEXT NOT NULL,
    error TEXT
);`
	createIndexStmt = `CREATE INDEX IF NOT EXISTS idx_runs_project ON runs(project, started_at);`
	insertStmt      = `INSERT INTO runs(started_at, finished_at, project, services, outcome, error) VALUES(?, ?, ?, ?, ?, ?)`
	recentStmt      = `SELECT id, started_at, finished_at, project, services, outcome, error FROM runs ORDER BY id DESC LIMIT ?`
)

// Outcomes stored in the runs table.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
	OutcomeDryRun  = "dry-run"
)

// Run is one managed project.
type Run struct {
	ID         int64
	StartedAt  time.Time
	FinishedAt time.Time
	Project    string
	Services   []string
	Outcome    string
	Error      string
}

// Store persists runs into a SQLite database.
type Store struct {
	db     *sql.DB
	insert *sql.Stmt
}

// Open creates or opens the history database at path.
func Open(path string) (*Store, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, errors.New("history path cannot be empty")
	}
	dir := filepath.Dir(p)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, createTableStmt); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure runs table: %w", err)
	}
	if _, err := db.ExecContext(ctx, createIndexStmt); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure runs index: %w", err)
	}
	stmt, err := db.PrepareContext(ctx, insertStmt)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare insert statement: %w", err)
	}
	return &Store{db: db, insert: stmt}, nil
}

// Close releases database resources.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	var err error
	if s.insert != nil {
		err = errors.Join(err, s.insert.Close())
	}
	if s.db != nil {
		err = errors.Join(err, s.db.Close())
	}
	return err
}

// Record stores run. A nil Store discards it.
func (s *Store) Record(ctx context.Context, run Run) error {
	if s == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	started := run.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	finished := run.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	outcome := run.Outcome
	if outcome == "" {
		outcome = OutcomeSuccess
	}
	_, err := s.insert.ExecContext(
		ctx,
		started.UTC().Format(time.RFC3339Nano),
		finished.UTC().Format(time.RFC3339Nano),
		run.Project,
		strings.Join(run.Services, ","),
		outcome,
		run.Error,
	)
	return err
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if s == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, recentStmt, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			run               Run
			started, finished string
			services, errText sql.NullString
		)
		if err := rows.Scan(&run.ID, &started, &finished, &run.Project, &services, &run.Outcome, &errText); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		run.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		if services.Valid && services.String != "" {
			run.Services = strings.Split(services.String, ",")
		}
		run.Error = errText.String
		out = append(out, run)
	}
	return out, rows.Err()
}
