// Package snapshot persists import results in a local SQLite database so
// that runs can be listed and compared without re-importing.
package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	domainerrors "archimport/internal/core/errors"
	"archimport/internal/core/ports"
	"archimport/internal/engine/graph"

	_ "modernc.org/sqlite"
)

const (
	driverName         = "sqlite"
	maxAttempts        = 5
	defaultBusyTimeout = 2 * time.Second
	rootsSeparator     = "\n"
)

// timeLayout has fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

var _ ports.SnapshotStore = (*Store)(nil)

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

// RunSummary is a stored run with its graph totals.
type RunSummary struct {
	ports.RunInfo
	Classes int
	Stubs   int
	Issues  int
}

// Open creates or opens the database at path and migrates it. A zero
// busyTimeout uses a two second default.
func Open(path string, busyTimeout time.Duration) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("snapshot path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("snapshot path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create snapshot directory %q: %w", dir, err)
		}
	}

	if busyTimeout <= 0 {
		busyTimeout = defaultBusyTimeout
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)",
		cleanPath, busyTimeout.Milliseconds())
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite snapshot %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite snapshot %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Name() string { return "snapshot" }

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Consume stores one run: its metadata, the imported classes with their
// direct dependencies, the stub names and the recorded issues. Storing the
// same run id twice replaces the earlier rows.
func (s *Store) Consume(ctx context.Context, run ports.RunInfo, classes *graph.Classes) error {
	if classes == nil {
		return domainerrors.New(domainerrors.CodeInternal, "snapshot of nil class set")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.Started.IsZero() {
		run.Started = time.Now()
	}
	return s.withRetry("save run", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if err := writeRun(ctx, tx, run, classes); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	})
}

func writeRun(ctx context.Context, tx *sql.Tx, run ports.RunInfo, classes *graph.Classes) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, run.ID); err != nil {
		return err
	}
	issues := classes.Issues()
	stubs := classes.Stubs()
	if _, err := tx.ExecContext(ctx, `
INSERT INTO runs (
  run_id, mode, roots, started_utc, duration_ms, location_count, excluded_count,
  class_count, stub_count, issue_count
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Mode,
		strings.Join(run.Roots, rootsSeparator),
		run.Started.UTC().Format(timeLayout),
		run.Duration.Milliseconds(),
		run.Locations,
		run.Excluded,
		classes.Len(),
		len(stubs),
		len(issues),
	); err != nil {
		return err
	}

	classStmt, err := tx.PrepareContext(ctx, `
INSERT INTO classes (run_id, name, package, uri, kind, superclass, modifiers, source_file)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer classStmt.Close()
	depStmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO dependencies (run_id, from_class, to_class) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer depStmt.Close()

	var writeErr error
	classes.Each(func(c *graph.Class) bool {
		if _, writeErr = classStmt.ExecContext(ctx,
			run.ID, c.Name(), c.PackageName(), c.Source().URI(), string(c.Source().Kind()),
			c.SuperclassName(), int(c.Modifiers()), c.SourceFile(),
		); writeErr != nil {
			return false
		}
		for _, dep := range c.DirectDependencies() {
			if _, writeErr = depStmt.ExecContext(ctx, run.ID, c.Name(), dep.Name()); writeErr != nil {
				return false
			}
		}
		return true
	})
	if writeErr != nil {
		return writeErr
	}

	for _, name := range stubs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO stubs (run_id, name) VALUES (?, ?)`, run.ID, name); err != nil {
			return err
		}
	}
	for i, issue := range issues {
		code, _ := domainerrors.CodeOf(issue)
		if _, err := tx.ExecContext(ctx, `INSERT INTO issues (run_id, seq, code, message) VALUES (?, ?, ?, ?)`,
			run.ID, i, string(code), issue.Error()); err != nil {
			return err
		}
	}
	return nil
}

// LatestRun returns the most recently started run.
func (s *Store) LatestRun(ctx context.Context) (ports.RunInfo, bool, error) {
	runs, err := s.Runs(ctx, 1)
	if err != nil || len(runs) == 0 {
		return ports.RunInfo{}, false, err
	}
	return runs[0].RunInfo, true, nil
}

// Runs lists stored runs, newest first. A limit of zero or less lists all.
func (s *Store) Runs(ctx context.Context, limit int) ([]RunSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
SELECT run_id, mode, roots, started_utc, duration_ms, location_count, excluded_count,
  class_count, stub_count, issue_count
FROM runs
ORDER BY started_utc DESC, rowid DESC`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var rows *sql.Rows
	err := s.withRetry("load runs", func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, query, args...)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]RunSummary, 0)
	for rows.Next() {
		var (
			summary    RunSummary
			roots      string
			startedRaw string
			durationMS int64
		)
		if err := rows.Scan(
			&summary.ID,
			&summary.Mode,
			&roots,
			&startedRaw,
			&durationMS,
			&summary.Locations,
			&summary.Excluded,
			&summary.Classes,
			&summary.Stubs,
			&summary.Issues,
		); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		started, err := time.Parse(timeLayout, startedRaw)
		if err != nil {
			return nil, fmt.Errorf("parse run timestamp %q: %w", startedRaw, err)
		}
		summary.Started = started.UTC()
		summary.Duration = time.Duration(durationMS) * time.Millisecond
		if roots != "" {
			summary.Roots = strings.Split(roots, rootsSeparator)
		}
		runs = append(runs, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return runs, nil
}

// ClassNames lists the imported classes of a run in name order.
func (s *Store) ClassNames(ctx context.Context, runID string) ([]string, error) {
	return s.queryStrings(ctx, "load class names", `SELECT name FROM classes WHERE run_id = ? ORDER BY name`, runID)
}

// StubNames lists the referenced but not imported classes of a run.
func (s *Store) StubNames(ctx context.Context, runID string) ([]string, error) {
	return s.queryStrings(ctx, "load stub names", `SELECT name FROM stubs WHERE run_id = ? ORDER BY name`, runID)
}

// Dependents lists the classes of a run that depend directly on name.
func (s *Store) Dependents(ctx context.Context, runID, name string) ([]string, error) {
	return s.queryStrings(ctx, "load dependents",
		`SELECT from_class FROM dependencies WHERE run_id = ? AND to_class = ? ORDER BY from_class`, runID, name)
}

// Delete removes a run and everything stored with it.
func (s *Store) Delete(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.withRetry("delete run", func() error {
		_, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, runID)
		return err
	})
}

func (s *Store) queryStrings(ctx context.Context, op, query string, args ...any) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows *sql.Rows
	err := s.withRetry(op, func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, query, args...)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

// IsCorruptError reports whether err indicates a damaged database file.
func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database") || errors.Is(err, os.ErrInvalid)
}
