package sqliteledger

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

	"github.com/osvaldoandrade/provision/internal/app/history"
	"github.com/osvaldoandrade/provision/internal/domain"
)

type Store struct {
	db *sql.DB
}

type OpenOptions struct {
	Fast bool
}

func Open(path string) (*Store, error) {
	return OpenWithOptions(path, OpenOptions{})
}

func OpenWithOptions(path string, opts OpenOptions) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path required")
	}

	if shouldCreateDir(path) {
		dir := filepath.Dir(path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &Store{db: db}
	if err := store.applyPragmas(context.Background(), opts); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Append(ctx context.Context, run history.StoredRun) error {
	dryRun := 0
	if run.DryRun {
		dryRun = 1
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO provision_runs (
			run_id, started_at, finished_at, database_name, schema_version, fingerprint,
			revision, state, dry_run, planned, created, skipped, failed, not_run, retries,
			failure_op, failure_target, failure_message, plan_snapshot
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.RunID,
		run.StartedAt.UnixMilli(),
		run.FinishedAt.UnixMilli(),
		run.Database,
		run.SchemaVersion,
		run.Fingerprint,
		run.Revision,
		string(run.State),
		dryRun,
		run.Counts.Planned,
		run.Counts.Created,
		run.Counts.Skipped,
		run.Counts.Failed,
		run.Counts.NotRun,
		run.Counts.Retries,
		run.FailureOp,
		run.FailureTarget,
		run.FailureMessage,
		run.PlanSnapshot,
	); err != nil {
		return fmt.Errorf("insert run %s: %w", run.RunID, err)
	}
	return nil
}

// List returns up to limit runs ordered by run id, newest first. Run ids are
// ULIDs so lexical order is creation order.
func (s *Store) List(ctx context.Context, limit int) ([]history.StoredRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, started_at, finished_at, database_name, schema_version, fingerprint,
			revision, state, dry_run, planned, created, skipped, failed, not_run, retries,
			failure_op, failure_target, failure_message, plan_snapshot
		FROM provision_runs
		ORDER BY run_id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []history.StoredRun
	for rows.Next() {
		var run history.StoredRun
		var startedAt, finishedAt int64
		var state string
		var dryRun int
		if err := rows.Scan(
			&run.RunID,
			&startedAt,
			&finishedAt,
			&run.Database,
			&run.SchemaVersion,
			&run.Fingerprint,
			&run.Revision,
			&state,
			&dryRun,
			&run.Counts.Planned,
			&run.Counts.Created,
			&run.Counts.Skipped,
			&run.Counts.Failed,
			&run.Counts.NotRun,
			&run.Counts.Retries,
			&run.FailureOp,
			&run.FailureTarget,
			&run.FailureMessage,
			&run.PlanSnapshot,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		parsed, err := domain.ParseRunState(state)
		if err != nil {
			return nil, fmt.Errorf("run %s: %w", run.RunID, err)
		}
		run.State = parsed
		run.DryRun = dryRun != 0
		run.StartedAt = time.UnixMilli(startedAt).UTC()
		run.FinishedAt = time.UnixMilli(finishedAt).UTC()
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS provision_runs (
			run_id TEXT PRIMARY KEY,
			started_at INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			database_name TEXT NOT NULL DEFAULT '',
			schema_version TEXT NOT NULL DEFAULT '',
			fingerprint TEXT NOT NULL DEFAULT '',
			revision TEXT NOT NULL DEFAULT '',
			state TEXT NOT NULL,
			dry_run INTEGER NOT NULL CHECK (dry_run IN (0, 1)),
			planned INTEGER NOT NULL DEFAULT 0,
			created INTEGER NOT NULL DEFAULT 0,
			skipped INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0,
			not_run INTEGER NOT NULL DEFAULT 0,
			retries INTEGER NOT NULL DEFAULT 0,
			failure_op TEXT NOT NULL DEFAULT '',
			failure_target TEXT NOT NULL DEFAULT '',
			failure_message TEXT NOT NULL DEFAULT '',
			plan_snapshot BLOB
		)
	`); err != nil {
		return fmt.Errorf("create runs table: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS provision_runs_database ON provision_runs (database_name, run_id)
	`); err != nil {
		return fmt.Errorf("create runs index: %w", err)
	}
	return nil
}

func (s *Store) applyPragmas(ctx context.Context, opts OpenOptions) error {
	if !opts.Fast {
		return nil
	}
	var mode string
	if err := s.db.QueryRowContext(ctx, "PRAGMA journal_mode = WAL").Scan(&mode); err != nil {
		return fmt.Errorf("set journal_mode: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA synchronous = NORMAL"); err != nil {
		return fmt.Errorf("set synchronous: %w", err)
	}
	return nil
}

func shouldCreateDir(path string) bool {
	if path == ":memory:" {
		return false
	}
	if strings.HasPrefix(path, "file:") {
		return false
	}
	return true
}
