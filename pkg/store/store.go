package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // driver "sqlite3" (cgo)
	_ "modernc.org/sqlite"          // driver "sqlite" (pure Go)

	"valve-hq/valve/pkg/config"
	"valve-hq/valve/pkg/report"
)

// Store records validation runs and their violations in SQLite.
type Store struct {
	db      *sql.DB
	driver  string
	maxRuns int
	maxAge  time.Duration
	logger  *slog.Logger

	// now is replaced in tests.
	now func() time.Time
}

// Open opens or creates the history database described by cfg.
func Open(cfg *config.StoreConfig, logger *slog.Logger) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("store path cannot be empty")
	}
	driver := cfg.Driver
	if driver == "" {
		driver = config.DefaultStoreDriver
	}
	busyTimeout := cfg.BusyTimeout
	if busyTimeout == 0 {
		busyTimeout = config.DefaultStoreBusyTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "store", "driver", driver)

	db, err := sql.Open(driver, cfg.Path)
	if err != nil {
		return nil, newStorageError(driver, "open", err)
	}

	// SQLite only supports a single writer; one connection also keeps the
	// pragmas below in effect for every statement.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{
		db:      db,
		driver:  driver,
		maxRuns: cfg.MaxRuns,
		maxAge:  cfg.MaxAge,
		logger:  logger,
		now:     time.Now,
	}
	if err := s.initialize(busyTimeout); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("run history opened", "path", cfg.Path, "max_runs", cfg.MaxRuns)
	return s, nil
}

func (s *Store) initialize(busyTimeout time.Duration) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeout.Milliseconds()),
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return newStorageError(s.driver, "pragma", err)
		}
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return newStorageError(s.driver, "create_schema", err)
	}
	if _, err := s.db.Exec(insertSchemaVersion, SchemaVersion); err != nil {
		return newStorageError(s.driver, "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(getSchemaVersion).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return newStorageError(s.driver, "get_schema_version", err)
	}
	if version != SchemaVersion {
		return newStorageError(s.driver, "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}
	return nil
}

// Record stores a run with its violations, then prunes runs beyond the
// configured count and age limits.
func (s *Store) Record(ctx context.Context, run *Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return newStorageError(s.driver, "begin", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, insertRun,
		run.ID, run.StartedAt.UnixNano(), run.Duration.Milliseconds(), run.Trigger,
		strings.Join(run.Inputs, "\n"), FormatFingerprint(run.Fingerprint),
		run.Outcome, run.Errors, run.Warnings, run.Infos,
	)
	if err != nil {
		return newStorageError(s.driver, "record", err)
	}

	if len(run.Violations) > 0 {
		stmt, err := tx.PrepareContext(ctx, insertViolation)
		if err != nil {
			return newStorageError(s.driver, "prepare", err)
		}
		defer stmt.Close()

		for i, v := range run.Violations {
			_, err := stmt.ExecContext(ctx, run.ID, i, v.Table, v.Cell, string(v.Level),
				v.Message, nullString(v.Suggestion), nullString(v.Rule), nullString(v.RuleID))
			if err != nil {
				return newStorageError(s.driver, "record_violation", err)
			}
		}
	}

	if _, err := s.prune(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return newStorageError(s.driver, "commit", err)
	}

	s.logger.Debug("run recorded", "run_id", run.ID, "outcome", run.Outcome, "violations", len(run.Violations))
	return nil
}

// Prune applies the count and age limits outside of Record and returns
// the number of runs removed.
func (s *Store) Prune(ctx context.Context) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, newStorageError(s.driver, "begin", err)
	}
	defer tx.Rollback() //nolint:errcheck

	n, err := s.prune(ctx, tx)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, newStorageError(s.driver, "commit", err)
	}
	if n > 0 {
		s.logger.Info("pruned run history", "runs", n)
	}
	return n, nil
}

func (s *Store) prune(ctx context.Context, tx *sql.Tx) (int64, error) {
	var removed int64
	exec := func(query string, args ...any) error {
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return newStorageError(s.driver, "prune", err)
		}
		n, _ := res.RowsAffected()
		removed += n
		return nil
	}

	if s.maxRuns > 0 {
		if err := exec(pruneRuns, s.maxRuns); err != nil {
			return 0, err
		}
	}
	if s.maxAge > 0 {
		if err := exec(pruneBefore, s.now().Add(-s.maxAge).UnixNano()); err != nil {
			return 0, err
		}
	}
	if removed > 0 {
		if _, err := tx.ExecContext(ctx, pruneOrphans); err != nil {
			return 0, newStorageError(s.driver, "prune", err)
		}
	}
	return removed, nil
}

// List returns up to limit runs, newest first. A limit of zero or less
// returns every run.
func (s *Store) List(ctx context.Context, limit int) ([]*Run, error) {
	query := selectRuns + " ORDER BY started_at DESC"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, newStorageError(s.driver, "list", err)
	}
	defer rows.Close()

	runs := []*Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, newStorageError(s.driver, "scan", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, newStorageError(s.driver, "list", err)
	}
	return runs, nil
}

// Get returns a run with its violations. ErrNotFound is returned for an
// unknown ID.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx, selectRuns+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, newStorageError(s.driver, "get", err)
	}

	rows, err := s.db.QueryContext(ctx, selectViolations, id)
	if err != nil {
		return nil, newStorageError(s.driver, "get_violations", err)
	}
	defer rows.Close()

	for rows.Next() {
		var v report.Violation
		var level string
		var suggestion, rule, ruleID sql.NullString
		if err := rows.Scan(&v.Table, &v.Cell, &level, &v.Message, &suggestion, &rule, &ruleID); err != nil {
			return nil, newStorageError(s.driver, "scan", err)
		}
		v.Level = report.Level(level)
		v.Suggestion = suggestion.String
		v.Rule = rule.String
		v.RuleID = ruleID.String
		run.Violations = append(run.Violations, v)
	}
	if err := rows.Err(); err != nil {
		return nil, newStorageError(s.driver, "get_violations", err)
	}
	return run, nil
}

// Latest returns the most recent run without its violations, or nil
// when the history is empty.
func (s *Store) Latest(ctx context.Context) (*Run, error) {
	runs, err := s.List(ctx, 1)
	if err != nil || len(runs) == 0 {
		return nil, err
	}
	return runs[0], nil
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return newStorageError(s.driver, "ping", err)
	}
	return nil
}

// Close releases the database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return newStorageError(s.driver, "close", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run         Run
		startedAt   int64
		durationMS  int64
		inputs      string
		fingerprint string
	)
	err := row.Scan(&run.ID, &startedAt, &durationMS, &run.Trigger, &inputs, &fingerprint,
		&run.Outcome, &run.Errors, &run.Warnings, &run.Infos)
	if err != nil {
		return nil, err
	}
	run.StartedAt = time.Unix(0, startedAt)
	run.Duration = time.Duration(durationMS) * time.Millisecond
	if inputs != "" {
		run.Inputs = strings.Split(inputs, "\n")
	}
	if run.Fingerprint, err = ParseFingerprint(fingerprint); err != nil {
		return nil, fmt.Errorf("invalid fingerprint %q: %w", fingerprint, err)
	}
	return &run, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
