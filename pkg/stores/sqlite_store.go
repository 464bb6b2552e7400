package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"

	"github.com/prebuildkit/prebuild/pkg/engine"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements HistoryStore using SQLite
type SQLiteStore struct {
	db  *sql.DB
	cfg Config
	now func() time.Time
}

// Config holds SQLite store configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 4
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 2
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}

	return &SQLiteStore{
		cfg: cfg,
		now: time.Now,
	}, nil
}

// Init opens the database connection with foreign keys and WAL enabled.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", s.cfg.Path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(s.cfg.MaxOpenConns)
	db.SetMaxIdleConns(s.cfg.MaxIdleConns)
	db.SetConnMaxLifetime(s.cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// RecordRun stores a report and its warnings in one transaction.
func (s *SQLiteStore) RecordRun(ctx context.Context, report *engine.Report) (*Run, error) {
	if report == nil {
		return nil, fmt.Errorf("report is required")
	}

	id := report.RunID
	if id == uuid.Nil {
		id = uuid.New()
	}

	run := &Run{
		ID:           id.String(),
		ProjectRoot:  report.ProjectRoot,
		ProjectName:  report.Paths.ProjectName,
		Phase:        report.Phase,
		WarningCount: len(report.Warnings),
		StartedAt:    report.StartedAt,
		Duration:     report.Duration,
		CreatedAt:    s.now(),
	}
	if report.Error != "" {
		msg := report.Error
		run.Error = &msg
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = run.CreatedAt
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO apply_runs (id, project_root, project_name, phase, error, warning_count, started_at, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.ProjectRoot,
		run.ProjectName,
		string(run.Phase),
		run.Error,
		run.WarningCount,
		run.StartedAt.UnixMilli(),
		run.Duration.Milliseconds(),
		run.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	for i, w := range report.Warnings {
		var link *string
		if w.DocLink != "" {
			l := w.DocLink
			link = &l
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO apply_warnings (run_id, position, platform, tag, message, doc_link)
			VALUES (?, ?, ?, ?, ?, ?)
		`, run.ID, i, w.Platform, w.Tag, w.Message, link)
		if err != nil {
			return nil, fmt.Errorf("failed to record warning: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit run: %w", err)
	}

	// Round-trip precision of the stored columns.
	run.StartedAt = time.UnixMilli(run.StartedAt.UnixMilli())
	run.CreatedAt = time.UnixMilli(run.CreatedAt.UnixMilli())
	run.Duration = time.Duration(run.Duration.Milliseconds()) * time.Millisecond
	return run, nil
}

const runColumns = `id, project_root, project_name, phase, error, warning_count, started_at, duration_ms, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run                  Run
		phase                string
		startedAt, createdAt int64
		durationMs           int64
	)
	if err := row.Scan(
		&run.ID,
		&run.ProjectRoot,
		&run.ProjectName,
		&phase,
		&run.Error,
		&run.WarningCount,
		&startedAt,
		&durationMs,
		&createdAt,
	); err != nil {
		return nil, err
	}
	run.Phase = engine.Phase(phase)
	run.StartedAt = time.UnixMilli(startedAt)
	run.CreatedAt = time.UnixMilli(createdAt)
	run.Duration = time.Duration(durationMs) * time.Millisecond
	return &run, nil
}

// GetRun retrieves a run by ID
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM apply_runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns lists runs, newest first
func (s *SQLiteStore) ListRuns(ctx context.Context, opts ListOptions) ([]*Run, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT ` + runColumns + ` FROM apply_runs`
	args := []any{}
	if opts.ProjectRoot != "" {
		query += ` WHERE project_root = ?`
		args = append(args, opts.ProjectRoot)
	}
	query += ` ORDER BY started_at DESC, created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []*Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

// ListWarnings returns the warnings of a run in the order they were raised.
func (s *SQLiteStore) ListWarnings(ctx context.Context, runID string) ([]*Warning, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, position, platform, tag, message, doc_link
		FROM apply_warnings
		WHERE run_id = ?
		ORDER BY position ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list warnings: %w", err)
	}
	defer rows.Close()

	warnings := []*Warning{}
	for rows.Next() {
		w := &Warning{}
		var link sql.NullString
		if err := rows.Scan(&w.ID, &w.RunID, &w.Position, &w.Platform, &w.Tag, &w.Message, &link); err != nil {
			return nil, fmt.Errorf("failed to scan warning: %w", err)
		}
		w.DocLink = link.String
		warnings = append(warnings, w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating warnings: %w", err)
	}

	return warnings, nil
}

// DeleteRunsBefore removes runs started before cutoff together with their
// warnings.
func (s *SQLiteStore) DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM apply_runs WHERE started_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}

// HealthCheck verifies the database connection
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return s.db.PingContext(ctx)
}
