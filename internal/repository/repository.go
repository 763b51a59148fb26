// Package repository persists the run history: one row of metadata
// per completed analysis. Full results stay in the result store for
// their TTL and are never written here.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ringsight/ringsight/internal/domain"
)

var ErrNotFound = errors.New("record not found")

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite", "":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{db: db, driver: cfg.Driver}

	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// rebind converts ? placeholders to $n for postgres.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}
	out := make([]byte, 0, len(query)+8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			out = append(out, fmt.Sprintf("$%d", n)...)
			continue
		}
		out = append(out, query[i])
	}
	return string(out)
}

// SaveRun stores the metadata of one completed analysis.
func (r *SQLRepository) SaveRun(ctx context.Context, run *domain.AnalysisRun) error {
	if run == nil || run.Token == "" {
		return fmt.Errorf("run token is required")
	}

	query := r.rebind(`
		INSERT INTO analysis_runs
			(token, created_at, rows_accepted, total_accounts, flagged_accounts, rings, processing_seconds, partial)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err := r.db.ExecContext(ctx, query,
		run.Token,
		run.CreatedAt,
		run.RowsAccepted,
		run.TotalAccounts,
		run.FlaggedAccounts,
		run.Rings,
		run.ProcessingSeconds,
		run.Partial,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// GetRun fetches one run by token.
func (r *SQLRepository) GetRun(ctx context.Context, token string) (*domain.AnalysisRun, error) {
	query := r.rebind(`
		SELECT token, created_at, rows_accepted, total_accounts, flagged_accounts, rings, processing_seconds, partial
		FROM analysis_runs WHERE token = ?`)

	run := &domain.AnalysisRun{}
	err := r.db.QueryRowContext(ctx, query, token).Scan(
		&run.Token,
		&run.CreatedAt,
		&run.RowsAccepted,
		&run.TotalAccounts,
		&run.FlaggedAccounts,
		&run.Rings,
		&run.ProcessingSeconds,
		&run.Partial,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (r *SQLRepository) ListRuns(ctx context.Context, limit int) ([]*domain.AnalysisRun, error) {
	if limit <= 0 {
		limit = 50
	}

	query := r.rebind(`
		SELECT token, created_at, rows_accepted, total_accounts, flagged_accounts, rings, processing_seconds, partial
		FROM analysis_runs ORDER BY created_at DESC, token LIMIT ?`)

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.AnalysisRun
	for rows.Next() {
		run := &domain.AnalysisRun{}
		if err := rows.Scan(
			&run.Token,
			&run.CreatedAt,
			&run.RowsAccepted,
			&run.TotalAccounts,
			&run.FlaggedAccounts,
			&run.Rings,
			&run.ProcessingSeconds,
			&run.Partial,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Ping checks database health.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}
