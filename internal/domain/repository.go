package domain

import (
	"context"
	"time"
)

// AnalysisRun is the persisted summary of one completed analysis.
// Only run metadata is stored; the full result lives in the result
// store for its TTL and is never persisted.
type AnalysisRun struct {
	Token             string    `json:"token"`
	CreatedAt         time.Time `json:"createdAt"`
	RowsAccepted      int       `json:"rowsAccepted"`
	TotalAccounts     int       `json:"totalAccounts"`
	FlaggedAccounts   int       `json:"flaggedAccounts"`
	Rings             int       `json:"rings"`
	ProcessingSeconds float64   `json:"processingSeconds"`
	Partial           bool      `json:"partial"`
}

// Repository defines the interface for run-history persistence.
type Repository interface {
	SaveRun(ctx context.Context, run *AnalysisRun) error
	GetRun(ctx context.Context, token string) (*AnalysisRun, error)
	ListRuns(ctx context.Context, limit int) ([]*AnalysisRun, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string `json:"driver"`

	// SQLite specific
	SQLitePath string `json:"sqlitePath"`

	// PostgreSQL specific
	PostgresHost     string `json:"postgresHost"`
	PostgresPort     int    `json:"postgresPort"`
	PostgresUser     string `json:"postgresUser"`
	PostgresPassword string `json:"-"`
	PostgresDB       string `json:"postgresDb"`
	PostgresSSLMode  string `json:"postgresSslMode"`

	// Connection pool settings
	MaxOpenConns    int           `json:"maxOpenConns"`
	MaxIdleConns    int           `json:"maxIdleConns"`
	ConnMaxLifetime time.Duration `json:"connMaxLifetime"`
}
