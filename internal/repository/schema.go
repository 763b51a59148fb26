package repository

// Schema definitions for the run history.
// Compatible with both SQLite and PostgreSQL.

const schemaAnalysisRuns = `
CREATE TABLE IF NOT EXISTS analysis_runs (
    token TEXT PRIMARY KEY,
    created_at TIMESTAMP NOT NULL,
    rows_accepted INTEGER NOT NULL,
    total_accounts INTEGER NOT NULL,
    flagged_accounts INTEGER NOT NULL,
    rings INTEGER NOT NULL,
    processing_seconds REAL NOT NULL,
    partial BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_analysis_runs_created ON analysis_runs(created_at);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaAnalysisRuns,
	}
}
