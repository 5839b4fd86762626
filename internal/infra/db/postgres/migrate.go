package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{`
CREATE TABLE IF NOT EXISTS datasets (
  id BIGSERIAL PRIMARY KEY,
  filename TEXT NOT NULL UNIQUE,
  upload_date TIMESTAMPTZ NOT NULL,
  columns TEXT[] NOT NULL DEFAULT '{}'
)`, `
CREATE TABLE IF NOT EXISTS analyses (
  id BIGSERIAL PRIMARY KEY,
  dataset_id BIGINT NOT NULL REFERENCES datasets(id) ON DELETE CASCADE,
  task_name TEXT NOT NULL,
  task_parameters JSONB NOT NULL,
  result JSONB NOT NULL,
  analysis_date TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_analyses_dataset ON analyses (dataset_id, analysis_date DESC)`, `
CREATE TABLE IF NOT EXISTS task_errors (
  id BIGSERIAL PRIMARY KEY,
  dataset_id BIGINT NOT NULL,
  task_name TEXT NOT NULL,
  message TEXT NOT NULL,
  details_json JSONB NOT NULL,
  created_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_task_errors_dataset ON task_errors (dataset_id, created_at DESC)`,
}

// Migrate creates the tables when they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}
