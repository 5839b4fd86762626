package mysql

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{`
CREATE TABLE IF NOT EXISTS datasets (
  id BIGINT AUTO_INCREMENT PRIMARY KEY,
  filename VARCHAR(255) NOT NULL,
  upload_date DATETIME(6) NOT NULL,
  columns_json JSON NOT NULL,
  UNIQUE KEY uq_datasets_filename (filename)
)`, `
CREATE TABLE IF NOT EXISTS analyses (
  id BIGINT AUTO_INCREMENT PRIMARY KEY,
  dataset_id BIGINT NOT NULL,
  task_name VARCHAR(100) NOT NULL,
  task_parameters JSON NOT NULL,
  result JSON NOT NULL,
  analysis_date DATETIME(6) NOT NULL,
  KEY idx_analyses_dataset (dataset_id, analysis_date),
  CONSTRAINT fk_analyses_dataset FOREIGN KEY (dataset_id) REFERENCES datasets(id) ON DELETE CASCADE
)`, `
CREATE TABLE IF NOT EXISTS task_errors (
  id BIGINT AUTO_INCREMENT PRIMARY KEY,
  dataset_id BIGINT NOT NULL,
  task_name VARCHAR(100) NOT NULL,
  message TEXT NOT NULL,
  details_json JSON NOT NULL,
  created_at DATETIME(6) NOT NULL,
  KEY idx_task_errors_dataset (dataset_id, created_at)
)`}

// Migrate creates the tables when they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("mysql migrate: %w", err)
		}
	}
	return nil
}
