package mysql

import (
	"context"
	"database/sql"
	"strings"

	"github.com/bryanwahyu/datalens/internal/domain/datasets"
	domain "github.com/bryanwahyu/datalens/internal/domain/taskerrors"
)

type TaskErrorRepository struct {
	db *sql.DB
}

func NewTaskErrorRepository(db *sql.DB) *TaskErrorRepository { return &TaskErrorRepository{db: db} }

func (r *TaskErrorRepository) Save(ctx context.Context, e *domain.TaskError) error {
	const q = `
INSERT INTO task_errors
  (dataset_id, task_name, message, details_json, created_at)
VALUES (?,?,?,?,?)
`
	msg := e.Message
	if strings.TrimSpace(msg) == "" {
		msg = "-"
	}
	e.CreatedAt = nowIfZero(e.CreatedAt)
	res, err := r.db.ExecContext(ctx, q, e.DatasetID, stringOrDash(e.TaskName), msg, jsonOrEmpty(e.DetailsJSON), e.CreatedAt)
	if err != nil {
		return err
	}
	e.ID, err = res.LastInsertId()
	return err
}

func (r *TaskErrorRepository) ListByDataset(ctx context.Context, datasetID datasets.DatasetID, limit int) ([]*domain.TaskError, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, dataset_id, task_name, message, details_json, created_at
FROM task_errors
WHERE dataset_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?;`
	rows, err := r.db.QueryContext(ctx, q, datasetID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*domain.TaskError{}
	for rows.Next() {
		var e domain.TaskError
		if err := rows.Scan(&e.ID, &e.DatasetID, &e.TaskName, &e.Message, &e.DetailsJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
