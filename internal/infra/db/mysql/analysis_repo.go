package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	domain "github.com/bryanwahyu/datalens/internal/domain/analyses"
	"github.com/bryanwahyu/datalens/internal/domain/apperr"
	"github.com/bryanwahyu/datalens/internal/domain/datasets"
)

type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Save inserts an analysis record
func (r *AnalysisRepository) Save(ctx context.Context, a *domain.Analysis) error {
	const q = `
INSERT INTO analyses
  (dataset_id, task_name, task_parameters, result, analysis_date)
VALUES (?,?,?,?,?)
`
	a.AnalysisDate = nowIfZero(a.AnalysisDate)
	res, err := r.db.ExecContext(ctx, q,
		a.DatasetID, stringOrDash(a.TaskName),
		jsonOrEmpty(string(a.TaskParameters)), jsonOrEmpty(string(a.Result)),
		a.AnalysisDate,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = domain.AnalysisID(id)
	return nil
}

const selectAnalysis = `
SELECT id, dataset_id, task_name, task_parameters, result, analysis_date
FROM analyses`

func scanAnalysis(s scanner) (*domain.Analysis, error) {
	var a domain.Analysis
	var params, result string
	if err := s.Scan(&a.ID, &a.DatasetID, &a.TaskName, &params, &result, &a.AnalysisDate); err != nil {
		return nil, err
	}
	a.TaskParameters = json.RawMessage(params)
	a.Result = json.RawMessage(result)
	return &a, nil
}

func (r *AnalysisRepository) Get(ctx context.Context, id domain.AnalysisID) (*domain.Analysis, error) {
	a, err := scanAnalysis(r.db.QueryRowContext(ctx, selectAnalysis+` WHERE id=? LIMIT 1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("Analysis %d not found", id)
	}
	return a, err
}

// ListByDataset returns the history of one dataset ordered by analysis_date desc
func (r *AnalysisRepository) ListByDataset(ctx context.Context, datasetID datasets.DatasetID) ([]*domain.Analysis, error) {
	rows, err := r.db.QueryContext(ctx, selectAnalysis+`
WHERE dataset_id=?
ORDER BY analysis_date DESC, id DESC`, datasetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Analysis{}
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
