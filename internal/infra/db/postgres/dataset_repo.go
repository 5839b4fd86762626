package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/bryanwahyu/datalens/internal/domain/apperr"
	domain "github.com/bryanwahyu/datalens/internal/domain/datasets"
)

type DatasetRepository struct {
	db *sql.DB
}

func NewDatasetRepository(db *sql.DB) *DatasetRepository {
	return &DatasetRepository{db: db}
}

// Save inserts a dataset and fills in its generated ID.
func (r *DatasetRepository) Save(ctx context.Context, d *domain.Dataset) error {
	const q = `
INSERT INTO datasets (filename, upload_date, columns)
VALUES ($1,$2,$3)
RETURNING id
`
	d.UploadDate = nowIfZero(d.UploadDate)
	cols := d.Columns
	if cols == nil {
		cols = []string{}
	}
	return r.db.QueryRowContext(ctx, q, stringOrDash(d.Filename), d.UploadDate, pq.Array(cols)).Scan(&d.ID)
}

const selectDataset = `SELECT id, filename, upload_date, columns FROM datasets`

func scanDataset(s scanner) (*domain.Dataset, error) {
	var d domain.Dataset
	if err := s.Scan(&d.ID, &d.Filename, &d.UploadDate, pq.Array(&d.Columns)); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DatasetRepository) Get(ctx context.Context, id domain.DatasetID) (*domain.Dataset, error) {
	d, err := scanDataset(r.db.QueryRowContext(ctx, selectDataset+` WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("Dataset %d not found", id)
	}
	return d, err
}

func (r *DatasetRepository) GetByFilename(ctx context.Context, filename string) (*domain.Dataset, error) {
	d, err := scanDataset(r.db.QueryRowContext(ctx, selectDataset+` WHERE filename=$1`, filename))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("Dataset %s not found", filename)
	}
	return d, err
}

func (r *DatasetRepository) List(ctx context.Context) ([]*domain.Dataset, error) {
	rows, err := r.db.QueryContext(ctx, selectDataset+` ORDER BY upload_date DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Dataset{}
	for rows.Next() {
		d, err := scanDataset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
