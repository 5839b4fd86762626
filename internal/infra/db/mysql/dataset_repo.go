package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

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
INSERT INTO datasets (filename, upload_date, columns_json)
VALUES (?,?,?)
`
	cols, err := json.Marshal(d.Columns)
	if err != nil {
		return err
	}
	d.UploadDate = nowIfZero(d.UploadDate)
	res, err := r.db.ExecContext(ctx, q, stringOrDash(d.Filename), d.UploadDate, string(cols))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = domain.DatasetID(id)
	return nil
}

const selectDataset = `SELECT id, filename, upload_date, columns_json FROM datasets`

type scanner interface {
	Scan(dest ...any) error
}

func scanDataset(s scanner) (*domain.Dataset, error) {
	var d domain.Dataset
	var cols string
	if err := s.Scan(&d.ID, &d.Filename, &d.UploadDate, &cols); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(cols), &d.Columns); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DatasetRepository) Get(ctx context.Context, id domain.DatasetID) (*domain.Dataset, error) {
	d, err := scanDataset(r.db.QueryRowContext(ctx, selectDataset+` WHERE id=? LIMIT 1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("Dataset %d not found", id)
	}
	return d, err
}

func (r *DatasetRepository) GetByFilename(ctx context.Context, filename string) (*domain.Dataset, error) {
	d, err := scanDataset(r.db.QueryRowContext(ctx, selectDataset+` WHERE filename=? LIMIT 1`, filename))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("Dataset %s not found", filename)
	}
	return d, err
}

// List returns every dataset, newest upload first.
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
