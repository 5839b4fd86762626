// Package memory keeps datasets, analyses and task errors in process
// memory. It backs the "memory" database driver and the service tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bryanwahyu/datalens/internal/domain/analyses"
	"github.com/bryanwahyu/datalens/internal/domain/apperr"
	"github.com/bryanwahyu/datalens/internal/domain/datasets"
	"github.com/bryanwahyu/datalens/internal/domain/taskerrors"
)

type DatasetRepository struct {
	mu     sync.RWMutex
	nextID datasets.DatasetID
	items  []*datasets.Dataset
}

func NewDatasetRepository() *DatasetRepository { return &DatasetRepository{} }

func (r *DatasetRepository) Save(_ context.Context, d *datasets.Dataset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range r.items {
		if it.Filename == d.Filename {
			return apperr.Invalid("Dataset %s already exists", d.Filename)
		}
	}
	r.nextID++
	d.ID = r.nextID
	if d.UploadDate.IsZero() {
		d.UploadDate = time.Now().UTC()
	}
	cp := *d
	cp.Columns = append([]string(nil), d.Columns...)
	r.items = append(r.items, &cp)
	return nil
}

func (r *DatasetRepository) Get(_ context.Context, id datasets.DatasetID) (*datasets.Dataset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, it := range r.items {
		if it.ID == id {
			cp := *it
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("Dataset %d not found", id)
}

func (r *DatasetRepository) GetByFilename(_ context.Context, filename string) (*datasets.Dataset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, it := range r.items {
		if it.Filename == filename {
			cp := *it
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("Dataset %s not found", filename)
}

// List is newest first; equal timestamps fall back to the higher ID.
func (r *DatasetRepository) List(_ context.Context) ([]*datasets.Dataset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*datasets.Dataset, 0, len(r.items))
	for _, it := range r.items {
		cp := *it
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].UploadDate.Equal(out[j].UploadDate) {
			return out[i].UploadDate.After(out[j].UploadDate)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

type AnalysisRepository struct {
	mu     sync.RWMutex
	nextID analyses.AnalysisID
	items  []*analyses.Analysis
}

func NewAnalysisRepository() *AnalysisRepository { return &AnalysisRepository{} }

func (r *AnalysisRepository) Save(_ context.Context, a *analyses.Analysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	a.ID = r.nextID
	if a.AnalysisDate.IsZero() {
		a.AnalysisDate = time.Now().UTC()
	}
	cp := *a
	r.items = append(r.items, &cp)
	return nil
}

func (r *AnalysisRepository) Get(_ context.Context, id analyses.AnalysisID) (*analyses.Analysis, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, it := range r.items {
		if it.ID == id {
			cp := *it
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("Analysis %d not found", id)
}

func (r *AnalysisRepository) ListByDataset(_ context.Context, datasetID datasets.DatasetID) ([]*analyses.Analysis, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*analyses.Analysis{}
	for i := len(r.items) - 1; i >= 0; i-- {
		if it := r.items[i]; it.DatasetID == datasetID {
			cp := *it
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].AnalysisDate.After(out[j].AnalysisDate) })
	return out, nil
}

type TaskErrorRepository struct {
	mu     sync.RWMutex
	nextID int64
	items  []*taskerrors.TaskError
}

func NewTaskErrorRepository() *TaskErrorRepository { return &TaskErrorRepository{} }

func (r *TaskErrorRepository) Save(_ context.Context, e *taskerrors.TaskError) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	e.ID = r.nextID
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	cp := *e
	r.items = append(r.items, &cp)
	return nil
}

func (r *TaskErrorRepository) ListByDataset(_ context.Context, datasetID datasets.DatasetID, limit int) ([]*taskerrors.TaskError, error) {
	if limit <= 0 {
		limit = 20
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*taskerrors.TaskError{}
	for i := len(r.items) - 1; i >= 0 && len(out) < limit; i-- {
		if it := r.items[i]; it.DatasetID == datasetID {
			cp := *it
			out = append(out, &cp)
		}
	}
	return out, nil
}
