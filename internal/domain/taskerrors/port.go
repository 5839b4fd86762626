package taskerrors

import (
	"context"

	"github.com/bryanwahyu/datalens/internal/domain/datasets"
)

// Repository defines persistence for task errors.
type Repository interface {
	Save(ctx context.Context, e *TaskError) error
	ListByDataset(ctx context.Context, datasetID datasets.DatasetID, limit int) ([]*TaskError, error)
}
