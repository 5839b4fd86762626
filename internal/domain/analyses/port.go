package analyses

import (
	"context"

	"github.com/bryanwahyu/datalens/internal/domain/datasets"
)

// Repository port for persisting and querying analyses.
type Repository interface {
	Save(ctx context.Context, a *Analysis) error
	Get(ctx context.Context, id AnalysisID) (*Analysis, error)
	ListByDataset(ctx context.Context, datasetID datasets.DatasetID) ([]*Analysis, error)
}
