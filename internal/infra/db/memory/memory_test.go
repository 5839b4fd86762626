package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/datalens/internal/domain/analyses"
	"github.com/bryanwahyu/datalens/internal/domain/apperr"
	"github.com/bryanwahyu/datalens/internal/domain/datasets"
	"github.com/bryanwahyu/datalens/internal/domain/taskerrors"
)

func TestDatasetRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewDatasetRepository()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	a := &datasets.Dataset{Filename: "a.csv", UploadDate: base, Columns: []string{"x"}}
	b := &datasets.Dataset{Filename: "b.csv", UploadDate: base.Add(time.Hour)}
	require.NoError(t, repo.Save(ctx, a))
	require.NoError(t, repo.Save(ctx, b))
	assert.Equal(t, datasets.DatasetID(1), a.ID)
	assert.Equal(t, datasets.DatasetID(2), b.ID)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b.csv", list[0].Filename)

	got, err := repo.GetByFilename(ctx, "a.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, got.Columns)

	_, err = repo.Get(ctx, 99)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	err = repo.Save(ctx, &datasets.Dataset{Filename: "a.csv"})
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
}

func TestAnalysisRepositoryNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewAnalysisRepository()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Save(ctx, &analyses.Analysis{TaskName: "one", DatasetID: 1, AnalysisDate: base}))
	require.NoError(t, repo.Save(ctx, &analyses.Analysis{TaskName: "other", DatasetID: 2, AnalysisDate: base}))
	require.NoError(t, repo.Save(ctx, &analyses.Analysis{TaskName: "two", DatasetID: 1, AnalysisDate: base.Add(time.Minute)}))

	list, err := repo.ListByDataset(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "two", list[0].TaskName)
	assert.Equal(t, "one", list[1].TaskName)

	got, err := repo.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "other", got.TaskName)
}

func TestTaskErrorRepositoryLimit(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskErrorRepository()
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Save(ctx, &taskerrors.TaskError{DatasetID: 3, TaskName: "knn", Message: "boom"}))
	}
	list, err := repo.ListByDataset(ctx, 3, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(5), list[0].ID)

	list, err = repo.ListByDataset(ctx, 4, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}
