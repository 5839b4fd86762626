package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/datalens/internal/analytics"
	"github.com/bryanwahyu/datalens/internal/application"
	"github.com/bryanwahyu/datalens/internal/domain/analyses"
	"github.com/bryanwahyu/datalens/internal/domain/apperr"
	"github.com/bryanwahyu/datalens/internal/domain/datasets"
	"github.com/bryanwahyu/datalens/internal/infra/ai/prompt"
	"github.com/bryanwahyu/datalens/internal/infra/db/memory"
	"github.com/bryanwahyu/datalens/internal/infra/storage"
)

const sales = `region,units,price,channel
north,10,2.5,web
south,20,3.5,store
north,30,4.5,web
east,40,5.5,store
`

type fixture struct {
	svc     *Service
	dataset *datasets.Dataset
	errs    *memory.TaskErrorRepository
}

func setup(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	files := storage.NewLocal(afero.NewMemMapFs(), "http://api.test")
	_, err := files.Put(ctx, "sales.csv", strings.NewReader(sales), int64(len(sales)))
	require.NoError(t, err)
	_, err = files.Put(ctx, "loose.csv", strings.NewReader(sales), int64(len(sales)))
	require.NoError(t, err)
	_, err = files.Put(ctx, "empty.csv", strings.NewReader(""), 0)
	require.NoError(t, err)

	repo := memory.NewDatasetRepository()
	d := &datasets.Dataset{Filename: "sales.csv", Columns: []string{"region", "units", "price", "channel"}}
	require.NoError(t, repo.Save(ctx, d))

	errs := memory.NewTaskErrorRepository()
	return fixture{
		svc: &Service{
			Datasets: repo,
			Files:    files,
			Analyses: memory.NewAnalysisRepository(),
			Errors:   errs,
			Clock:    application.FixedClock{T: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
			Log:      zerolog.Nop(),
		},
		dataset: d,
		errs:    errs,
	}
}

func TestProcessRecordsAnalysis(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	res, err := f.svc.Process(ctx, ProcessRequest{Filename: "sales.csv", Task: "central_tendency", Column: "units"})
	require.NoError(t, err)
	assert.Equal(t, 25.0, res["mean"])

	list, err := f.svc.Analyses.ListByDataset(ctx, f.dataset.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	a := list[0]
	assert.Equal(t, "central_tendency", a.TaskName)
	assert.Equal(t, a.ID, res["analysis_id"])
	assert.JSONEq(t, `{"task":"central_tendency","column":"units","params":{}}`, string(a.TaskParameters))

	var stored map[string]any
	require.NoError(t, json.Unmarshal(a.Result, &stored))
	assert.Equal(t, 25.0, stored["mean"])
	assert.NotContains(t, stored, "analysis_id")
}

func TestProcessDispatchesMining(t *testing.T) {
	f := setup(t)
	res, err := f.svc.Process(context.Background(), ProcessRequest{
		Filename: "sales.csv",
		Task:     "pagerank",
		Params:   analytics.Params{"source_column": "region", "target_column": "channel"},
	})
	require.NoError(t, err)
	assert.Equal(t, "PageRank", res["task"])
}

func TestProcessFailureIsRecorded(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, err := f.svc.Process(ctx, ProcessRequest{Filename: "sales.csv", Task: "central_tendency", Column: "nope"})
	require.EqualError(t, err, "Column 'nope' not found in the file.")

	list, err := f.errs.ListByDataset(ctx, f.dataset.ID, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "central_tendency", list[0].TaskName)
	assert.Equal(t, "Column 'nope' not found in the file.", list[0].Message)
	assert.Contains(t, list[0].DetailsJSON, `"column":"nope"`)

	history, err := f.svc.Analyses.ListByDataset(ctx, f.dataset.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestProcessWithoutDatasetRecord(t *testing.T) {
	f := setup(t)
	res, err := f.svc.Process(context.Background(), ProcessRequest{Filename: "loose.csv", Task: "dispersion_of_data", Column: "units"})
	require.NoError(t, err)
	assert.NotContains(t, res, "analysis_id")
}

func TestProcessValidation(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, err := f.svc.Process(ctx, ProcessRequest{Filename: "sales.csv"})
	assert.EqualError(t, err, "Missing filename or task")

	_, err = f.svc.Process(ctx, ProcessRequest{Filename: "gone.csv", Task: "central_tendency", Column: "units"})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	_, err = f.svc.Process(ctx, ProcessRequest{Filename: "empty.csv", Task: "central_tendency", Column: "units"})
	assert.EqualError(t, err, "Cannot read header from empty file.")

	_, err = f.svc.Process(ctx, ProcessRequest{Filename: "sales.csv", Task: "astrology"})
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
}

func TestClassify(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, err := f.svc.Classify(ctx, ClassifyRequest{Filename: "sales.csv", Task: "knn"})
	assert.EqualError(t, err, "Missing filename, task, or params")

	res, err := f.svc.Classify(ctx, ClassifyRequest{
		Filename: "sales.csv",
		Task:     "linear_regression",
		Params:   analytics.Params{"independent_attribute": "units", "dependent_attribute": "price"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Simple Linear Regression", res["task"])

	list, err := f.svc.Analyses.ListByDataset(ctx, f.dataset.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "linear_regression", list[0].TaskName)
	assert.NotContains(t, string(list[0].TaskParameters), "filename")
}

func TestEvaluate(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	res, err := f.svc.Evaluate(ctx, ClassifyRequest{
		Filename: "sales.csv",
		Task:     "naive_bayes",
		Params:   analytics.Params{"target_attribute": "channel", "test_size": 0.5},
	})
	require.NoError(t, err)
	assert.Contains(t, res, "accuracy")

	list, err := f.svc.Analyses.ListByDataset(ctx, f.dataset.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "evaluate_naive_bayes", list[0].TaskName)

	_, err = f.svc.Evaluate(ctx, ClassifyRequest{Filename: "sales.csv", Task: "naive_bayes"})
	assert.EqualError(t, err, "Target attribute not provided.")
}

func TestExplain(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, err := f.svc.Explain(ctx, 1)
	assert.True(t, errors.Is(err, apperr.ErrNotConfigured))

	f.svc.Explainer = prompt.Offline{}
	_, err = f.svc.Explain(ctx, 99)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	res, err := f.svc.Process(ctx, ProcessRequest{Filename: "sales.csv", Task: "central_tendency", Column: "units"})
	require.NoError(t, err)
	id := res["analysis_id"].(analyses.AnalysisID)

	out, err := f.svc.Explain(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, out.AnalysisID)
	assert.Contains(t, out.Explanation, "Measures of Central Tendency finished.")
}
