// Package tasks runs analysis tasks against stored datasets and keeps their
// audit trail.
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/bryanwahyu/datalens/internal/analytics"
	"github.com/bryanwahyu/datalens/internal/analytics/classify"
	"github.com/bryanwahyu/datalens/internal/analytics/mining"
	"github.com/bryanwahyu/datalens/internal/analytics/preprocess"
	"github.com/bryanwahyu/datalens/internal/application"
	"github.com/bryanwahyu/datalens/internal/domain/ai"
	"github.com/bryanwahyu/datalens/internal/domain/analyses"
	"github.com/bryanwahyu/datalens/internal/domain/apperr"
	"github.com/bryanwahyu/datalens/internal/domain/datasets"
	"github.com/bryanwahyu/datalens/internal/domain/tabular"
	"github.com/bryanwahyu/datalens/internal/domain/taskerrors"
)

// ProcessRequest is the body of the process endpoint.
type ProcessRequest struct {
	Filename string           `json:"filename"`
	Task     string           `json:"task"`
	Column   string           `json:"column,omitempty"`
	Column1  string           `json:"column1,omitempty"`
	Column2  string           `json:"column2,omitempty"`
	Params   analytics.Params `json:"params,omitempty"`
}

// ClassifyRequest is the body of the classify and evaluate endpoints.
type ClassifyRequest struct {
	Filename string           `json:"filename"`
	Task     string           `json:"task"`
	Params   analytics.Params `json:"params"`
}

// Explanation is the answer of Explain.
type Explanation struct {
	AnalysisID  analyses.AnalysisID `json:"analysis_id"`
	Explanation string              `json:"explanation"`
}

// Service executes tasks. Explainer may be nil, then Explain reports
// apperr.ErrNotConfigured.
type Service struct {
	Datasets  datasets.Repository
	Files     datasets.FileStore
	Analyses  analyses.Repository
	Errors    taskerrors.Repository
	Explainer ai.Explainer
	Clock     application.Clock
	Log       zerolog.Logger
}

// Process runs a preprocessing, visualization or mining task.
func (s *Service) Process(ctx context.Context, req ProcessRequest) (analytics.Result, error) {
	if req.Filename == "" || req.Task == "" {
		return nil, apperr.Invalid("Missing filename or task")
	}
	if req.Params == nil {
		req.Params = analytics.Params{}
	}
	params := struct {
		Task    string           `json:"task"`
		Column  string           `json:"column,omitempty"`
		Column1 string           `json:"column1,omitempty"`
		Column2 string           `json:"column2,omitempty"`
		Params  analytics.Params `json:"params"`
	}{req.Task, req.Column, req.Column1, req.Column2, req.Params}

	return s.run(ctx, req.Filename, req.Task, params, func(t *tabular.Table) (analytics.Result, error) {
		if mining.Supports(req.Task) {
			return mining.Run(t, req.Task, req.Params)
		}
		return preprocess.Run(t, preprocess.Request{
			Task:    req.Task,
			Column:  req.Column,
			Column1: req.Column1,
			Column2: req.Column2,
			Params:  req.Params,
		})
	})
}

// Classify trains a classifier or the regression model.
func (s *Service) Classify(ctx context.Context, req ClassifyRequest) (analytics.Result, error) {
	if req.Filename == "" || req.Task == "" || req.Params == nil {
		return nil, apperr.Invalid("Missing filename, task, or params")
	}
	return s.run(ctx, req.Filename, req.Task, stripFilename(req), func(t *tabular.Table) (analytics.Result, error) {
		return classify.Run(t, req.Task, req.Params)
	})
}

// Evaluate scores a classifier on a hold-out split.
func (s *Service) Evaluate(ctx context.Context, req ClassifyRequest) (analytics.Result, error) {
	if req.Filename == "" || req.Task == "" {
		return nil, apperr.Invalid("Missing filename or task")
	}
	if req.Params == nil {
		req.Params = analytics.Params{}
	}
	return s.run(ctx, req.Filename, "evaluate_"+req.Task, stripFilename(req), func(t *tabular.Table) (analytics.Result, error) {
		return classify.Evaluate(t, req.Task, req.Params)
	})
}

func stripFilename(req ClassifyRequest) any {
	return struct {
		Task   string           `json:"task"`
		Params analytics.Params `json:"params"`
	}{req.Task, req.Params}
}

// run loads the file, executes fn and records the outcome against the
// dataset of that file. Files uploaded outside the API have no dataset and
// are not recorded.
func (s *Service) run(ctx context.Context, filename, taskName string, params any, fn func(*tabular.Table) (analytics.Result, error)) (analytics.Result, error) {
	start := time.Now()
	log := s.Log.With().Str("filename", filename).Str("task", taskName).Logger()

	t, err := s.load(ctx, filename)
	if err != nil {
		return nil, err
	}
	ds, err := s.Datasets.GetByFilename(ctx, filename)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("lookup dataset: %w", err)
	}

	res, err := fn(t)
	if err != nil {
		log.Warn().Err(err).Dur("took", time.Since(start)).Msg("task failed")
		if ds != nil {
			s.recordError(ctx, ds.ID, taskName, err, params)
		}
		return nil, err
	}
	log.Info().Dur("took", time.Since(start)).Msg("task done")

	if ds == nil {
		return res, nil
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode task parameters: %w", err)
	}
	resultJSON, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	a := &analyses.Analysis{
		TaskName:       taskName,
		TaskParameters: paramsJSON,
		Result:         resultJSON,
		AnalysisDate:   s.Clock.Now(),
		DatasetID:      ds.ID,
	}
	if err := s.Analyses.Save(ctx, a); err != nil {
		return nil, fmt.Errorf("save analysis: %w", err)
	}
	res["analysis_id"] = a.ID
	return res, nil
}

func (s *Service) load(ctx context.Context, filename string) (*tabular.Table, error) {
	f, err := s.Files.Open(ctx, filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := tabular.Load(f)
	if errors.Is(err, tabular.ErrEmpty) {
		return nil, apperr.Invalid("Cannot read header from empty file.")
	}
	if err != nil {
		return nil, fmt.Errorf("An error occurred while reading the file: %w", err)
	}
	return t, nil
}

// recordError is best effort; a failing audit write must not hide the
// task error from the caller.
func (s *Service) recordError(ctx context.Context, id datasets.DatasetID, taskName string, cause error, params any) {
	details, _ := json.Marshal(params)
	e := &taskerrors.TaskError{
		DatasetID:   id,
		TaskName:    taskName,
		Message:     cause.Error(),
		DetailsJSON: string(details),
		CreatedAt:   s.Clock.Now(),
	}
	if err := s.Errors.Save(ctx, e); err != nil {
		s.Log.Error().Err(err).Str("task", taskName).Msg("save task error")
	}
}

// Explain asks the configured explainer to summarise one stored analysis.
func (s *Service) Explain(ctx context.Context, id analyses.AnalysisID) (*Explanation, error) {
	if s.Explainer == nil {
		return nil, apperr.NotConfigured("Explanations are not configured on this server.")
	}
	a, err := s.Analyses.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	text, err := s.Explainer.Explain(ctx, a.TaskName, a.TaskParameters, a.Result)
	if err != nil {
		return nil, fmt.Errorf("explain analysis %d: %w", id, err)
	}
	return &Explanation{AnalysisID: a.ID, Explanation: text}, nil
}
