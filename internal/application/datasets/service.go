package datasets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bryanwahyu/datalens/internal/application"
	"github.com/bryanwahyu/datalens/internal/domain/analyses"
	"github.com/bryanwahyu/datalens/internal/domain/apperr"
	domain "github.com/bryanwahyu/datalens/internal/domain/datasets"
	"github.com/bryanwahyu/datalens/internal/domain/tabular"
	"github.com/bryanwahyu/datalens/internal/domain/taskerrors"
)

// PreviewRows is how many data rows a preview carries.
const PreviewRows = 20

// Service implements the dataset use cases: upload, listing, preview and
// the per-dataset history. Safe for concurrent use.
type Service struct {
	Repo       domain.Repository
	Files      domain.FileStore
	Cache      domain.PreviewCache
	History    analyses.Repository
	Errors     taskerrors.Repository
	Clock      application.Clock
	PreviewTTL time.Duration
	Log        zerolog.Logger

	// reserve guards picking a free name through saving its Dataset row.
	reserve sync.Mutex
}

// Upload stores a CSV, records its header as a new Dataset and answers with
// the public URL. A name already taken gets a short random suffix.
func (s *Service) Upload(ctx context.Context, filename string, r io.Reader) (*domain.UploadResult, error) {
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == "/" {
		return nil, apperr.Invalid("Invalid request method or no file provided.")
	}
	if !strings.EqualFold(filepath.Ext(name), ".csv") {
		return nil, apperr.Invalid("Only .csv files can be uploaded.")
	}

	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	header, err := tabular.Header(bytes.NewReader(body))
	if errors.Is(err, tabular.ErrEmpty) {
		return nil, apperr.Invalid("Cannot read header from empty file.")
	}
	if err != nil {
		return nil, apperr.Invalid("Uploaded file is not valid CSV: %v", err)
	}

	d := &domain.Dataset{UploadDate: s.Clock.Now(), Columns: header}
	url, err := s.store(ctx, name, body, d)
	if err != nil {
		return nil, err
	}
	name = d.Filename
	if err := s.Cache.Delete(ctx, name); err != nil {
		s.Log.Warn().Err(err).Str("filename", name).Msg("preview cache delete failed")
	}
	s.Log.Info().Int64("dataset_id", int64(d.ID)).Str("filename", name).Int("columns", len(header)).Msg("dataset uploaded")

	return &domain.UploadResult{
		Message: fmt.Sprintf("File %q uploaded successfully.", name),
		FileURL: url,
		Dataset: d,
	}, nil
}

// store picks a free name, writes the file and saves d under that name.
func (s *Service) store(ctx context.Context, name string, body []byte, d *domain.Dataset) (string, error) {
	s.reserve.Lock()
	defer s.reserve.Unlock()

	name, err := s.freeName(ctx, name)
	if err != nil {
		return "", err
	}
	url, err := s.Files.Put(ctx, name, bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return "", fmt.Errorf("store upload: %w", err)
	}
	d.Filename = name
	if err := s.Repo.Save(ctx, d); err != nil {
		return "", fmt.Errorf("save dataset: %w", err)
	}
	return url, nil
}

// freeName returns name, or name with a "_xxxxxxx" suffix before the
// extension when a dataset or file already uses it.
func (s *Service) freeName(ctx context.Context, name string) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	candidate := name
	for i := 0; i < 5; i++ {
		taken, err := s.taken(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = stem + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:7] + ext
	}
	return "", fmt.Errorf("no free filename for %s", name)
}

func (s *Service) taken(ctx context.Context, name string) (bool, error) {
	_, err := s.Repo.GetByFilename(ctx, name)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return false, err
	}
	return s.Files.Exists(ctx, name)
}

// List returns every dataset, newest first.
func (s *Service) List(ctx context.Context) ([]*domain.Dataset, error) {
	return s.Repo.List(ctx)
}

// Preview reads the header and first rows of a stored file, going through
// the preview cache first. Cache failures only cost a re-read.
func (s *Service) Preview(ctx context.Context, filename string) (*domain.PreviewResponse, error) {
	if p, ok, err := s.Cache.Get(ctx, filename); err != nil {
		s.Log.Warn().Err(err).Str("filename", filename).Msg("preview cache get failed")
	} else if ok {
		return p, nil
	}

	f, err := s.Files.Open(ctx, filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header, data, err := tabular.Preview(f, PreviewRows)
	if errors.Is(err, tabular.ErrEmpty) {
		return nil, apperr.Invalid("Cannot read header from empty file.")
	}
	if err != nil {
		return nil, fmt.Errorf("An error occurred while reading the file: %w", err)
	}
	p := &domain.PreviewResponse{Filename: filename, Header: header, Data: data}
	if err := s.Cache.Set(ctx, filename, p, s.PreviewTTL); err != nil {
		s.Log.Warn().Err(err).Str("filename", filename).Msg("preview cache set failed")
	}
	return p, nil
}

// Analyses lists the task history of one dataset, newest first.
func (s *Service) Analyses(ctx context.Context, id domain.DatasetID) ([]*analyses.Analysis, error) {
	if _, err := s.Repo.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.History.ListByDataset(ctx, id)
}

// TaskErrors lists recent failed task runs of one dataset.
func (s *Service) TaskErrors(ctx context.Context, id domain.DatasetID, limit int) ([]*taskerrors.TaskError, error) {
	if _, err := s.Repo.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.Errors.ListByDataset(ctx, id, limit)
}
