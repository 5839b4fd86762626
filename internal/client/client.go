// Package client is the typed HTTP façade over the datalens REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/bryanwahyu/datalens/internal/application/tasks"
	"github.com/bryanwahyu/datalens/internal/domain/analyses"
	"github.com/bryanwahyu/datalens/internal/domain/datasets"
	"github.com/bryanwahyu/datalens/internal/domain/taskerrors"
)

// APIError is a non-2xx answer. Message is the body's "error" field, or
// "Failed" when the body carries none.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string { return e.Message }

// UploadResponse is the answer of Upload.
type UploadResponse struct {
	Message string `json:"message"`
	FileURL string `json:"file_url"`
}

// Result is a task answer as decoded JSON.
type Result = map[string]any

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	retryMax   int
	baseDelay  time.Duration
	maxDelay   time.Duration
	inflight   atomic.Int32
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.httpClient = h } }

func WithAPIKey(key string) Option { return func(c *Client) { c.apiKey = key } }

// WithRetry sets how often GETs are retried and the backoff bounds.
func WithRetry(max int, base, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryMax, c.baseDelay, c.maxDelay = max, base, maxDelay
	}
}

// New returns a client for the server at baseURL, e.g. http://127.0.0.1:8000.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		retryMax:   3,
		baseDelay:  300 * time.Millisecond,
		maxDelay:   3 * time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// InFlight reports whether a call is outstanding.
func (c *Client) InFlight() bool { return c.inflight.Load() > 0 }

func (c *Client) ListDatasets(ctx context.Context) ([]datasets.Dataset, error) {
	var out []datasets.Dataset
	if err := c.get(ctx, "/api/datasets/", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Preview(ctx context.Context, filename string) (*datasets.PreviewResponse, error) {
	var out datasets.PreviewResponse
	if err := c.get(ctx, "/api/preview/"+url.PathEscape(filename)+"/", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Analyses(ctx context.Context, datasetID int64) ([]analyses.Analysis, error) {
	var out []analyses.Analysis
	if err := c.get(ctx, fmt.Sprintf("/api/datasets/%d/analyses/", datasetID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Errors(ctx context.Context, datasetID int64, limit int) ([]taskerrors.TaskError, error) {
	p := fmt.Sprintf("/api/datasets/%d/errors/", datasetID)
	if limit > 0 {
		p += "?limit=" + strconv.Itoa(limit)
	}
	var out []taskerrors.TaskError
	if err := c.get(ctx, p, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Upload sends r as the multipart field "dataset".
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (*UploadResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("dataset", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(fw, r); err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	var out UploadResponse
	if err := c.post(ctx, "/api/upload/", mw.FormDataContentType(), &buf, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Process(ctx context.Context, req tasks.ProcessRequest) (Result, error) {
	return c.postTask(ctx, "/api/process/", req)
}

func (c *Client) Classify(ctx context.Context, req tasks.ClassifyRequest) (Result, error) {
	return c.postTask(ctx, "/api/classify/", req)
}

func (c *Client) Evaluate(ctx context.Context, req tasks.ClassifyRequest) (Result, error) {
	return c.postTask(ctx, "/api/evaluate/", req)
}

func (c *Client) Explain(ctx context.Context, analysisID int64) (*tasks.Explanation, error) {
	var out tasks.Explanation
	if err := c.post(ctx, fmt.Sprintf("/api/analyses/%d/explain/", analysisID), "application/json", strings.NewReader("{}"), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) postTask(ctx context.Context, p string, body any) (Result, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	var out Result
	if err := c.post(ctx, p, "application/json", bytes.NewReader(b), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// post never retries; a task or upload may already have run server side.
func (c *Client) post(ctx context.Context, p, contentType string, body io.Reader, out any) error {
	c.inflight.Add(1)
	defer c.inflight.Add(-1)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+p, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	return c.do(req, out)
}

// get retries network errors and 5xx answers with exponential backoff.
func (c *Client) get(ctx context.Context, p string, out any) error {
	c.inflight.Add(1)
	defer c.inflight.Add(-1)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.baseDelay
	b.MaxInterval = c.maxDelay
	policy := backoff.WithMaxRetries(b, uint64(max(0, c.retryMax)))

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+p, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		err = c.do(req, out)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode < 500 {
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}
	return backoff.Retry(op, backoff.WithContext(policy, ctx))
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: "Failed"}
		var raw struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &raw) == nil && raw.Error != "" {
			apiErr.Message = raw.Error
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// FilenameFromURL returns the URL-decoded last path segment of a file_url.
func FilenameFromURL(fileURL string) (string, error) {
	u, err := url.Parse(fileURL)
	if err != nil {
		return "", fmt.Errorf("parse file url: %w", err)
	}
	name := path.Base(strings.TrimRight(u.Path, "/"))
	if name == "." || name == "/" || name == "" {
		return "", fmt.Errorf("no filename in %q", fileURL)
	}
	return name, nil
}
