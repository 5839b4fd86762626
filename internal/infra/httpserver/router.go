package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	appdatasets "github.com/bryanwahyu/datalens/internal/application/datasets"
	apptasks "github.com/bryanwahyu/datalens/internal/application/tasks"
	domai "github.com/bryanwahyu/datalens/internal/domain/ai"
	"github.com/bryanwahyu/datalens/internal/domain/analyses"
	"github.com/bryanwahyu/datalens/internal/domain/apperr"
	"github.com/bryanwahyu/datalens/internal/domain/datasets"
	"github.com/bryanwahyu/datalens/internal/middleware"
)

const (
	defaultMaxUpload = 32 << 20
	jsonBodyLimit    = 1 << 20
)

// Options tunes the router. Zero values disable auth, rate limiting and CORS.
type Options struct {
	Log            zerolog.Logger
	APIKeys        map[string]string
	RateLimiter    *middleware.RateLimiter
	CORSOrigins    []string
	Checkers       map[string]middleware.HealthChecker
	MaxUploadBytes int64
}

type Router struct {
	datasets  *appdatasets.Service
	tasks     *apptasks.Service
	log       zerolog.Logger
	maxUpload int64
}

func NewRouter(ds *appdatasets.Service, ts *apptasks.Service, opts Options) http.Handler {
	r := &Router{datasets: ds, tasks: ts, log: opts.Log, maxUpload: opts.MaxUploadBytes}
	if r.maxUpload <= 0 {
		r.maxUpload = defaultMaxUpload
	}

	mux := chi.NewRouter()
	mux.Use(chimw.Recoverer)
	mux.Use(middleware.RequestID)
	mux.Use(middleware.Logging(opts.Log))
	mux.Use(middleware.MetricsMiddleware)
	if len(opts.CORSOrigins) > 0 {
		mux.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}
	mux.Use(middleware.APIKeyAuth(opts.APIKeys))
	if opts.RateLimiter != nil {
		mux.Use(middleware.RateLimitMiddleware(opts.RateLimiter))
	}
	// "/api/datasets/" dan "/api/datasets" sama saja
	mux.Use(chimw.StripSlashes)

	mux.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, "Not found.")
	})
	mux.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed.")
	})

	mux.Get("/health", middleware.HealthHandler(opts.Checkers))
	mux.Get("/health/live", middleware.LivenessHandler)
	mux.Get("/health/ready", middleware.ReadinessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)
	mux.Get("/media/{filename}", r.wrap(r.handleMedia))

	mux.Route("/api", func(rt chi.Router) {
		rt.Get("/datasets", r.wrap(r.handleListDatasets))
		rt.Get("/datasets/{id}/analyses", r.wrap(r.handleAnalyses))
		rt.Get("/datasets/{id}/errors", r.wrap(r.handleTaskErrors))
		rt.Post("/upload", r.wrap(r.handleUpload))
		rt.Get("/preview/{filename}", r.wrap(r.handlePreview))

		rt.Group(func(rt chi.Router) {
			rt.Use(middleware.MaxBodyBytes(jsonBodyLimit))
			rt.Post("/process", r.wrap(r.handleProcess))
			rt.Post("/classify", r.wrap(r.handleClassify))
			rt.Post("/evaluate", r.wrap(r.handleEvaluate))
			rt.Post("/analyses/{id}/explain", r.wrap(r.handleExplain))
		})
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		status := statusOf(err)
		if status >= http.StatusInternalServerError {
			r.log.Error().Err(err).Str("request_id", middleware.RequestIDFromContext(req.Context())).Msg("request failed")
		}
		middleware.WriteError(w, status, err.Error())
	}
}

func statusOf(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, apperr.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound), errors.Is(err, sql.ErrNoRows):
		return http.StatusNotFound
	case errors.Is(err, domai.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, apperr.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}

// writeJSON encodes v before committing status, so an encoding failure can
// still be answered with a 500.
func writeJSON(w http.ResponseWriter, status int, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// client gone; nothing left to report
	_, _ = w.Write(append(b, '\n'))
	return nil
}

func decode(req *http.Request, v any) error {
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return apperr.Invalid("Invalid JSON body: %v", err)
	}
	return nil
}

func filenameParam(req *http.Request) (string, error) {
	name := chi.URLParam(req, "filename")
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	if err := middleware.ValidateFilename(name); err != nil {
		return "", apperr.Invalid("%s", err.Error())
	}
	return name, nil
}

func idParam(req *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Invalid("Invalid id: %s", chi.URLParam(req, "id"))
	}
	return id, nil
}

// GET /api/datasets/
func (r *Router) handleListDatasets(w http.ResponseWriter, req *http.Request) error {
	list, err := r.datasets.List(req.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// POST /api/upload/ (multipart, field "dataset")
func (r *Router) handleUpload(w http.ResponseWriter, req *http.Request) error {
	req.Body = http.MaxBytesReader(w, req.Body, r.maxUpload)
	file, hdr, err := req.FormFile("dataset")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return apperr.Invalid("Invalid request method or no file provided.")
	}
	defer file.Close()

	name := filepath.Base(hdr.Filename)
	if err := middleware.ValidateFilename(name); err != nil {
		return apperr.Invalid("%s", err.Error())
	}
	res, err := r.datasets.Upload(req.Context(), name, file)
	if err != nil {
		return err
	}
	middleware.IncrementUploads()
	return writeJSON(w, http.StatusCreated, res)
}

// GET /api/preview/{filename}/
func (r *Router) handlePreview(w http.ResponseWriter, req *http.Request) error {
	name, err := filenameParam(req)
	if err != nil {
		return err
	}
	p, err := r.datasets.Preview(req.Context(), name)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, p)
}

// GET /media/{filename}
func (r *Router) handleMedia(w http.ResponseWriter, req *http.Request) error {
	name, err := filenameParam(req)
	if err != nil {
		return err
	}
	f, err := r.datasets.Files.Open(req.Context(), name)
	if err != nil {
		return err
	}
	defer f.Close()
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	_, err = io.Copy(w, f)
	return err
}

// POST /api/process/
func (r *Router) handleProcess(w http.ResponseWriter, req *http.Request) error {
	var body apptasks.ProcessRequest
	if err := decode(req, &body); err != nil {
		return err
	}
	return r.task(w, body.Task, func() (any, error) { return r.tasks.Process(req.Context(), body) })
}

// POST /api/classify/
func (r *Router) handleClassify(w http.ResponseWriter, req *http.Request) error {
	var body apptasks.ClassifyRequest
	if err := decode(req, &body); err != nil {
		return err
	}
	return r.task(w, body.Task, func() (any, error) { return r.tasks.Classify(req.Context(), body) })
}

// POST /api/evaluate/
func (r *Router) handleEvaluate(w http.ResponseWriter, req *http.Request) error {
	var body apptasks.ClassifyRequest
	if err := decode(req, &body); err != nil {
		return err
	}
	return r.task(w, "evaluate_"+body.Task, func() (any, error) { return r.tasks.Evaluate(req.Context(), body) })
}

func (r *Router) task(w http.ResponseWriter, name string, run func() (any, error)) error {
	res, err := run()
	middleware.RecordTask(name, err == nil)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, res)
}

// GET /api/datasets/{id}/analyses/
func (r *Router) handleAnalyses(w http.ResponseWriter, req *http.Request) error {
	id, err := idParam(req)
	if err != nil {
		return err
	}
	list, err := r.datasets.Analyses(req.Context(), datasets.DatasetID(id))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /api/datasets/{id}/errors/?limit=20
func (r *Router) handleTaskErrors(w http.ResponseWriter, req *http.Request) error {
	id, err := idParam(req)
	if err != nil {
		return err
	}
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	list, err := r.datasets.TaskErrors(req.Context(), datasets.DatasetID(id), middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// POST /api/analyses/{id}/explain/
func (r *Router) handleExplain(w http.ResponseWriter, req *http.Request) error {
	id, err := idParam(req)
	if err != nil {
		return err
	}
	res, err := r.tasks.Explain(req.Context(), analyses.AnalysisID(id))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, res)
}
