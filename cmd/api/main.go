package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/bryanwahyu/datalens/internal/application"
	appdatasets "github.com/bryanwahyu/datalens/internal/application/datasets"
	apptasks "github.com/bryanwahyu/datalens/internal/application/tasks"
	"github.com/bryanwahyu/datalens/internal/config"
	"github.com/bryanwahyu/datalens/internal/domain/ai"
	"github.com/bryanwahyu/datalens/internal/domain/analyses"
	"github.com/bryanwahyu/datalens/internal/domain/datasets"
	"github.com/bryanwahyu/datalens/internal/domain/taskerrors"
	openaiClient "github.com/bryanwahyu/datalens/internal/infra/ai/openai"
	"github.com/bryanwahyu/datalens/internal/infra/ai/prompt"
	"github.com/bryanwahyu/datalens/internal/infra/cache"
	"github.com/bryanwahyu/datalens/internal/infra/db/memory"
	mysqlp "github.com/bryanwahyu/datalens/internal/infra/db/mysql"
	"github.com/bryanwahyu/datalens/internal/infra/db/postgres"
	"github.com/bryanwahyu/datalens/internal/infra/httpserver"
	"github.com/bryanwahyu/datalens/internal/infra/storage"
	"github.com/bryanwahyu/datalens/internal/logger"
	"github.com/bryanwahyu/datalens/internal/middleware"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "datalens-api:", err)
		os.Exit(1)
	}
}

type repos struct {
	datasets datasets.Repository
	analyses analyses.Repository
	errors   taskerrors.Repository
}

type pinger interface{ Ping(ctx context.Context) error }

func run() error {
	// .env opsional, dipakai waktu development
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("config load: %w", err)
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		return err
	}

	ctx := context.Background()
	checkers := map[string]middleware.HealthChecker{}

	// database
	var r repos
	switch cfg.Database.Driver {
	case "mysql":
		db, err := mysqlp.Connect(ctx, cfg.DSN())
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer db.Close()
		if err := mysqlp.Migrate(ctx, db); err != nil {
			return fmt.Errorf("mysql migrate: %w", err)
		}
		r = repos{mysqlp.NewDatasetRepository(db), mysqlp.NewAnalysisRepository(db), mysqlp.NewTaskErrorRepository(db)}
		checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}
	case "postgres":
		db, err := postgres.Connect(ctx, cfg.DSN())
		if err != nil {
			return fmt.Errorf("postgres connect: %w", err)
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
		r = repos{postgres.NewDatasetRepository(db), postgres.NewAnalysisRepository(db), postgres.NewTaskErrorRepository(db)}
		checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}
	default:
		log.Warn().Msg("using in-memory repositories; records are lost on restart")
		r = repos{memory.NewDatasetRepository(), memory.NewAnalysisRepository(), memory.NewTaskErrorRepository()}
	}

	// file store
	var files interface {
		datasets.FileStore
		pinger
	}
	switch cfg.Storage.Driver {
	case "minio":
		files, err = storage.NewMinio(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.Prefix,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			return fmt.Errorf("minio init: %w", err)
		}
	default:
		files, err = storage.NewLocalDisk(cfg.Storage.Root, cfg.BaseURL())
		if err != nil {
			return fmt.Errorf("local storage init: %w", err)
		}
	}
	checkers["storage"] = middleware.CheckFunc(files.Ping)

	// preview cache
	var previews datasets.PreviewCache = cache.NewMemory()
	if cfg.Redis.URL != "" {
		rc, err := cache.NewRedis(ctx, cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("redis init: %w", err)
		}
		defer rc.Close()
		previews = rc
		checkers["cache"] = middleware.CheckFunc(rc.Ping)
	}
	ttl, _ := cfg.PreviewTTL()

	var explainer ai.Explainer
	switch cfg.AI.Provider {
	case "openai":
		explainer = openaiClient.NewClient(cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.Model)
	case "local":
		explainer = prompt.Offline{}
	}

	clock := application.SystemClock{}
	dsSvc := &appdatasets.Service{
		Repo:       r.datasets,
		Files:      files,
		Cache:      previews,
		History:    r.analyses,
		Errors:     r.errors,
		Clock:      clock,
		PreviewTTL: ttl,
		Log:        log.With().Str("component", "datasets").Logger(),
	}
	taskSvc := &apptasks.Service{
		Datasets:  r.datasets,
		Files:     files,
		Analyses:  r.analyses,
		Errors:    r.errors,
		Explainer: explainer,
		Clock:     clock,
		Log:       log.With().Str("component", "tasks").Logger(),
	}

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Capacity > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.Capacity, cfg.RateLimit.RefillRate)
		defer limiter.Stop()
	}

	mux := chi.NewRouter()
	mux.Mount("/", httpserver.NewRouter(dsSvc, taskSvc, httpserver.Options{
		Log:            log,
		APIKeys:        cfg.Auth.APIKeys,
		RateLimiter:    limiter,
		CORSOrigins:    cfg.Server.CORSOrigins,
		Checkers:       checkers,
		MaxUploadBytes: cfg.Server.MaxUploadMB << 20,
	}))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return serve(srv, log, cfg)
}

func serve(srv *http.Server, log zerolog.Logger, cfg *config.Config) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).
			Str("database", cfg.Database.Driver).
			Str("storage", cfg.Storage.Driver).
			Str("ai", cfg.AI.Provider).
			Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}
	log.Info().Msg("shutting down server...")

	timeout, _ := cfg.ShutdownTimeout()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
