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
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/livetable/internal/config"
	"github.com/kailas-cloud/livetable/internal/db"
	dbValkey "github.com/kailas-cloud/livetable/internal/db/valkey"
	"github.com/kailas-cloud/livetable/internal/domain/document"
	domview "github.com/kailas-cloud/livetable/internal/domain/view"
	"github.com/kailas-cloud/livetable/internal/index"
	logpkg "github.com/kailas-cloud/livetable/internal/logger"
	"github.com/kailas-cloud/livetable/internal/metrics"
	"github.com/kailas-cloud/livetable/internal/repository/corpus"
	chiTransport "github.com/kailas-cloud/livetable/internal/transport/chi"
	healthuc "github.com/kailas-cloud/livetable/internal/usecase/health"
	"github.com/kailas-cloud/livetable/internal/usecase/table"
	"github.com/kailas-cloud/livetable/internal/usecase/view"
	"github.com/kailas-cloud/livetable/internal/version"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Long: `Runs the HTTP API. Configuration is read from config/<ENV>.yaml (ENV defaults to local).
The corpus lives in memory or in Valkey, depending on index.backend.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

// corpusIndex is the versioned index the server reads and writes.
type corpusIndex interface {
	view.Index
	chiTransport.DocumentWriter
}

func serve(ctx context.Context) error {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting livetable API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("index_backend", cfg.Index.Backend),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterViewMetrics()

	idx, pinger, closeIndex, err := openIndex(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeIndex()

	pool, err := view.NewPool(cfg.Views.Workers, logger)
	if err != nil {
		return fmt.Errorf("create evaluation pool: %w", err)
	}

	views := view.NewManager(idx, table.New(), pool, renderSettings(cfg.Render), cfg.Views.MaxOpen, logger)
	healthSvc := healthuc.New(idx, pinger)
	server := chiTransport.NewServer(views, idx, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-quit:
		logger.Info("Received shutdown signal")
	case err := <-serveErr:
		logger.Error("HTTP server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	views.CloseAll()
	if err := pool.Close(time.Duration(cfg.HTTP.ShutdownSec) * time.Second); err != nil {
		logger.Warn("Evaluation pool did not drain", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
	return nil
}

// openIndex builds the configured corpus index and loads the seed file into an empty corpus.
// pinger is nil for the memory backend.
func openIndex(
	ctx context.Context, cfg config.Config, logger *zap.Logger,
) (idx corpusIndex, pinger db.Pinger, closeFn func(), err error) {
	var seed []document.Document
	if cfg.Index.SeedFile != "" {
		seed, err = index.LoadSeed(cfg.Index.SeedFile)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("load seed: %w", err)
		}
	}

	if cfg.Index.Backend == config.BackendMemory {
		logger.Info("Using in-memory index", zap.Int("seed_documents", len(seed)))
		mem := index.NewMemory(seed...)
		return mem, nil, mem.Close, nil
	}

	store, err := dbValkey.NewStore(dbValkey.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create database store: %w", err)
	}

	// Wait for database to be ready
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, nil, nil, fmt.Errorf("database not ready: %w", err)
	}
	logger.Info("Connected to database", zap.Strings("db_addrs", cfg.Database.Addrs))

	repo := corpus.New(store, cfg.Database.KeyPrefix, logger)
	if err := repo.Start(ctx); err != nil {
		store.Close()
		return nil, nil, nil, fmt.Errorf("start corpus: %w", err)
	}
	closeFn = func() {
		repo.Close()
		store.Close()
	}

	if len(seed) > 0 && repo.CurrentVersion() == 0 {
		v, err := repo.Put(ctx, seed...)
		if err != nil {
			closeFn()
			return nil, nil, nil, fmt.Errorf("seed corpus: %w", err)
		}
		logger.Info("Seeded corpus", zap.Int("documents", len(seed)), zap.Uint64("version", v))
	}
	return repo, store, closeFn, nil
}

func renderSettings(r config.RenderConfig) domview.Settings {
	s := domview.DefaultSettings()
	if r.WarnOnEmptyResult != nil {
		s.WarnOnEmptyResult = *r.WarnOnEmptyResult
	}
	if r.TableIDColumnName != "" {
		s.TableIDColumnName = r.TableIDColumnName
	}
	return s
}
