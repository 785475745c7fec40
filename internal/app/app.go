package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"

	"EstateScanner/internal/api"
	"EstateScanner/internal/config"
	"EstateScanner/internal/crawler"
	"EstateScanner/internal/history"
	"EstateScanner/internal/logging"
	"EstateScanner/internal/schedule"
	"EstateScanner/internal/storage"
	"EstateScanner/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg         config.Config
	logger      *slog.Logger
	db          *sql.DB
	repo        *storage.Repository
	server      *http.Server
	maintenance *usecase.Maintenance
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	repo := storage.NewRepository(db)

	cache := crawler.NewResponseCache(cfg.Crawler.CacheTTL())
	pool := crawler.NewFetchPool(cfg.Crawler.Workers, cfg.Crawler.RequestDelay(), cache,
		baseLogger.With("component", "pool"))
	orchestrator := crawler.NewOrchestrator(cfg.Portal.BaseURL, cfg.Portal.PageSize, cache, pool, repo,
		baseLogger.With("component", "crawler"))

	historian := history.NewService(repo, cfg.History.Lookback(), baseLogger.With("component", "history"))

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		History:    historian,
		Crawler:    orchestrator,
		Repository: repo,
		Logger:     baseLogger.With("component", "pipeline"),
	})

	maintenance := usecase.NewMaintenance(schedule.NewTickerScheduler(cfg.Refresh.Interval()), pipeline)

	router := mux.NewRouter()
	api.NewHandler(pipeline, repo, baseLogger.With("component", "api")).Register(router)

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Application{
		cfg:         cfg,
		logger:      baseLogger,
		db:          db,
		repo:        repo,
		server:      server,
		maintenance: maintenance,
	}, nil
}

// Run migrates the schema and serves HTTP until the context is cancelled.
func (a *Application) Run(ctx context.Context) error {
	migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := a.repo.Migrate(migrateCtx); err != nil {
		return err
	}

	if err := a.maintenance.Start(ctx); err != nil {
		return fmt.Errorf("start maintenance: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.ListenAndServe()
	}()
	a.logger.Info("server listening", "addr", a.server.Addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.maintenance.Stop(shutdownCtx); err != nil {
		a.logger.Warn("stop maintenance", "error", err)
	}
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("close database", "error", err)
	}
	return nil
}
