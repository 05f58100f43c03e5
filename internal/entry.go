// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/agenda/internal/api"
	"github.com/starford/agenda/internal/eventservice"
	"github.com/starford/agenda/internal/export"
	"github.com/starford/agenda/internal/importer"
	"github.com/starford/agenda/internal/index"
	"github.com/starford/agenda/internal/mcpserver"
	"github.com/starford/agenda/internal/models"
	"github.com/starford/agenda/internal/sse"
	"github.com/starford/agenda/internal/storage"
)

var errConfigRequired = errors.New("config is required")

// Run starts the HTTP server together with the import watcher and the export
// job, and blocks until ctx is cancelled or a signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("timezone", cfg.Schedule.Location().String()),
		slog.Bool("import", cfg.Import.Enabled),
		slog.Bool("export", cfg.Export.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	svc, db, err := app.openService(ctx, logger, eventservice.WithCallback(func(kind string, id models.EventID) {
		broker.PublishScheduleEvent(kind, string(id))
	}))
	if err != nil {
		return err
	}
	defer db.Close()

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Import.Enabled {
		im, _, err := app.openImporter(svc, logger)
		if err != nil {
			return err
		}
		if err := im.Sync(ctx); err != nil {
			logger.Warn("initial import failed", slog.String("error", err.Error()))
		}
		g.Go(func() error {
			return im.Watch(gCtx)
		})
	}

	if cfg.Export.Enabled {
		if err := os.MkdirAll(cfg.Export.Dir, 0o755); err != nil {
			return fmt.Errorf("create export dir: %w", err)
		}
		store, err := storage.NewFS(cfg.Export.Dir, storage.DefaultExt)
		if err != nil {
			return fmt.Errorf("init export storage: %w", err)
		}
		exp := export.New(svc, store, models.PersonID(cfg.Export.Person), logger)
		g.Go(func() error {
			return exp.Run(gCtx, cfg.Export.Cron)
		})
	}

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		// Stops the watcher and the export job when shutdown came from a signal.
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr so they do
// not corrupt the protocol stream.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	svc, db, err := app.openService(ctx, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	var (
		im    *importer.Importer
		store storage.Provider
	)
	if cfg.Import.Enabled {
		var fs *storage.FS
		if im, fs, err = app.openImporter(svc, logger); err != nil {
			return err
		}
		store = fs
		if err := im.Sync(ctx); err != nil {
			logger.Warn("initial import failed", slog.String("error", err.Error()))
		}
	}

	return mcpserver.New(svc, store, im).ServeStdio()
}

// Availability opens the persisted schedule and computes free slots for one
// phrase. It backs the "slots" command.
func Availability(ctx context.Context, phrase string, person models.PersonID, opts ...Option) (*eventservice.Availability, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	svc, db, err := app.openService(ctx, logger)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	return svc.Availability(ctx, phrase, person)
}

// openService opens the SQLite index and loads the schedule from it.
func (a *application) openService(ctx context.Context, logger *slog.Logger, extra ...eventservice.Option) (*eventservice.Service, *index.DB, error) {
	db, err := index.Open(a.config.SQLite.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init index: %w", err)
	}

	opts := append([]eventservice.Option{
		eventservice.WithClock(a.now),
		eventservice.WithLocation(a.config.Schedule.Location()),
		eventservice.WithLogger(logger),
	}, extra...)
	svc := eventservice.NewService(db, opts...)
	if err := svc.Load(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return svc, db, nil
}

// openImporter prepares the import directory.
func (a *application) openImporter(svc *eventservice.Service, logger *slog.Logger) (*importer.Importer, *storage.FS, error) {
	dir := a.config.Import.Dir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create import dir: %w", err)
	}
	fs, err := storage.NewFS(dir, storage.DefaultExt)
	if err != nil {
		return nil, nil, fmt.Errorf("init import storage: %w", err)
	}
	return importer.New(svc, fs, logger), fs, nil
}
