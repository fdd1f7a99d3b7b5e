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

	"github.com/starford/weave/internal/api"
	"github.com/starford/weave/internal/index"
	"github.com/starford/weave/internal/mcpserver"
	"github.com/starford/weave/internal/sectionservice"
	"github.com/starford/weave/internal/sse"
	"github.com/starford/weave/internal/storage"
)

// services holds the components shared by the HTTP and MCP entry points.
type services struct {
	cfg    *Config
	logger *slog.Logger
	store  *storage.FS
	db     *index.DB
	svc    *sectionservice.Service
}

func setup(opts []Option) (*services, error) {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := app.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
	}
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("workspace_path", cfg.Workspace.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if err := os.MkdirAll(cfg.Workspace.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Workspace.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	svc := sectionservice.NewService(store, db, logger)
	svc.SetDedupeCycles(cfg.Graph.DedupeCycles)

	if err := svc.Indexer().Sync(); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	return &services{cfg: cfg, logger: logger, store: store, db: db, svc: svc}, nil
}

// Run starts the HTTP server, the SSE broker and the workspace watcher.
func Run(ctx context.Context, opts ...Option) error {
	rt, err := setup(opts)
	if err != nil {
		return err
	}
	defer rt.db.Close()

	cfg, logger, svc := rt.cfg, rt.logger, rt.svc

	broker := sse.NewBroker(cfg.Graph.ThrottleInterval)
	defer broker.Close()

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := rt.db.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the workspace and publish document events.
	g.Go(func() error {
		err := svc.Indexer().Watch(gCtx, rt.store.Root(), func(kind, path string) {
			ev := sse.DocumentEvent{Path: path}
			if kind != index.EventDeleted {
				id, errs, err := svc.DocumentStatus(gCtx, path)
				if err != nil {
					logger.Warn("watcher: document status failed",
						slog.String("path", path), slog.String("error", err.Error()))
				}
				ev.SectionID, ev.Errors = id, errs
			}
			broker.PublishDocumentEvent(kind, ev)
		})
		if err != nil {
			logger.Error("watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

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

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher exits with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdin/stdout. Stdout carries the protocol,
// so the default logger writes to stderr.
func RunMCP(ctx context.Context, opts ...Option) error {
	opts = append([]Option{WithLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))}, opts...)
	rt, err := setup(opts)
	if err != nil {
		return err
	}
	defer rt.db.Close()

	rt.logger.Info("MCP server starting", slog.String("workspace_path", rt.cfg.Workspace.Path))
	return mcpserver.New(rt.svc).Listen(ctx, os.Stdin, os.Stdout)
}
