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

	"github.com/joycelee/atelier/internal/api"
	"github.com/joycelee/atelier/internal/apperr"
	"github.com/joycelee/atelier/internal/contentstore"
	"github.com/joycelee/atelier/internal/credentials"
	"github.com/joycelee/atelier/internal/events"
	"github.com/joycelee/atelier/internal/journal"
	"github.com/joycelee/atelier/internal/mcpserver"
	"github.com/joycelee/atelier/internal/models"
	"github.com/joycelee/atelier/internal/renderer"
	"github.com/joycelee/atelier/internal/session"
	"github.com/joycelee/atelier/internal/syncengine"
	"github.com/joycelee/atelier/internal/workspace"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("content_path", cfg.Content.FilePath),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Credential store.
	creds, err := credentials.Open(cfg.Credentials.Path)
	if err != nil {
		return fmt.Errorf("open credentials: %w", err)
	}

	// Content store client.
	store := contentstore.NewGitHub(cfg.Content.APIBaseURL, cfg.Content.FilePath, creds)

	// Sync journal; an empty path disables it.
	var jdb *journal.DB
	if cfg.SQLite.Path != "" {
		jdb, err = journal.Open(cfg.SQLite.Path)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer jdb.Close()
	}

	broker := events.NewBroker(2 * time.Second)
	defer broker.Close()

	ws := workspace.New()
	engine := syncengine.New(store, ws, jdb, broker, logger)

	// Hydrate from the content store when credentials are configured; an
	// unconfigured store starts with the empty document.
	if creds.Configured() {
		doc, err := engine.Load(ctx)
		if err != nil {
			logger.Warn("initial load failed, starting empty", slog.String("error", err.Error()))
		} else if err := ws.Load(doc); err != nil {
			return fmt.Errorf("load document: %w", err)
		}
	} else {
		logger.Info("content store not configured; use the settings flow or the setup query")
	}

	// Stage a leftover draft so edits survive a crash.
	var draft *workspace.DraftFile
	if cfg.Draft.Path != "" {
		draft = workspace.NewDraftFile(cfg.Draft.Path)
		engine.AttachDraft(draft)
		if data, err := draft.Load(); err == nil {
			if doc, derr := models.Decode(data); derr == nil {
				ws.Stage(doc)
				logger.Info("recovered unpublished draft", slog.String("path", cfg.Draft.Path))
			} else {
				logger.Warn("draft unreadable, ignoring", slog.String("error", derr.Error()))
			}
		} else if !errors.Is(err, apperr.ErrNotFound) {
			logger.Warn("draft load failed", slog.String("error", err.Error()))
		}
	}

	if app.mcp {
		logger.Info("Starting MCP server on stdio")
		return mcpserver.New(ws, engine).ServeStdio()
	}

	rend, err := renderer.New(cfg.Web.Templates)
	if err != nil {
		return fmt.Errorf("init renderer: %w", err)
	}

	sessions := session.NewManager(cfg.Editor.Hash())

	appRouter := api.NewRouter(api.Deps{
		Workspace:   ws,
		Engine:      engine,
		Sessions:    sessions,
		Credentials: creds,
		Journal:     jdb,
		Broker:      broker,
		Renderer:    rend,
		Draft:       draft,
		StaticDir:   cfg.Web.Static,
		Logger:      logger,
	})

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints.
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

	r.Mount("/", appRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Hot-reload templates on change.
	g.Go(func() error {
		if err := rend.Watch(gCtx, logger); err != nil {
			logger.Warn("template watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

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

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
