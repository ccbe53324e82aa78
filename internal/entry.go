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

	"github.com/starford/fiche/internal/anthropic"
	"github.com/starford/fiche/internal/api"
	"github.com/starford/fiche/internal/classify"
	"github.com/starford/fiche/internal/fichesvc"
	"github.com/starford/fiche/internal/history"
	"github.com/starford/fiche/internal/mcpserver"
	"github.com/starford/fiche/internal/models"
	"github.com/starford/fiche/internal/prompt"
	"github.com/starford/fiche/internal/sse"
	"github.com/starford/fiche/internal/worksession"
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
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("prompts_dir", cfg.Prompts.Dir),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Initialize the history store.
	store, err := history.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init history: %w", err)
	}
	defer store.Close()

	// The credential and model tier come from the stored settings first,
	// then from the config file. Both are consulted on every call so
	// settings changes apply without a restart.
	keyFn := func() string {
		if settings, err := store.Settings(); err == nil && settings.APIKey != "" {
			return settings.APIKey
		}
		return cfg.Anthropic.APIKey
	}
	modelFn := func() string {
		tier := cfg.Anthropic.Model
		if settings, err := store.Settings(); err == nil && settings.Model != "" {
			tier = settings.Model
		}
		if tier == history.ModelHaiku {
			return anthropic.ModelEconomy
		}
		return anthropic.ModelGeneration
	}

	client := anthropic.New(keyFn)

	// MCP mode: stdio transport, no HTTP server.
	if app.mcpMode {
		logger.Info("Starting MCP server on stdio")
		return mcpserver.New(store, client, modelFn).ServeStdio()
	}

	// Per-subject instruction files, hot-reloaded. Subjects without a
	// file fall back to the instructions stored in the settings.
	instructions, err := prompt.LoadInstructions(cfg.Prompts.Dir)
	if err != nil {
		return fmt.Errorf("load instructions: %w", err)
	}
	instructions.SetFallback(func(s models.Subject) string {
		settings, err := store.Settings()
		if err != nil {
			return ""
		}
		return settings.CustomInstructions[s]
	})

	// SSE broker.
	broker := sse.NewBroker()
	defer broker.Close()

	detector := classify.New(client, logger)
	svc := fichesvc.New(client, detector, instructions, broker, modelFn, logger)
	engine := worksession.NewEngine(client, modelFn)

	handler := api.NewHandler(svc, engine, store, client, broker, api.Defaults{
		FontSize: cfg.Defaults.FontSize,
		Subject:  models.Subject(cfg.Defaults.Subject),
	})
	apiRouter := api.NewRouter(handler, cfg.Auth.AuthEnabled(), cfg.Auth.Token, http.HandlerFunc(broker.ServeHTTP))

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
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the instruction directory for edits.
	g.Go(func() error {
		return instructions.Watch(gCtx, logger)
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
