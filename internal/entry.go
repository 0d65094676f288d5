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

	"github.com/starford/skinlens/internal/addon"
	"github.com/starford/skinlens/internal/api"
	"github.com/starford/skinlens/internal/index"
	"github.com/starford/skinlens/internal/mcpserver"
	"github.com/starford/skinlens/internal/models"
	"github.com/starford/skinlens/internal/resource"
	"github.com/starford/skinlens/internal/skin"
	"github.com/starford/skinlens/internal/skinservice"
	"github.com/starford/skinlens/internal/sse"
	"github.com/starford/skinlens/internal/storage"
	"github.com/starford/skinlens/internal/watch"
)

// Runtime is a loaded skin together with the resources backing it.
type Runtime struct {
	Service *skinservice.Service
	Store   storage.Provider
	Logger  *slog.Logger

	cfg *Config
	db  *index.DB
}

// Close releases the index database.
func (rt *Runtime) Close() error {
	if rt.db == nil {
		return nil
	}
	return rt.db.Close()
}

func newApplication(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stdout, version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// Load builds the include tables, resources and index of the configured skin.
// The caller must Close the returned Runtime.
func Load(_ context.Context, opts ...Option) (*Runtime, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	return app.load()
}

func (a *application) load() (*Runtime, error) {
	cfg := a.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("skin_path", cfg.Skin.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, err := storage.NewFS(cfg.Skin.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	folders := cfg.Skin.Folders
	var defaultFolder string
	manifest, err := addon.Load(store)
	switch {
	case err == nil:
		logger.Info("skin manifest loaded",
			slog.String("id", manifest.ID),
			slog.String("version", manifest.Version),
			slog.String("gui_version", manifest.GUIVersion()),
			slog.String("api_release", manifest.APIRelease()))
		defaultFolder = manifest.DefaultFolder()
		if len(folders) == 0 {
			folders = manifest.Folders()
		}
	case len(folders) == 0:
		return nil, fmt.Errorf("load skin manifest: %w", err)
	default:
		logger.Warn("skin manifest unavailable, using configured folders", slog.String("error", err.Error()))
	}

	sk := skin.New(store, folders, skin.WithLogger(logger))
	res := resource.New(store, folders, resource.WithLogger(logger))

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	svc := skinservice.NewService(store, sk, res,
		skinservice.WithLogger(logger),
		skinservice.WithIndex(db),
		skinservice.WithDefaultFolder(defaultFolder))

	// Run initial sync.
	if err := svc.SyncIndex(context.Background()); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	return &Runtime{Service: svc, Store: store, Logger: logger, cfg: cfg, db: db}, nil
}

// watcher returns the configured file watcher, or nil when watching is off.
func (rt *Runtime) watcher(cb watch.Callback) *watch.Watcher {
	if !rt.cfg.Watch.Enabled {
		return nil
	}
	return watch.New(rt.Store.Root(), rt.Service,
		watch.WithLogger(rt.Logger),
		watch.WithDebounce(rt.cfg.Watch.Debounce),
		watch.WithCallback(cb))
}

// Run starts the HTTP server, the SSE broker and the file watcher.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := app.load()
	if err != nil {
		return err
	}
	defer rt.Close()

	cfg := app.config
	logger := rt.Logger

	// SSE broker.
	broker := sse.NewBroker(cfg.Events.Throttle, sse.WithKeepAlive(cfg.Events.KeepAlive))
	defer broker.Close()

	apiRouter := api.NewRouter(rt.Service, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker, rt.Store.Root())

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
		if len(rt.Service.Folders(context.Background())) == 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"no folders"}`))
			return
		}
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

	g, gCtx := errgroup.WithContext(ctx)

	// Start file watcher with SSE callback.
	if w := rt.watcher(func(res models.ReloadResult) { broker.PublishReload(res) }); w != nil {
		g.Go(func() error {
			return w.Run(gCtx)
		})
	}

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

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr unless
// WithLogOutput says otherwise.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	rt, err := app.load()
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if w := rt.watcher(nil); w != nil {
		go func() {
			if err := w.Run(ctx); err != nil {
				rt.Logger.Error("watcher failed", slog.String("error", err.Error()))
			}
		}()
	}

	return mcpserver.New(rt.Service, app.version).ServeStdio()
}
