// Package internal provides the application entry points: one per CLI command.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/notepub/internal/api"
	"github.com/starford/notepub/internal/apperr"
	"github.com/starford/notepub/internal/docservice"
	"github.com/starford/notepub/internal/index"
	"github.com/starford/notepub/internal/mcpserver"
	"github.com/starford/notepub/internal/pipeline"
	"github.com/starford/notepub/internal/sse"
	"github.com/starford/notepub/internal/storage"
	"github.com/starford/notepub/internal/watch"
)

// newApplication applies opts and installs the default logger.
// logOut receives JSON logs unless WithLogger was given.
func newApplication(logOut io.Writer, opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if app.logger == nil {
		app.logger = slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
			Level: app.config.App.LogLevel,
		}))
	}
	slog.SetDefault(app.logger)
	return app, nil
}

// workspace bundles the resources shared by build, watch and serve.
type workspace struct {
	cfg      *Config
	logger   *slog.Logger
	output   *storage.FS
	db       *index.DB
	pipeline *pipeline.Pipeline
}

func openWorkspace(app *application) (*workspace, error) {
	cfg := app.config
	app.logger.Info("Configuration loaded",
		slog.String("source_path", cfg.Source.Path),
		slog.String("output_path", cfg.Output.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Nothing is created until the source root is known to exist.
	info, err := os.Stat(cfg.Source.Path)
	if err != nil {
		return nil, fmt.Errorf("init source: %w: %w", apperr.ErrStructural, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("init source: %w: not a directory: %s", apperr.ErrStructural, cfg.Source.Path)
	}

	output, err := storage.CreateFS(cfg.Output.Path)
	if err != nil {
		return nil, fmt.Errorf("init output: %w", err)
	}
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init manifest: %w: %w", apperr.ErrStructural, err)
	}
	p := pipeline.New(cfg.PipelineOptions(), output, app.logger, pipeline.WithRecorder(db))
	return &workspace{cfg: cfg, logger: app.logger, output: output, db: db, pipeline: p}, nil
}

func (ws *workspace) Close() error {
	return ws.db.Close()
}

// Build runs the pipeline once and records the result in the manifest.
// Only structural failures are returned as errors; per-document failures
// are in the report.
func Build(ctx context.Context, opts ...Option) (*pipeline.Report, error) {
	app, err := newApplication(os.Stdout, opts)
	if err != nil {
		return nil, err
	}
	ws, err := openWorkspace(app)
	if err != nil {
		return nil, err
	}
	defer ws.Close()

	return ws.pipeline.Run(ctx)
}

// summarize converts a run report into the build event payload.
func summarize(r *pipeline.Report) sse.BuildSummary {
	if r == nil {
		return sse.BuildSummary{}
	}
	return sse.BuildSummary{
		Published:    r.Published,
		Unchanged:    r.Unchanged,
		Skipped:      r.Skipped,
		Failed:       r.Failed,
		LinkWarnings: len(r.LinkWarnings),
		DurationMS:   r.Duration.Milliseconds(),
	}
}

// rebuildFunc runs the pipeline and forwards the outcome to broker, if any.
func (ws *workspace) rebuildFunc(broker *sse.Broker) watch.RebuildFunc {
	return func(ctx context.Context) error {
		report, err := ws.pipeline.Run(ctx)
		if broker != nil {
			broker.PublishBuild(summarize(report), err)
		}
		return err
	}
}

func (ws *workspace) watchOptions() watch.Options {
	opts := ws.cfg.PipelineOptions()
	return watch.Options{Scan: opts.Scan}
}

// Watch builds once and then rebuilds whenever the source tree changes,
// until ctx is cancelled or SIGINT/SIGTERM is received.
func Watch(ctx context.Context, opts ...Option) error {
	app, err := newApplication(os.Stdout, opts)
	if err != nil {
		return err
	}
	ws, err := openWorkspace(app)
	if err != nil {
		return err
	}
	defer ws.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := ws.pipeline.Run(ctx); err != nil {
		return err
	}
	return watch.Watch(ctx, ws.cfg.Source.Path, ws.watchOptions(), ws.logger, ws.rebuildFunc(nil))
}

// NewHTTPHandler assembles the preview server: health checks, the JSON API
// under /api (with SSE at /api/events when broker is non-nil) and the
// published pages at the root.
func NewHTTPHandler(cfg *Config, svc *docservice.Service, output storage.Provider, broker *sse.Broker) http.Handler {
	var sseHandler http.Handler
	if broker != nil {
		sseHandler = broker
	}
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, sseHandler)

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

	// Published pages.
	r.Handle("/*", api.NewPageHandler(output, cfg.Output.BasePath))

	return r
}

// Serve builds once, then runs the watcher and the preview HTTP server until
// ctx is cancelled or SIGINT/SIGTERM is received.
func Serve(ctx context.Context, opts ...Option) error {
	app, err := newApplication(os.Stdout, opts)
	if err != nil {
		return err
	}
	ws, err := openWorkspace(app)
	if err != nil {
		return err
	}
	defer ws.Close()
	cfg, logger := ws.cfg, ws.logger

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()
	rebuild := ws.rebuildFunc(broker)

	// Initial build.
	if err := rebuild(ctx); err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           NewHTTPHandler(cfg, docservice.New(ws.db, ws.output), ws.output, broker),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Rebuild on source changes.
	g.Go(func() error {
		return watch.Watch(gCtx, cfg.Source.Path, ws.watchOptions(), logger, rebuild)
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

		// Stop the watcher as well when a signal arrived.
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

// ServeMCP runs the MCP server on stdin/stdout. Logs go to stderr so they
// do not corrupt the protocol stream.
func ServeMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(os.Stderr, opts)
	if err != nil {
		return err
	}
	ws, err := openWorkspace(app)
	if err != nil {
		return err
	}
	defer ws.Close()

	srv := mcpserver.New(docservice.New(ws.db, ws.output), ws.pipeline)
	ws.logger.Info("MCP server starting on stdio")
	return srv.ServeStdio()
}

// Push mirrors the output tree to dest: changed objects are copied and
// objects no longer published are deleted.
func Push(ctx context.Context, dest string, opts ...Option) (storage.MirrorStats, error) {
	app, err := newApplication(os.Stdout, opts)
	if err != nil {
		return storage.MirrorStats{}, err
	}
	if dest == "" {
		dest = app.config.Push.Path
	}
	if dest == "" {
		return storage.MirrorStats{}, fmt.Errorf("push: destination is required")
	}

	src, err := storage.NewFS(app.config.Output.Path)
	if err != nil {
		return storage.MirrorStats{}, fmt.Errorf("push: open output: %w: %w", apperr.ErrStructural, err)
	}
	dst, err := storage.CreateFS(dest)
	if err != nil {
		return storage.MirrorStats{}, fmt.Errorf("push: %w", err)
	}
	if src.Root() == dst.Root() {
		return storage.MirrorStats{}, fmt.Errorf("push: destination is the output directory")
	}
	return storage.Mirror(ctx, src, dst, "", app.logger)
}
