package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/phrazzld/squash-api/internal/api"
	apiMiddleware "github.com/phrazzld/squash-api/internal/api/middleware"
	"github.com/phrazzld/squash-api/internal/config"
	"github.com/phrazzld/squash-api/internal/platform/filestore"
	"github.com/phrazzld/squash-api/internal/platform/gzip"
	"github.com/phrazzld/squash-api/internal/platform/postgres"
	"github.com/phrazzld/squash-api/internal/service"
	"github.com/phrazzld/squash-api/internal/task"
)

// application holds the wired dependencies of a running server instance.
type application struct {
	config     *config.Config
	logger     *slog.Logger
	db         *sql.DB
	uploads    *filestore.Store
	compressed *filestore.Store
	uploadSvc  *service.UploadService
	dispatcher *task.Dispatcher
	taskStore  *postgres.PostgresTaskStore
}

// newApplication connects the database and wires stores, services, and
// the background dispatcher.
func newApplication(cfg *config.Config, logger *slog.Logger) (*application, error) {
	db, err := setupDatabase(cfg, logger)
	if err != nil {
		return nil, err
	}

	taskStore := postgres.NewPostgresTaskStore(db)
	uploads := filestore.NewOS(cfg.Storage.UploadDir)
	compressed := filestore.NewOS(cfg.Storage.CompressedDir)

	if err := uploads.EnsureRoot(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to prepare upload storage: %w", err)
	}

	codec := gzip.NewCodec(cfg.Worker.GzipLevel)
	worker := task.NewWorker(taskStore, uploads, compressed, codec, logger)

	dispatcher := task.NewDispatcher(taskStore, compressed, worker, task.DispatcherConfig{
		StaleTaskAge:  cfg.Worker.StaleTaskAge,
		SweepInterval: cfg.Worker.SweepInterval,
	}, logger)
	dispatcher.Start()

	app := &application{
		config:     cfg,
		logger:     logger,
		db:         db,
		uploads:    uploads,
		compressed: compressed,
		uploadSvc:  service.NewUploadService(taskStore, uploads, logger),
		dispatcher: dispatcher,
		taskStore:  taskStore,
	}

	return app, nil
}

// setupDatabase establishes a connection to the database and configures
// connection pools.
func setupDatabase(cfg *config.Config, logger *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database connection established")
	return db, nil
}

// setupRouter creates and configures the application router with all
// routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	uploadHandler := api.NewUploadHandler(app.uploadSvc)
	compressHandler := api.NewCompressHandler(app.dispatcher)
	statusHandler := api.NewStatusHandler(app.taskStore)

	r.Route("/uploader", func(r chi.Router) {
		r.Post("/upload", uploadHandler.UploadFiles)
		r.Handle("/files/*", http.StripPrefix("/uploader/files/",
			http.FileServer(app.uploads.HTTPFileSystem())))
	})

	r.Route("/compressor", func(r chi.Router) {
		r.Post("/compress", compressHandler.CompressAll)
		r.Handle("/files/*", http.StripPrefix("/compressor/files/",
			http.FileServer(app.compressed.HTTPFileSystem())))
	})

	r.Get("/check/{task_id}", statusHandler.GetTaskStatus)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}

// run starts the HTTP server and blocks until shutdown completes.
// SIGINT/SIGTERM trigger a graceful stop: the listener drains first,
// then outstanding compression workers.
func (app *application) run() error {
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", app.config.Server.Port),
		Handler: app.setupRouter(),
	}

	serverErr := make(chan error, 1)
	go func() {
		app.logger.Info("Starting server", "port", app.config.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-shutdownCh:
		app.logger.Info("Shutting down server...", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("Server shutdown failed", "error", err)
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	// Workers dispatched before shutdown keep the wait group held; give
	// them the rest of the deadline to reach a terminal status.
	if err := app.dispatcher.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("Worker drain incomplete", "error", err)
	}

	app.logger.Info("Server shutdown completed")
	return nil
}

// cleanup releases process-wide resources.
func (app *application) cleanup() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}
}
