package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stocklib/internal/batch"
	"stocklib/internal/config"
	"stocklib/internal/fetcher"
	"stocklib/internal/handler"
	"stocklib/internal/handler/platforms"
	"stocklib/internal/listing"
	"stocklib/internal/observability"
	jsonlogger "stocklib/internal/observability/logger"
	prommetrics "stocklib/internal/observability/metrics"
	"stocklib/internal/storage"
	storagefs "stocklib/internal/storage/fs"
	storages3 "stocklib/internal/storage/s3"
	"stocklib/internal/usecase"
	"stocklib/internal/worker"
)

func main() {
	ticker := flag.String("ticker", "", "run one batch for this ticker and exit")
	store := flag.Bool("store", false, "persist the archive through object storage (with -ticker)")
	output := flag.String("o", "", "write the archive to this path instead of storage (with -ticker)")
	flag.Parse()

	cfg := loadConfiguration()
	deps := initializeDependencies(cfg)
	app := buildApplication(cfg, deps)

	if *ticker != "" {
		runOnce(app, *ticker, *store, *output)
		return
	}
	startServer(cfg, app)
}

// Dependencies holds the initialized infrastructure components.
type Dependencies struct {
	provider observability.Provider
	store    storage.ObjectStorage
}

// Application is the assembled service.
type Application struct {
	handler  *handler.Handler
	batch    *usecase.DocumentBatch
	provider observability.Provider
}

func loadConfiguration() *config.Config {
	config.MustLoad()
	return config.MustGet()
}

func initializeDependencies(cfg *config.Config) *Dependencies {
	provider := observability.NewProvider(
		&observability.Config{
			ServiceName: cfg.ServiceName,
			Environment: cfg.Environment,
			LogLevel:    cfg.LogLevel,
		},
		func(oc *observability.Config, component string) observability.Logger {
			return jsonlogger.New(oc.ServiceName, oc.Environment, oc.LogLevel, oc.LogOutput,
				observability.Fields{"component": component})
		},
		func(oc *observability.Config, component string) observability.Metrics {
			return prommetrics.New(oc.ServiceName, component)
		},
	)

	logger := provider.Logger("main")
	logger.Info(context.Background(), "Starting service", observability.Fields{
		"service":     cfg.ServiceName,
		"version":     cfg.Version,
		"environment": cfg.Environment,
	})

	return &Dependencies{
		provider: provider,
		store:    initializeStorage(cfg, provider),
	}
}

func initializeStorage(cfg *config.Config, provider observability.Provider) storage.ObjectStorage {
	factory := storage.NewFactory(provider.Logger("storage"), provider.Metrics("storage"))
	factory.Register("fs", func(sc config.StorageConfig, l observability.Logger, m observability.Metrics) (storage.ObjectStorage, error) {
		return storagefs.New(sc.BasePath, l, m)
	})
	factory.Register("s3", func(sc config.StorageConfig, l observability.Logger, m observability.Metrics) (storage.ObjectStorage, error) {
		return storages3.New(sc.S3, l, m)
	})

	store, err := factory.Create(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	return store
}

func buildApplication(cfg *config.Config, deps *Dependencies) *Application {
	listingClient := listing.NewClient(cfg.Listing,
		deps.provider.Logger("listing"), deps.provider.Metrics("listing"))

	docFetcher := fetcher.NewFetcher(cfg.Fetch,
		deps.provider.Logger("fetcher"), deps.provider.Metrics("fetcher"))

	orchestrator := batch.NewOrchestrator(docFetcher, nil,
		deps.provider.Logger("batch"), deps.provider.Metrics("batch"), nil)

	documentBatch := usecase.NewDocumentBatch(listingClient, orchestrator, deps.store,
		deps.provider.Logger("usecase"), deps.provider.Metrics("usecase"))

	batchWorker := worker.NewBatchWorker(documentBatch,
		deps.provider.Logger("worker"), deps.provider.Metrics("worker"))

	h := handler.NewHandler(batchWorker, cfg.Handler)
	h.Use(handler.RecoveryMiddleware(deps.provider))
	h.Use(handler.LoggingMiddleware(deps.provider))
	h.Use(handler.MetricsMiddleware(deps.provider))

	return &Application{
		handler:  h,
		batch:    documentBatch,
		provider: deps.provider,
	}
}

// runOnce executes a single batch from the command line.
func runOnce(app *Application, ticker string, store bool, output string) {
	logger := app.provider.Logger("cli")
	ctx := context.Background()

	result, err := app.batch.Execute(ctx, usecase.BatchRequest{
		Ticker: ticker,
		Store:  store,
	})
	if err != nil {
		logger.Error(ctx, "Batch failed", err, observability.Fields{"ticker": ticker})
		os.Exit(1)
	}

	if output != "" && result.Archive != nil {
		if err := os.WriteFile(output, result.Archive, 0o644); err != nil {
			logger.Error(ctx, "Could not write archive", err, observability.Fields{"path": output})
			os.Exit(1)
		}
	}

	// Keep the archive bytes out of the terminal summary.
	result.Archive = nil
	summary, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(summary))
}

// startServer runs the HTTP delivery surface until interrupted.
func startServer(cfg *config.Config, app *Application) {
	logger := app.provider.Logger("server")
	adapter := platforms.NewHTTPAdapter(app.handler)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      adapter.Mux(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	go func() {
		logger.Info(context.Background(), "HTTP server listening", observability.Fields{
			"addr": cfg.Server.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "Shutdown error", err, nil)
	}
	logger.Info(shutdownCtx, "Shutdown complete", nil)
	app.provider.Close()
}
