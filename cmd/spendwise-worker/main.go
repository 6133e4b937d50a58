package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"spendwise/internal/amqp"
	"spendwise/internal/backend"
	"spendwise/internal/cli"
	"spendwise/internal/config"
	"spendwise/internal/core"
	"spendwise/internal/log"
	"spendwise/internal/metrics"
	"spendwise/internal/services"
	gsheet "spendwise/internal/sheets/google"
	"spendwise/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.SignalContext()
	defer stop()

	logger.Info("Starting spendwise-worker")
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Worker exited with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	if !cfg.AMQPEnabled() {
		return errors.New("AMQP_URL is required to run the worker")
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	if backendCfg.Type == backend.MemoryBackend {
		logger.Warn("Memory backend selected, the worker cannot see the server's data")
	}
	store, err := backend.NewFactory(logger).Create(ctx, backendCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Cleanup(); err != nil {
			logger.Warn("Failed to close store", log.FieldError, err)
		}
	}()

	clock := core.SystemClock{}
	m := metrics.New(prometheus.NewRegistry())
	opts := []worker.Option{worker.WithMetrics(m)}

	if cfg.SheetsEnabled() {
		exporter, err := gsheet.NewFromConfig(ctx, gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			return err
		}
		opts = append(opts, worker.WithExporter(exporter,
			services.NewCategoryService(store.Store),
			services.NewCurrencyService(store.Store)))
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	watcher := worker.NewBudgetWatcher(services.NewBudgetService(store.Store, clock), logger, opts...)

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return err
	}
	defer client.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := client.ConsumeExpenseChanges(gctx, watcher.HandleExpenseEvent)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if cfg.WorkerMetricsPort != "" {
		srv := &http.Server{
			Addr:              ":" + cfg.WorkerMetricsPort,
			Handler:           m.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("Serving worker metrics", "port", cfg.WorkerMetricsPort)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}
