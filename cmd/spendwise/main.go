package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"spendwise/internal/amqp"
	"spendwise/internal/backend"
	"spendwise/internal/cli"
	"spendwise/internal/config"
	"spendwise/internal/core"
	apphttp "spendwise/internal/http"
	"spendwise/internal/log"
	"spendwise/internal/metrics"
	"spendwise/internal/seed"
	"spendwise/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.SignalContext()
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server exited with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
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

	var expenseOpts []services.ExpenseOption
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			return err
		}
		defer client.Close()
		expenseOpts = append(expenseOpts, services.WithNotifier(client))
		logger.Info("Publishing expense changes", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("AMQP disabled - expense changes are not published")
	}

	clock := core.SystemClock{}
	rules := apphttp.Rules{
		Users:      services.NewUserService(store.Store, clock),
		Categories: services.NewCategoryService(store.Store),
		Currencies: services.NewCurrencyService(store.Store),
		Expenses:   services.NewExpenseService(store.Store, clock, expenseOpts...),
		Budgets:    services.NewBudgetService(store.Store, clock),
	}

	if cfg.SeedReferenceData {
		seeder := seed.New(rules.Currencies, rules.Categories, logger)
		if err := seeder.Run(ctx); err != nil {
			return err
		}
	}

	srv := apphttp.NewServer(":"+cfg.Port, rules, apphttp.Options{
		Logger:             logger,
		Metrics:            metrics.New(prometheus.NewRegistry()),
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Ready:              store.Ready,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting spendwise server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server", "timeout", cfg.ShutdownTimeout.String())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
