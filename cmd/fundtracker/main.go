package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"fundtracker/internal/amqp"
	"fundtracker/internal/auth"
	"fundtracker/internal/backend"
	"fundtracker/internal/cache"
	"fundtracker/internal/cli"
	"fundtracker/internal/config"
	apphttp "fundtracker/internal/http"
	"fundtracker/internal/ledger"
	applog "fundtracker/internal/log"
	"fundtracker/internal/services"
)

const (
	shutdownTimeout = 30 * time.Second
	cacheSweepEvery = 5 * time.Minute
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateServer)
	logger = cli.SetupLogger(cfg.LogLevel, cfg.LogFormat)

	logger.Info("Starting fundtracker", applog.FieldOperation, applog.OpStartup, "backend", cfg.DataBackend, "port", cfg.Port)

	catalog, err := cli.LoadCatalog(cfg)
	if err != nil {
		logger.Error("Failed to load budget table", "error", err, "path", cfg.BudgetsFile)
		os.Exit(1)
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), time.Minute)
	defer cancelStart()

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger.Slog()).Create(startCtx, backendConfig)
	if err != nil {
		logger.Error("Failed to create backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	store := ledger.NewStore(result.Backend, catalog,
		ledger.WithLogger(logger.WithComponent(applog.ComponentLedger).Slog()))

	opts := []services.Option{
		services.WithLogger(logger),
		services.WithSummaryCacheSize(cfg.SummaryCacheSize),
	}
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(startCtx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, ledger changes will not be mirrored", "error", err)
		} else {
			opts = append(opts, services.WithPublisher(client))
			logger.Info("Publishing ledger changes", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}
	svc := services.NewLedgerService(store, opts...)

	loaded, err := svc.Load(startCtx)
	if err != nil {
		logger.Error("Failed to load ledger", "error", err, "backend", result.Describe)
		_ = svc.Close()
		os.Exit(1)
	}
	logger.Info("Ledger loaded",
		applog.FieldOperation, applog.OpLoad,
		applog.FieldCount, loaded.Count,
		"dropped", loaded.Dropped,
		"initialized", loaded.Initialized,
		"backend", result.Describe)

	authn, err := auth.NewAuthenticator(cfg.AdminUsername, cfg.AdminPassword, cfg.AdminPasswordHash)
	if err != nil {
		logger.Error("Invalid admin credentials", "error", err)
		_ = svc.Close()
		os.Exit(1)
	}
	sessions := auth.NewSessions(cfg.SessionTTL)

	srv, err := apphttp.NewServer(":"+cfg.Port, svc, authn, sessions, apphttp.Options{
		CurrencyLabel:  cfg.CurrencyLabel,
		RequestTimeout: cfg.RequestTimeout,
		RateLimit:      cfg.RateLimit,
		SecureCookies:  cfg.SecureCookies,
		SessionTTL:     cfg.SessionTTL,
		Logger:         logger,
	})
	if err != nil {
		logger.Error("Failed to build HTTP server", "error", err)
		_ = svc.Close()
		os.Exit(1)
	}

	caches := cache.NewManager(logger.Slog())
	caches.Register(svc.SummaryCache())
	caches.Register(sessions.Cleaner())
	caches.StartCleanup(cacheSweepEvery)

	ctx, done := cli.GracefulShutdown(logger.Slog(), shutdownTimeout, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		caches.Stop()
		return nil
	})

	err = g.Wait()
	if closeErr := svc.Close(); closeErr != nil {
		logger.Error("Failed to close ledger", "error", closeErr)
	}
	if err != nil {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}
	<-done
	logger.Info("Server stopped gracefully", applog.FieldOperation, applog.OpShutdown)
}
