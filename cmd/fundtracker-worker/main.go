package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"fundtracker/internal/amqp"
	"fundtracker/internal/backend"
	"fundtracker/internal/cli"
	"fundtracker/internal/config"
	applog "fundtracker/internal/log"
	"fundtracker/internal/worker"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)
	logger = cli.SetupLogger(cfg.LogLevel, cfg.LogFormat).WithComponent(applog.ComponentWorker)

	logger.Info("Starting fundtracker-worker", applog.FieldOperation, applog.OpStartup,
		"backend", cfg.DataBackend, "mirror_sheet", cfg.MirrorSheetName)

	catalog, err := cli.LoadCatalog(cfg)
	if err != nil {
		logger.Error("Failed to load budget table", "error", err, "path", cfg.BudgetsFile)
		os.Exit(1)
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), time.Minute)
	defer cancelStart()

	factory := backend.NewFactory(logger.Slog())
	primaryConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	mirrorConfig, err := backend.MirrorFromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid mirror configuration", "error", err)
		os.Exit(1)
	}

	primary, err := factory.Create(startCtx, primaryConfig)
	if err != nil {
		logger.Error("Failed to create primary backend", "error", err)
		os.Exit(1)
	}
	defer primary.Close()

	target, err := factory.Create(startCtx, mirrorConfig)
	if err != nil {
		logger.Error("Failed to create mirror backend", "error", err)
		os.Exit(1)
	}
	defer target.Close()

	client, err := amqp.NewClient(startCtx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	mirror := worker.NewMirror(primary.Backend, target.Backend, catalog, logger)

	ctx, done := cli.GracefulShutdown(logger.Slog(), shutdownTimeout, nil)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Catch up on anything published while the worker was down.
		n, err := mirror.Sync(gctx)
		if err != nil {
			logger.Error("Startup mirror failed", "error", err, applog.FieldOperation, applog.OpMirror)
		} else {
			logger.Info("Startup mirror complete", applog.FieldOperation, applog.OpMirror,
				applog.FieldCount, n, "from", primary.Describe, "to", target.Describe)
		}

		err = client.Consume(gctx, mirror.HandleLedgerChanged)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}
	<-done
	logger.Info("Worker stopped", applog.FieldOperation, applog.OpShutdown, "syncs", mirror.Syncs())
}
