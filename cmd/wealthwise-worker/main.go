package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"wealthwise/internal/amqp"
	"wealthwise/internal/backend"
	"wealthwise/internal/cli"
	gsheet "wealthwise/internal/sheets/google"
	"wealthwise/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	logger := cli.SetupLogger(0, "text")
	cfg := cli.LoadAndValidateConfig(logger.Logger)
	logger = cli.SetupLogger(cfg.LogLevel, cfg.LogFormat)

	logger.Info("Starting wealthwise-worker")

	if err := cfg.ValidateExport(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The goal store is read once at startup to export a full snapshot
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	if !backendCfg.Kind.Durable() {
		logger.Warn("Memory backend is private to each process, startup export will be empty")
	}
	store, err := backend.Open(ctx, backendCfg, logger.Logger)
	if err != nil {
		logger.Error("Failed to open goal store", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	sheetsClient, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.GoogleSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	exportWorker := worker.NewExportWorker(sheetsClient, logger.Logger)

	shutdownCtx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, func(context.Context) {
		cancel()
	})

	g, gctx := errgroup.WithContext(shutdownCtx)

	// On startup, export the stored collection in case events were missed
	g.Go(func() error {
		logger.Info("Performing startup export...")
		if err := exportWorker.StartupExport(gctx, store, cfg.StoreKey); err != nil {
			// Don't exit - events will bring the sheet up to date
			logger.Error("Failed startup export", "error", err)
		}
		return nil
	})

	g.Go(func() error {
		err := amqpClient.ConsumeGoalEvents(gctx, exportWorker.HandleGoalEvent)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Worker shutdown complete", "last_exported", exportWorker.LastExported())
}
