// Package cli provides common initialization shared by cmd/wealthwise,
// cmd/wealthwise-worker and cmd/wealthctl, and terminal rendering for
// wealthctl.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"wealthwise/internal/backend"
	"wealthwise/internal/config"
	"wealthwise/internal/goals"
	"wealthwise/internal/log"
)

// SetupLogger initializes structured logging for the given level and
// format and installs it as the default logger. An unknown format falls
// back to text.
func SetupLogger(level slog.Level, format string) *log.Logger {
	f, err := log.ParseFormat(format)
	if err != nil {
		f = log.FormatText
	}
	logger := log.New(log.Config{
		Level:     level,
		Format:    f,
		Component: log.ComponentApp,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadConfig parses and validates the environment configuration.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *slog.Logger) *config.Config {
	cfg, err := LoadConfig()
	if err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// OpenGoals creates the configured Goal Store and loads the goal
// collection from it. The returned cleanup closes the store.
func OpenGoals(ctx context.Context, logger *slog.Logger, cfg *config.Config) (*goals.Repository, func() error, error) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	store, err := backend.Open(ctx, backendCfg, logger)
	if err != nil {
		return nil, nil, err
	}

	repo, err := goals.Open(ctx, store, goals.Options{
		Key:            cfg.StoreKey,
		ResetOnCorrupt: cfg.ResetCorruptStore,
		LockCompleted:  cfg.LockCompleted,
		Logger:         logger,
	})
	if err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("open goals: %w", err)
	}
	return repo, store.Close, nil
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that is cancelled on SIGINT or SIGTERM and a channel
// closed once cleanup has returned or timeout has elapsed.
func GracefulShutdown(logger *slog.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()

		finished := make(chan struct{})
		go func() {
			defer close(finished)
			if cleanup != nil {
				cleanup(shutdownCtx)
			}
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		}
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup is done.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
