package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"wealthwise/internal/advice"
	"wealthwise/internal/amqp"
	"wealthwise/internal/cache"
	"wealthwise/internal/cli"
	"wealthwise/internal/config"
	"wealthwise/internal/gamification"
	apphttp "wealthwise/internal/http"
	"wealthwise/internal/log"
	"wealthwise/internal/services"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	// Bootstrap logger until the configured level is known
	logger := cli.SetupLogger(0, "text")
	cfg := cli.LoadAndValidateConfig(logger.Logger)
	logger = cli.SetupLogger(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	repo, closeStore, err := cli.OpenGoals(ctx, logger.Logger, cfg)
	if err != nil {
		logger.Error("Failed to open goal store", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	tracker := gamification.NewTracker(repo, logger.Logger)

	caches := cache.NewManager(logger.Logger)
	advisor := newAdvisor(cfg, logger, caches)
	caches.StartCleanup(10 * time.Minute)

	var endpoint advice.Endpoint
	if advisor.Enabled() {
		endpoint = advisor
	}
	requester := advice.NewRequester(endpoint, advice.RequesterOptions{
		Prompt:  promptOptions(cfg),
		Timeout: cfg.AdviceTimeout,
		Logger:  logger.Logger,
	})

	// Goal events are optional
	var (
		amqpClient *amqp.Client
		publisher  services.GoalEventPublisher
	)
	if cfg.AMQPEnabled() {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to connect to AMQP broker, goal events disabled", "error", err)
		} else {
			publisher = amqpClient
			logger.Info("Goal events enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}
	events := services.NewEventPublisher(publisher, services.DefaultEventPublisherConfig(), logger.Logger)
	if err := events.Start(ctx, repo); err != nil {
		logger.Error("Failed to start event publisher", "error", err)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, repo, tracker, advisor, requester, logger, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		ReadTimeout:        10 * time.Second,
		WriteTimeout:       60 * time.Second,
		IdleTimeout:        60 * time.Second,
	})
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	shutdownCtx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if err := events.Stop(ctx); err != nil {
			logger.Warn("Event publisher did not drain", "error", err, "dropped", events.Dropped())
		}
		if amqpClient != nil {
			_ = amqpClient.Close()
		}
		caches.Stop()
		tracker.Close()
		if err := closeStore(); err != nil {
			logger.Error("Failed to close goal store", "error", err)
		}
	})

	logger.Info("Starting wealthwise server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"goals", len(repo.List()),
		"advice", advisor.Enabled(),
		"goal_events", publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}

// newAdvisor builds the advice endpoint. Without an API key the advisor is
// disabled and the planner serves fallback advice.
func newAdvisor(cfg *config.Config, logger *log.Logger, caches *cache.Manager) *advice.Advisor {
	if !cfg.AdviceEnabled() {
		logger.Info("Advice provider disabled - no OPENAI_API_KEY provided")
		return advice.NewAdvisor(nil, advice.AdvisorOptions{Logger: logger.Logger})
	}

	provider, err := advice.NewOpenAIProvider(advice.OpenAIConfig{
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.OpenAIModel,
		BaseURL: cfg.OpenAIBaseURL,
	})
	if err != nil {
		logger.Error("Failed to initialize advice provider", "error", err)
		os.Exit(1)
	}

	var lru *cache.LRUCache[string]
	if cfg.AdviceCacheSize > 0 {
		lru = cache.NewLRUCache[string](cfg.AdviceCacheSize, cfg.AdviceCacheTTL)
		caches.Register("advice", lru)
	}

	logger.Info("Advice provider initialized", "model", provider.Model(), "cache_size", cfg.AdviceCacheSize)
	return advice.NewAdvisor(provider, advice.AdvisorOptions{
		Prompt:  promptOptions(cfg),
		Cache:   lru,
		Timeout: cfg.AdviceTimeout,
		Logger:  logger.Logger,
	})
}

func promptOptions(cfg *config.Config) advice.PromptOptions {
	return advice.PromptOptions{
		MaxChars: cfg.AdviceMaxChars,
		Currency: cfg.AdviceCurrency,
		Region:   cfg.AdviceRegion,
	}
}
