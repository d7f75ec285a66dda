package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"wealthwise/internal/cli"
	"wealthwise/internal/config"
	"wealthwise/internal/log"
)

var (
	flagCurrency string
	flagVerbose  bool
	flagServer   string
	flagLocal    bool
)

var rootCmd = &cobra.Command{
	Use:           "wealthctl",
	Short:         "Personal finance goal planner",
	Long:          "Plan savings goals, track progress and get advice from the terminal.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cli.LoadEnvFile()
	},
}

// Execute is the main entry point called from main.go.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagCurrency, "currency", "₹", "Currency symbol used in output")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Log to stderr")
	rootCmd.PersistentFlags().StringVar(&flagServer, "server", "", "wealthwise server URL (default ADVICE_URL)")
	rootCmd.PersistentFlags().BoolVar(&flagLocal, "local", false, "Open the goal store directly; only while the server is stopped")
}

// commandLogger is silent unless --verbose is set.
func commandLogger() *log.Logger {
	var out io.Writer = io.Discard
	if flagVerbose {
		out = os.Stderr
	}
	return log.New(log.Config{
		Level:     slog.LevelDebug,
		Component: log.ComponentCLI,
		Output:    out,
	})
}

const defaultServerURL = "http://localhost:8081"

// serverURL prefers --server, then ADVICE_URL from the environment.
func serverURL() string {
	if flagServer != "" {
		return flagServer
	}
	if cfg, err := config.Load(); err == nil && cfg.AdviceURL != "" {
		return cfg.AdviceURL
	}
	return defaultServerURL
}

// withGoals runs fn against the server's goals API. The server keeps the
// collection in memory and writes it back whole, so a second writer on the
// same store would lose updates; --local opens the store directly and is
// only for when the server is stopped.
func withGoals(ctx context.Context, fn func(cli.GoalService) error) error {
	if !flagLocal {
		return fn(cli.NewGoalClient(serverURL(), &http.Client{Timeout: 30 * time.Second}))
	}
	cfg, err := cli.LoadConfig()
	if err != nil {
		return err
	}
	repo, cleanup, err := cli.OpenGoals(ctx, commandLogger().Logger, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = cleanup() }()
	return fn(cli.LocalGoals{Repo: repo})
}
