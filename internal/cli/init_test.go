package cli

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"wealthwise/internal/config"
	"wealthwise/internal/core"
	"wealthwise/internal/log"
)

func TestSetupLoggerInstallsDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logger := SetupLogger(slog.LevelDebug, "bogus")

	if logger.Component() != log.ComponentApp {
		t.Errorf("component = %q, want %q", logger.Component(), log.ComponentApp)
	}
	if slog.Default() != logger.Logger {
		t.Error("SetupLogger should install the default logger")
	}
}

func TestLoadConfigRejectsInvalidEnv(t *testing.T) {
	t.Setenv("PORT", "not-a-port")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestOpenGoalsPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{
		DataBackend:  "sqlite",
		SQLiteDBPath: filepath.Join(t.TempDir(), "goals.db"),
		StoreKey:     "financialGoals",
	}
	in := core.GoalInput{
		Name: "Car",
		PlanInput: core.PlanInput{
			MonthlyIncome: 100, GoalAmount: 1000, Duration: 10, Unit: core.Months,
		},
	}

	repo, cleanup, err := OpenGoals(ctx, slog.Default(), cfg)
	if err != nil {
		t.Fatalf("OpenGoals: %v", err)
	}
	if _, _, err := repo.Create(ctx, in); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := cleanup(); err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	repo, cleanup, err = OpenGoals(ctx, slog.Default(), cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer cleanup()
	if got := len(repo.List()); got != 1 {
		t.Fatalf("expected 1 goal after reopen, got %d", got)
	}
}

func TestOpenGoalsInvalidBackend(t *testing.T) {
	_, _, err := OpenGoals(context.Background(), slog.Default(), &config.Config{DataBackend: "sheets"})
	if err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestGracefulShutdownIdleUntilSignal(t *testing.T) {
	logger := slog.Default()
	ctx, done := GracefulShutdown(logger, time.Second, func(context.Context) {})

	// Nothing is cancelled until a signal arrives.
	select {
	case <-ctx.Done():
		t.Fatal("context should not be cancelled before a signal")
	case <-done:
		t.Fatal("done should not be closed before a signal")
	case <-time.After(20 * time.Millisecond):
	}
}
