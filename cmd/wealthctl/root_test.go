package main

import (
	"context"
	"testing"

	"wealthwise/internal/cli"
)

func TestWithGoalsUsesServerByDefault(t *testing.T) {
	t.Cleanup(func() { flagServer, flagLocal = "", false })
	flagServer = "http://planner:9000"

	err := withGoals(context.Background(), func(svc cli.GoalService) error {
		if _, ok := svc.(*cli.GoalClient); !ok {
			t.Errorf("service = %T, want *cli.GoalClient", svc)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("withGoals: %v", err)
	}
}

func TestWithGoalsLocalOpensStore(t *testing.T) {
	t.Cleanup(func() { flagLocal = false })
	flagLocal = true
	t.Setenv("DATA_BACKEND", "memory")

	err := withGoals(context.Background(), func(svc cli.GoalService) error {
		if _, ok := svc.(cli.LocalGoals); !ok {
			t.Errorf("service = %T, want cli.LocalGoals", svc)
		}
		_, err := svc.List(context.Background())
		return err
	})
	if err != nil {
		t.Fatalf("withGoals: %v", err)
	}
}
