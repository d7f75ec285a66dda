package gamification

import (
	"context"
	"fmt"
	"math"
	"slices"
	"testing"
	"time"

	"wealthwise/internal/core"
	"wealthwise/internal/goals"
	"wealthwise/internal/storage"
)

func TestLevel(t *testing.T) {
	cases := []struct{ completed, level int }{
		{0, 1}, {1, 1}, {4, 1}, {5, 2}, {9, 2}, {10, 3}, {12, 3}, {25, 6}, {-1, 1},
	}
	for _, tc := range cases {
		if got := Level(tc.completed); got != tc.level {
			t.Errorf("Level(%d) = %d, want %d", tc.completed, got, tc.level)
		}
	}
}

func TestProgressToNextLevel(t *testing.T) {
	cases := []struct {
		completed int
		want      float64
	}{
		{0, 0}, {1, 20}, {4, 80}, {5, 0}, {12, 40},
	}
	for _, tc := range cases {
		if got := ProgressToNextLevel(tc.completed); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("ProgressToNextLevel(%d) = %v, want %v", tc.completed, got, tc.want)
		}
	}
}

func makeGoals(total, completed int) []core.Goal {
	out := make([]core.Goal, total)
	for i := range out {
		out[i] = core.Goal{ID: fmt.Sprint(i), Completed: i < completed}
	}
	return out
}

func earnedIDs(p Profile) []BadgeID {
	var ids []BadgeID
	for _, b := range p.Earned() {
		ids = append(ids, b.ID)
	}
	return ids
}

func TestDerive(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		completed int
		level     int
		badges    []BadgeID
	}{
		{"empty", 0, 0, 1, nil},
		{"one open goal", 1, 0, 1, []BadgeID{BadgeFirstGoal}},
		{"one completed", 3, 1, 1, []BadgeID{BadgeFirstGoal, BadgeGoalAchiever}},
		{"level two", 7, 5, 2, []BadgeID{BadgeFirstGoal, BadgeGoalAchiever, BadgeDedicated}},
		{"level three", 12, 12, 3, []BadgeID{BadgeFirstGoal, BadgeGoalAchiever, BadgeDedicated}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Derive(makeGoals(tt.total, tt.completed))
			if p.TotalGoals != tt.total || p.CompletedGoals != tt.completed {
				t.Errorf("totals = %d/%d, want %d/%d", p.CompletedGoals, p.TotalGoals, tt.completed, tt.total)
			}
			if p.Level != tt.level || p.NextLevel != tt.level+1 {
				t.Errorf("level = %d next %d, want %d next %d", p.Level, p.NextLevel, tt.level, tt.level+1)
			}
			if p.GoalsForNextLevel != tt.level*GoalsPerLevel {
				t.Errorf("GoalsForNextLevel = %d, want %d", p.GoalsForNextLevel, tt.level*GoalsPerLevel)
			}
			if got := earnedIDs(p); !slices.Equal(got, tt.badges) {
				t.Errorf("earned = %v, want %v", got, tt.badges)
			}
			if len(p.Badges) != 3 {
				t.Errorf("locked badges are listed too, got %d badges", len(p.Badges))
			}
		})
	}
}

func TestTrackerFollowsRepository(t *testing.T) {
	ctx := context.Background()
	repo, err := goals.Open(ctx, storage.NewMemoryStore(), goals.Options{
		Now: func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("goals.Open: %v", err)
	}

	tracker := NewTracker(repo, nil)
	defer tracker.Close()
	if p := tracker.Profile(); p.Level != 1 || len(p.Earned()) != 0 {
		t.Fatalf("fresh profile = %+v", p)
	}

	var ids []string
	for i := 0; i < 5; i++ {
		g, _, err := repo.Create(ctx, core.GoalInput{
			Name: fmt.Sprintf("goal %d", i),
			PlanInput: core.PlanInput{
				MonthlyIncome: 100, GoalAmount: 100, Duration: 1, Unit: core.Months,
			},
		})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		ids = append(ids, g.ID)
	}
	if got := earnedIDs(tracker.Profile()); !slices.Equal(got, []BadgeID{BadgeFirstGoal}) {
		t.Errorf("earned after create = %v", got)
	}

	for _, id := range ids {
		if _, err := repo.Complete(ctx, id); err != nil {
			t.Fatalf("Complete: %v", err)
		}
	}
	p := tracker.Profile()
	if p.CompletedGoals != 5 || p.Level != 2 || p.ProgressToNextLevel != 0 {
		t.Errorf("profile after completing = %+v", p)
	}
	want := []BadgeID{BadgeFirstGoal, BadgeGoalAchiever, BadgeDedicated}
	if got := earnedIDs(p); !slices.Equal(got, want) {
		t.Errorf("earned = %v, want %v", got, want)
	}

	for _, id := range ids {
		if _, err := repo.Delete(ctx, id); err != nil {
			t.Fatalf("Delete: %v", err)
		}
	}
	if got := tracker.Profile().Earned(); len(got) != 0 {
		t.Errorf("badges follow the collection, still earned %v", got)
	}
}

func TestTrackerProfileIsACopy(t *testing.T) {
	repo, err := goals.Open(context.Background(), storage.NewMemoryStore(), goals.Options{})
	if err != nil {
		t.Fatalf("goals.Open: %v", err)
	}
	tracker := NewTracker(repo, nil)

	p := tracker.Profile()
	p.Badges[0].Earned = true
	if tracker.Profile().Badges[0].Earned {
		t.Error("mutating a returned profile changed the tracker")
	}
}
