// Package gamification derives the user level and badges from the goal
// collection. Nothing here is persisted.
package gamification

import (
	"log/slog"
	"sync"

	"wealthwise/internal/core"
	"wealthwise/internal/goals"
)

// GoalsPerLevel is the number of completed goals needed to gain a level.
const GoalsPerLevel = 5

type BadgeID string

const (
	BadgeFirstGoal    BadgeID = "first-goal"
	BadgeGoalAchiever BadgeID = "goal-achiever"
	BadgeDedicated    BadgeID = "dedicated"
)

type Badge struct {
	ID          BadgeID `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Earned      bool    `json:"earned"`
}

type Profile struct {
	TotalGoals          int     `json:"totalGoals"`
	CompletedGoals      int     `json:"completedGoals"`
	Level               int     `json:"level"`
	NextLevel           int     `json:"nextLevel"`
	GoalsForNextLevel   int     `json:"goalsForNextLevel"`
	ProgressToNextLevel float64 `json:"progressToNextLevel"`
	Badges              []Badge `json:"badges"`
}

// Level returns floor(completed/5) + 1.
func Level(completed int) int {
	if completed < 0 {
		completed = 0
	}
	return completed/GoalsPerLevel + 1
}

// ProgressToNextLevel returns the share of the current level already
// achieved, in percent.
func ProgressToNextLevel(completed int) float64 {
	if completed < 0 {
		completed = 0
	}
	return float64(completed%GoalsPerLevel) / GoalsPerLevel * 100
}

// Derive computes the profile for the given collection.
func Derive(gs []core.Goal) Profile {
	completed := 0
	for _, g := range gs {
		if g.Completed {
			completed++
		}
	}
	level := Level(completed)

	return Profile{
		TotalGoals:          len(gs),
		CompletedGoals:      completed,
		Level:               level,
		NextLevel:           level + 1,
		GoalsForNextLevel:   level * GoalsPerLevel,
		ProgressToNextLevel: ProgressToNextLevel(completed),
		Badges: []Badge{
			{
				ID:          BadgeFirstGoal,
				Title:       "First Goal",
				Description: "Created your first financial goal",
				Earned:      len(gs) > 0,
			},
			{
				ID:          BadgeGoalAchiever,
				Title:       "Goal Achiever",
				Description: "Completed a financial goal",
				Earned:      completed >= 1,
			},
			{
				ID:          BadgeDedicated,
				Title:       "Dedicated",
				Description: "Reached level 2",
				Earned:      level >= 2,
			},
		},
	}
}

// Earned returns the badges of p that have been earned.
func (p Profile) Earned() []Badge {
	var out []Badge
	for _, b := range p.Badges {
		if b.Earned {
			out = append(out, b)
		}
	}
	return out
}

// Tracker keeps the profile of a goal repository current.
type Tracker struct {
	mu          sync.RWMutex
	profile     Profile
	logger      *slog.Logger
	unsubscribe func()
}

// NewTracker derives the initial profile from repo and recomputes it on
// every repository change.
func NewTracker(repo *goals.Repository, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Tracker{
		profile: Derive(repo.List()),
		logger:  logger.With("component", "gamification"),
	}
	t.unsubscribe = repo.Subscribe(t.apply)
	return t
}

func (t *Tracker) apply(c goals.Change) {
	next := Derive(c.Goals)

	t.mu.Lock()
	prev := t.profile
	t.profile = next
	t.mu.Unlock()

	if next.Level > prev.Level {
		t.logger.Info("Level up", "level", next.Level, "completed_goals", next.CompletedGoals)
	}
	for i, b := range next.Badges {
		if b.Earned && (i >= len(prev.Badges) || !prev.Badges[i].Earned) {
			t.logger.Info("Badge earned", "badge", string(b.ID))
		}
	}
}

// Profile returns the current profile.
func (t *Tracker) Profile() Profile {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p := t.profile
	p.Badges = append([]Badge(nil), t.profile.Badges...)
	return p
}

// Close stops tracking repository changes.
func (t *Tracker) Close() {
	t.unsubscribe()
}
