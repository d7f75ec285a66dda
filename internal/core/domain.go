package core

import (
	"errors"
	"math"
	"strings"
	"time"
)

const (
	Months DurationUnit = "months"
	Years  DurationUnit = "years"
)

type (
	DurationUnit string

	// PlanInput holds the figures a user enters into the planner form.
	PlanInput struct {
		MonthlyIncome   float64      `json:"monthlyIncome"`
		MonthlyExpenses float64      `json:"monthlyExpenses"`
		CurrentSavings  float64      `json:"currentSavings"`
		GoalAmount      float64      `json:"goalAmount"`
		Duration        float64      `json:"goalDuration"`
		Unit            DurationUnit `json:"durationType"`
	}

	GoalInput struct {
		Name string `json:"name"`
		PlanInput
	}

	// Goal is a saved plan. Field names match the browser storage format
	// so an exported collection loads as-is.
	Goal struct {
		ID              string       `json:"id"`
		Name            string       `json:"name"`
		MonthlyIncome   float64      `json:"monthlyIncome"`
		MonthlyExpenses float64      `json:"monthlyExpenses"`
		CurrentSavings  float64      `json:"currentSavings"`
		GoalAmount      float64      `json:"goalAmount"`
		Duration        float64      `json:"goalDuration"`
		Unit            DurationUnit `json:"durationType"`
		CreatedAt       time.Time    `json:"date"`
		Completed       bool         `json:"completed"`
		Progress        float64      `json:"progress"`
	}

	CalculationResult struct {
		MonthlySavingPotential float64 `json:"monthlySavingPotential"`
		RequiredMonthlySavings float64 `json:"requiredMonthlySavings"`
		Gap                    float64 `json:"gap"`
		ProgressPercentage     float64 `json:"progressPercentage"`
		GoalAmount             float64 `json:"goalAmount"`
		CurrentSavings         float64 `json:"currentSavings"`
	}
)

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidDuration     = errors.New("invalid duration")
	ErrInvalidDurationUnit = errors.New("invalid duration unit")
	ErrInvalidGoalAmount   = errors.New("goal amount must be greater than zero")
	ErrInvalidSavings      = errors.New("current savings cannot be negative")
	ErrEmptyName           = errors.New("empty goal name")
	ErrNameTooLong         = errors.New("goal name too long (max 120 characters)")
)

// MaxNameLength bounds goal names.
const MaxNameLength = 120

// ParseDurationUnit accepts "months" or "years" in any case.
func ParseDurationUnit(s string) (DurationUnit, error) {
	switch DurationUnit(strings.ToLower(strings.TrimSpace(s))) {
	case Months:
		return Months, nil
	case Years:
		return Years, nil
	default:
		return "", ErrInvalidDurationUnit
	}
}

func (u DurationUnit) Validate() error {
	if u != Months && u != Years {
		return ErrInvalidDurationUnit
	}
	return nil
}

// Months converts a duration expressed in u into months.
func (u DurationUnit) Months(duration float64) float64 {
	if u == Years {
		return duration * 12
	}
	return duration
}

// Validate checks the figures a caller submits before they reach the engine.
func (in PlanInput) Validate() error {
	for _, v := range []float64{in.MonthlyIncome, in.MonthlyExpenses, in.CurrentSavings, in.GoalAmount, in.Duration} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrInvalidAmount
		}
	}
	if in.MonthlyIncome < 0 || in.MonthlyExpenses < 0 {
		return ErrInvalidAmount
	}
	if in.CurrentSavings < 0 {
		return ErrInvalidSavings
	}
	if in.GoalAmount <= 0 {
		return ErrInvalidGoalAmount
	}
	if err := in.Unit.Validate(); err != nil {
		return err
	}
	if in.Duration < 1 {
		return ErrInvalidDuration
	}
	return nil
}

func (in GoalInput) Validate() error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > MaxNameLength {
		return ErrNameTooLong
	}
	return in.PlanInput.Validate()
}

// Plan returns the figures of a saved goal as engine input.
func (g Goal) Plan() PlanInput {
	return PlanInput{
		MonthlyIncome:   g.MonthlyIncome,
		MonthlyExpenses: g.MonthlyExpenses,
		CurrentSavings:  g.CurrentSavings,
		GoalAmount:      g.GoalAmount,
		Duration:        g.Duration,
		Unit:            g.Unit,
	}
}

// Validate checks the invariants of a stored goal.
func (g Goal) Validate() error {
	if strings.TrimSpace(g.ID) == "" {
		return errors.New("goal id cannot be empty")
	}
	if err := g.Plan().Validate(); err != nil {
		return err
	}
	if math.IsNaN(g.Progress) || math.IsInf(g.Progress, 0) || g.Progress < 0 {
		return errors.New("invalid progress")
	}
	return nil
}

// Surplus reports whether the user already saves enough each month.
func (r CalculationResult) Surplus() bool {
	return r.Gap >= 0
}
