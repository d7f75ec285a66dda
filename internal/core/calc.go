package core

import "math"

// Calculate derives the monthly plan for in.
//
// The monthly saving potential may be negative. Progress is clamped to
// [0, 100]. A non-positive duration or goal amount is rejected instead of
// producing Inf or NaN figures.
func Calculate(in PlanInput) (CalculationResult, error) {
	if in.GoalAmount <= 0 || math.IsNaN(in.GoalAmount) || math.IsInf(in.GoalAmount, 0) {
		return CalculationResult{}, ErrInvalidGoalAmount
	}
	months := in.Unit.Months(in.Duration)
	if months <= 0 || math.IsNaN(months) || math.IsInf(months, 0) {
		return CalculationResult{}, ErrInvalidDuration
	}

	potential := in.MonthlyIncome - in.MonthlyExpenses
	required := (in.GoalAmount - in.CurrentSavings) / months

	return CalculationResult{
		MonthlySavingPotential: potential,
		RequiredMonthlySavings: required,
		Gap:                    potential - required,
		ProgressPercentage:     ClampPercent(in.CurrentSavings / in.GoalAmount * 100),
		GoalAmount:             in.GoalAmount,
		CurrentSavings:         in.CurrentSavings,
	}, nil
}

// ClampPercent limits p to [0, 100].
func ClampPercent(p float64) float64 {
	return math.Min(100, math.Max(0, p))
}
