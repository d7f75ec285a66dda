package core

import (
	"errors"
	"math"
	"testing"
)

const tolerance = 1e-6

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= tolerance*math.Max(1, math.Abs(b))
}

func TestCalculateScenarios(t *testing.T) {
	cases := []struct {
		name      string
		in        PlanInput
		potential float64
		required  float64
		gap       float64
		progress  float64
		surplus   bool
	}{
		{
			name:      "surplus",
			in:        validPlan(),
			potential: 2000,
			required:  750,
			gap:       1250,
			progress:  10,
			surplus:   true,
		},
		{
			name: "deficit",
			in: func() PlanInput {
				p := validPlan()
				p.GoalAmount = 50000
				return p
			}(),
			potential: 2000,
			required:  49000.0 / 12,
			gap:       2000 - 49000.0/12,
			progress:  2,
			surplus:   false,
		},
		{
			name: "years are converted to months",
			in: func() PlanInput {
				p := validPlan()
				p.Duration = 1
				p.Unit = Years
				return p
			}(),
			potential: 2000,
			required:  750,
			gap:       1250,
			progress:  10,
			surplus:   true,
		},
		{
			name: "exact match is a surplus",
			in: PlanInput{
				MonthlyIncome: 1750, MonthlyExpenses: 1000,
				CurrentSavings: 1000, GoalAmount: 10000, Duration: 12, Unit: Months,
			},
			potential: 750,
			required:  750,
			gap:       0,
			progress:  10,
			surplus:   true,
		},
		{
			name: "negative potential",
			in: PlanInput{
				MonthlyIncome: 1000, MonthlyExpenses: 1500,
				CurrentSavings: 0, GoalAmount: 1200, Duration: 12, Unit: Months,
			},
			potential: -500,
			required:  100,
			gap:       -600,
			progress:  0,
			surplus:   false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Calculate(tc.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !almostEqual(got.MonthlySavingPotential, tc.potential) {
				t.Errorf("potential = %v, want %v", got.MonthlySavingPotential, tc.potential)
			}
			if !almostEqual(got.RequiredMonthlySavings, tc.required) {
				t.Errorf("required = %v, want %v", got.RequiredMonthlySavings, tc.required)
			}
			if !almostEqual(got.Gap, tc.gap) {
				t.Errorf("gap = %v, want %v", got.Gap, tc.gap)
			}
			if !almostEqual(got.ProgressPercentage, tc.progress) {
				t.Errorf("progress = %v, want %v", got.ProgressPercentage, tc.progress)
			}
			if got.Surplus() != tc.surplus {
				t.Errorf("surplus = %v, want %v", got.Surplus(), tc.surplus)
			}
			if got.GoalAmount != tc.in.GoalAmount || got.CurrentSavings != tc.in.CurrentSavings {
				t.Errorf("inputs not echoed: %+v", got)
			}
		})
	}
}

func TestCalculateProperties(t *testing.T) {
	incomes := []float64{0, 1200, 5000, 99999.99}
	savings := []float64{0, 1, 5000, 20000, 1e6}
	goals := []float64{0.01, 100, 10000, 250000}
	durations := []struct {
		d float64
		u DurationUnit
	}{{1, Months}, {7, Months}, {36, Months}, {1, Years}, {2.5, Years}}

	for _, income := range incomes {
		for _, s := range savings {
			for _, g := range goals {
				for _, dur := range durations {
					in := PlanInput{
						MonthlyIncome: income, MonthlyExpenses: 800,
						CurrentSavings: s, GoalAmount: g, Duration: dur.d, Unit: dur.u,
					}
					got, err := Calculate(in)
					if err != nil {
						t.Fatalf("%+v: unexpected error: %v", in, err)
					}
					months := dur.u.Months(dur.d)
					if !almostEqual(got.RequiredMonthlySavings*months+s, g) {
						t.Fatalf("%+v: required×months+savings = %v, want %v", in, got.RequiredMonthlySavings*months+s, g)
					}
					if got.Gap != got.MonthlySavingPotential-got.RequiredMonthlySavings {
						t.Fatalf("%+v: gap is not potential-required", in)
					}
					if got.ProgressPercentage < 0 || got.ProgressPercentage > 100 {
						t.Fatalf("%+v: progress %v out of range", in, got.ProgressPercentage)
					}
				}
			}
		}
	}
}

func TestCalculateRejectsDegenerateInput(t *testing.T) {
	zeroDuration := validPlan()
	zeroDuration.Duration = 0
	if _, err := Calculate(zeroDuration); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}

	negativeDuration := validPlan()
	negativeDuration.Duration = -3
	negativeDuration.Unit = Years
	if _, err := Calculate(negativeDuration); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}

	zeroGoal := validPlan()
	zeroGoal.GoalAmount = 0
	if _, err := Calculate(zeroGoal); !errors.Is(err, ErrInvalidGoalAmount) {
		t.Fatalf("expected ErrInvalidGoalAmount, got %v", err)
	}
}

func TestClampPercent(t *testing.T) {
	cases := map[float64]float64{-5: 0, 0: 0, 42.5: 42.5, 100: 100, 250: 100}
	for in, want := range cases {
		if got := ClampPercent(in); got != want {
			t.Fatalf("ClampPercent(%v) = %v, want %v", in, got, want)
		}
	}
}
