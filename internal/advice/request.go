// Package advice produces short financial advice for a calculation result.
//
// The server side (Advisor) turns a Request into a prompt for a text
// generation Provider. The client side (Requester) calls an Endpoint and
// never fails: any endpoint error is replaced by a deterministic fallback
// chosen from the sign of the monthly gap.
package advice

import (
	"errors"
	"math"

	"wealthwise/internal/core"
)

// Request is the payload of the advice endpoint.
type Request struct {
	MonthlySavingPotential float64 `json:"monthlySavingPotential"`
	RequiredMonthlySavings float64 `json:"requiredMonthlySavings"`
	Gap                    float64 `json:"gap"`
	ProgressPercentage     float64 `json:"progressPercentage"`
	GoalAmount             float64 `json:"goalAmount"`
	CurrentSavings         float64 `json:"currentSavings"`
	UserGoals              int     `json:"userGoals"`
	UserLevel              int     `json:"userLevel"`
}

// Response is the success body of the advice endpoint.
type Response struct {
	Advice string `json:"advice"`
}

// ErrorResponse is the failure body of the advice endpoint.
type ErrorResponse struct {
	Error string `json:"error"`
}

var ErrInvalidRequest = errors.New("invalid advice request")

func NewRequest(r core.CalculationResult, userGoals, userLevel int) Request {
	return Request{
		MonthlySavingPotential: r.MonthlySavingPotential,
		RequiredMonthlySavings: r.RequiredMonthlySavings,
		Gap:                    r.Gap,
		ProgressPercentage:     r.ProgressPercentage,
		GoalAmount:             r.GoalAmount,
		CurrentSavings:         r.CurrentSavings,
		UserGoals:              userGoals,
		UserLevel:              userLevel,
	}
}

// Validate rejects non-finite figures and negative counters.
func (r Request) Validate() error {
	for _, v := range []float64{
		r.MonthlySavingPotential, r.RequiredMonthlySavings, r.Gap,
		r.ProgressPercentage, r.GoalAmount, r.CurrentSavings,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrInvalidRequest
		}
	}
	if r.UserGoals < 0 || r.UserLevel < 0 {
		return ErrInvalidRequest
	}
	return nil
}
