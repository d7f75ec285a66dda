package advice

import (
	"fmt"
	"strings"

	"wealthwise/internal/core"
)

type PromptOptions struct {
	// MaxChars is the length the model is asked to stay under.
	MaxChars int
	// Currency symbol prefixed to amounts.
	Currency string
	// Region qualifies investment suggestions, e.g. "Indian".
	Region string
}

func DefaultPromptOptions() PromptOptions {
	return PromptOptions{MaxChars: 400, Currency: "₹", Region: "Indian"}
}

func (o PromptOptions) withDefaults() PromptOptions {
	d := DefaultPromptOptions()
	if o.MaxChars <= 0 {
		o.MaxChars = d.MaxChars
	}
	if o.Currency == "" {
		o.Currency = d.Currency
	}
	return o
}

// BuildPrompt renders the instruction sent to the text generation provider.
func BuildPrompt(r Request, opts PromptOptions) string {
	opts = opts.withDefaults()
	money := func(v float64) string { return opts.Currency + core.FormatAmount(v) }

	standing := "surplus"
	if r.Gap < 0 {
		standing = "deficit"
	}

	var b strings.Builder
	b.WriteString("As a financial advisor, provide personalized advice based on the following financial data:\n\n")
	fmt.Fprintf(&b, "Monthly Saving Potential: %s\n", money(r.MonthlySavingPotential))
	fmt.Fprintf(&b, "Required Monthly Savings: %s\n", money(r.RequiredMonthlySavings))
	fmt.Fprintf(&b, "Monthly Gap/Surplus: %s (%s)\n", money(r.Gap), standing)
	fmt.Fprintf(&b, "Current Progress: %s%%\n", core.FormatPercent(r.ProgressPercentage))
	fmt.Fprintf(&b, "Goal Amount: %s\n", money(r.GoalAmount))
	fmt.Fprintf(&b, "Current Savings: %s\n", money(r.CurrentSavings))
	fmt.Fprintf(&b, "User Experience: Level %d with %d total goals\n\n", r.UserLevel, r.UserGoals)
	b.WriteString("Provide specific, actionable financial advice in 2-3 sentences that helps the user reach their goal.\n")
	b.WriteString("Focus on practical steps they can take based on their current financial situation.\n")
	fmt.Fprintf(&b, "Keep your response under %d characters.\n", opts.MaxChars)
	if opts.Region != "" {
		fmt.Fprintf(&b, "Include advice specific to the %s financial context, mentioning relevant investment options if appropriate.\n", opts.Region)
	}
	return b.String()
}
