package advice

import (
	"fmt"

	"wealthwise/internal/core"
)

// Fallback returns the local advice used when the endpoint fails. The text
// depends only on gap: a non-negative gap gets the surplus wording, a
// negative one the deficit wording, both naming |gap|.
func Fallback(gap float64, opts PromptOptions) string {
	opts = opts.withDefaults()
	amount := opts.Currency + core.FormatAbsAmount(gap)

	funds := "mutual funds"
	if opts.Region != "" {
		funds = opts.Region + " mutual funds"
	}

	if gap >= 0 {
		return fmt.Sprintf("You're on track to meet your goal! You have a surplus of %s per month. "+
			"Consider investing this extra amount in %s or a fixed deposit to reach your goal faster.", amount, funds)
	}
	return fmt.Sprintf("You need to either increase your income, reduce expenses by %s per month, "+
		"or extend your goal timeline to meet your target. Consider reviewing your SIP investments if you have any.", amount)
}
