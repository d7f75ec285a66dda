package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"wealthwise/internal/advice"
	"wealthwise/internal/cli"
	"wealthwise/internal/core"
)

// planFlags holds the planner figures shared by calc, advice and goals add.
// Amounts are strings so comma decimals are accepted.
type planFlags struct {
	income   string
	expenses string
	savings  string
	goal     string
	duration string
	unit     string
}

// register adds the plan flags. Optional figures are still validated by
// input when it runs.
func (f *planFlags) register(cmd *cobra.Command, required bool) {
	cmd.Flags().StringVar(&f.income, "income", "", "Monthly income")
	cmd.Flags().StringVar(&f.expenses, "expenses", "", "Monthly expenses")
	cmd.Flags().StringVar(&f.savings, "savings", "0", "Current savings")
	cmd.Flags().StringVar(&f.goal, "goal", "", "Goal amount")
	cmd.Flags().StringVar(&f.duration, "duration", "", "Time to reach the goal")
	cmd.Flags().StringVar(&f.unit, "unit", "months", "Duration unit: months or years")
	if !required {
		return
	}
	for _, name := range []string{"income", "expenses", "goal", "duration"} {
		_ = cmd.MarkFlagRequired(name)
	}
}

func (f *planFlags) input() (core.PlanInput, error) {
	var (
		in  core.PlanInput
		err error
	)
	for _, field := range []struct {
		name string
		raw  string
		dst  *float64
	}{
		{"income", f.income, &in.MonthlyIncome},
		{"expenses", f.expenses, &in.MonthlyExpenses},
		{"savings", f.savings, &in.CurrentSavings},
		{"goal", f.goal, &in.GoalAmount},
		{"duration", f.duration, &in.Duration},
	} {
		if *field.dst, err = core.ParseAmount(field.raw); err != nil {
			return core.PlanInput{}, fmt.Errorf("--%s: %w", field.name, err)
		}
	}
	if in.Unit, err = core.ParseDurationUnit(f.unit); err != nil {
		return core.PlanInput{}, fmt.Errorf("--unit: %w", err)
	}
	return in, in.Validate()
}

// adviceFlags bounds the advice request sent to the server.
type adviceFlags struct {
	timeout time.Duration
}

func (f *adviceFlags) register(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&f.timeout, "timeout", 20*time.Second, "Advice request timeout")
}

// request asks the server for advice. Failures come back as fallback text.
func (f *adviceFlags) request(ctx context.Context, result core.CalculationResult, userGoals, userLevel int) advice.Reply {
	endpoint := advice.NewHTTPEndpoint(serverURL(), nil)
	requester := advice.NewRequester(endpoint, advice.RequesterOptions{
		Prompt:  advice.PromptOptions{Currency: flagCurrency},
		Timeout: f.timeout,
		Logger:  commandLogger().Logger,
	})
	return requester.Request(ctx, result, userGoals, userLevel)
}

func printAdvice(reply advice.Reply) {
	fmt.Println()
	fmt.Println(cli.RenderTitle("Advice"))
	fmt.Println(reply.Advice)
	if reply.Source == advice.SourceFallback {
		fmt.Println(cli.RenderMuted(fmt.Sprintf("(offline advice: %s)", reply.ErrorKind)))
	}
}

var (
	calcPlan   planFlags
	calcAdvice adviceFlags
	calcAsk    bool
)

var calcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Calculate the monthly plan for a savings goal",
	Example: `  wealthctl calc --income 5000 --expenses 3000 --savings 1000 --goal 10000 --duration 12
  wealthctl calc --income 5000 --expenses 3000 --goal 50000 --duration 1 --unit years --advice`,
	RunE: runCalc,
}

func init() {
	calcPlan.register(calcCmd, true)
	calcAdvice.register(calcCmd)
	calcCmd.Flags().BoolVar(&calcAsk, "advice", false, "Ask the server for advice on the plan")
	rootCmd.AddCommand(calcCmd)
}

func runCalc(cmd *cobra.Command, _ []string) error {
	in, err := calcPlan.input()
	if err != nil {
		return err
	}
	result, err := core.Calculate(in)
	if err != nil {
		return err
	}

	fmt.Println(cli.RenderTitle("Savings plan"))
	fmt.Println(cli.RenderPlan(flagCurrency, result))

	if calcAsk {
		printAdvice(calcAdvice.request(cmd.Context(), result, 0, 1))
	}
	return nil
}
