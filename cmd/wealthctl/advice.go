package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"wealthwise/internal/cli"
	"wealthwise/internal/core"
	"wealthwise/internal/gamification"
)

var (
	advicePlan  planFlags
	adviceOpts  adviceFlags
	adviceGoals bool
)

var adviceCmd = &cobra.Command{
	Use:   "advice [GOAL_ID]",
	Short: "Ask the server for advice on a plan or a saved goal",
	Long: "Ask a running wealthwise server for advice. With a goal ID the saved goal's figures\n" +
		"are used; otherwise the plan flags are required. Server failures fall back to\n" +
		"offline advice.",
	Args: cobra.MaximumNArgs(1),
	RunE: runAdvice,
}

func init() {
	advicePlan.register(adviceCmd, false)
	adviceOpts.register(adviceCmd)
	adviceCmd.Flags().BoolVar(&adviceGoals, "with-profile", true, "Include goal count and level from the saved goals")
	rootCmd.AddCommand(adviceCmd)
}

func runAdvice(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		return withGoals(cmd.Context(), func(svc cli.GoalService) error {
			goal, all, err := cli.Get(cmd.Context(), svc, args[0])
			if err != nil {
				return err
			}
			return adviseOn(cmd, goal.Plan(), len(all), gamification.Derive(all).Level)
		})
	}

	in, err := advicePlan.input()
	if err != nil {
		return err
	}
	if !adviceGoals {
		return adviseOn(cmd, in, 0, 1)
	}
	return withGoals(cmd.Context(), func(svc cli.GoalService) error {
		all, err := svc.List(cmd.Context())
		if err != nil {
			return err
		}
		return adviseOn(cmd, in, len(all), gamification.Derive(all).Level)
	})
}

func adviseOn(cmd *cobra.Command, in core.PlanInput, userGoals, userLevel int) error {
	result, err := core.Calculate(in)
	if err != nil {
		return err
	}
	fmt.Println(cli.RenderPlan(flagCurrency, result))
	printAdvice(adviceOpts.request(cmd.Context(), result, userGoals, userLevel))
	return nil
}
