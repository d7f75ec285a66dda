package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"wealthwise/internal/cli"
	"wealthwise/internal/core"
	"wealthwise/internal/gamification"
)

var goalsCmd = &cobra.Command{
	Use:   "goals",
	Short: "Manage saved goals",
}

var goalsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved goals",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withGoals(cmd.Context(), func(svc cli.GoalService) error {
			all, err := svc.List(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(cli.RenderGoals(flagCurrency, all))
			return nil
		})
	},
}

var goalsAddPlan planFlags

var goalsAddCmd = &cobra.Command{
	Use:     "add NAME",
	Short:   "Save a new goal",
	Args:    cobra.ExactArgs(1),
	Example: `  wealthctl goals add "New car" --income 5000 --expenses 3000 --savings 1000 --goal 10000 --duration 1 --unit years`,
	RunE: func(cmd *cobra.Command, args []string) error {
		plan, err := goalsAddPlan.input()
		if err != nil {
			return err
		}
		return withGoals(cmd.Context(), func(svc cli.GoalService) error {
			goal, all, err := svc.Create(cmd.Context(), core.GoalInput{Name: args[0], PlanInput: plan})
			if err != nil {
				return err
			}
			fmt.Printf("Saved goal %s (%s)\n", goal.Name, goal.ID)
			fmt.Println(cli.RenderGoals(flagCurrency, all))
			return nil
		})
	},
}

var goalsCompleteCmd = &cobra.Command{
	Use:   "complete ID",
	Short: "Mark a goal as completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGoals(cmd.Context(), func(svc cli.GoalService) error {
			current, err := svc.List(cmd.Context())
			if err != nil {
				return err
			}
			before := gamification.Derive(current)
			all, err := svc.Complete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			after := gamification.Derive(all)
			fmt.Printf("Goal %s completed\n", args[0])
			if after.Level > before.Level {
				fmt.Printf("Level up! You are now level %d\n", after.Level)
			}
			return nil
		})
	},
}

var goalsDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a goal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGoals(cmd.Context(), func(svc cli.GoalService) error {
			all, err := svc.Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Goal %s deleted, %d left\n", args[0], len(all))
			return nil
		})
	},
}

var (
	progressValue   float64
	progressSavings string
)

var goalsProgressCmd = &cobra.Command{
	Use:   "progress ID",
	Short: "Update the progress of a goal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var savings *float64
		if progressSavings != "" {
			v, err := core.ParseAmount(progressSavings)
			if err != nil {
				return fmt.Errorf("--savings: %w", err)
			}
			savings = &v
		}
		return withGoals(cmd.Context(), func(svc cli.GoalService) error {
			all, err := svc.UpdateProgress(cmd.Context(), args[0], progressValue, savings)
			if err != nil {
				return err
			}
			fmt.Println(cli.RenderGoals(flagCurrency, all))
			return nil
		})
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show level and badges",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withGoals(cmd.Context(), func(svc cli.GoalService) error {
			all, err := svc.List(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(cli.RenderProfile(gamification.Derive(all)))
			return nil
		})
	},
}

func init() {
	goalsAddPlan.register(goalsAddCmd, true)

	goalsProgressCmd.Flags().Float64Var(&progressValue, "progress", 0, "Progress in percent (clamped to 0-100)")
	goalsProgressCmd.Flags().StringVar(&progressSavings, "savings", "", "Current savings (unchanged when omitted)")
	_ = goalsProgressCmd.MarkFlagRequired("progress")

	goalsCmd.AddCommand(goalsListCmd, goalsAddCmd, goalsCompleteCmd, goalsDeleteCmd, goalsProgressCmd)
	rootCmd.AddCommand(goalsCmd, profileCmd)
}
