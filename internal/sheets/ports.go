package sheets

import (
	"context"
	"strconv"

	"wealthwise/internal/core"
)

// Ports for outbound adapters.
type (
	// GoalExporter replaces the exported goal table with goals.
	GoalExporter interface {
		ExportGoals(ctx context.Context, goals []core.Goal) error
	}
)

// Header is the first row of an exported goal table.
var Header = []any{
	"ID", "Name", "Created", "Goal Amount", "Current Savings",
	"Monthly Income", "Monthly Expenses", "Duration", "Unit",
	"Progress %", "Completed",
}

// Rows renders goals as sheet rows in collection order, header first.
// Amounts are fixed two-decimal strings so USER_ENTERED input keeps them
// numeric without float noise.
func Rows(goals []core.Goal) [][]any {
	rows := make([][]any, 0, len(goals)+1)
	rows = append(rows, Header)
	for _, g := range goals {
		rows = append(rows, []any{
			g.ID,
			g.Name,
			g.CreatedAt.UTC().Format("2006-01-02"),
			core.FormatAmount(g.GoalAmount),
			core.FormatAmount(g.CurrentSavings),
			core.FormatAmount(g.MonthlyIncome),
			core.FormatAmount(g.MonthlyExpenses),
			strconv.FormatFloat(g.Duration, 'f', -1, 64),
			string(g.Unit),
			core.FormatPercent(g.Progress),
			strconv.FormatBool(g.Completed),
		})
	}
	return rows
}
