package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"wealthwise/internal/core"
	"wealthwise/internal/gamification"
)

// Theme colors
var (
	ColorBorder    = lipgloss.Color("#282726")
	ColorTextMuted = lipgloss.Color("#6F6E69")
	ColorText      = lipgloss.Color("#FFFCF0")
	ColorAccent    = lipgloss.Color("#3AA99F")
	ColorGreen     = lipgloss.Color("#879A39")
	ColorRed       = lipgloss.Color("#D14D41")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().
			Foreground(ColorText).
			Padding(0, 1)

	mutedStyle   = lipgloss.NewStyle().Foreground(ColorTextMuted)
	surplusStyle = lipgloss.NewStyle().Foreground(ColorGreen)
	deficitStyle = lipgloss.NewStyle().Foreground(ColorRed)
)

// RenderTitle renders a title in a bordered box.
func RenderTitle(title string) string {
	return titleStyle.Render(title)
}

// RenderMuted renders secondary text.
func RenderMuted(s string) string {
	return mutedStyle.Render(s)
}

// RenderTable renders a bordered table with headers and rows.
func RenderTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ColorBorder)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.String()
}

// FormatMoney renders an amount with thousands separators and two decimals.
func FormatMoney(currency string, v float64) string {
	if v < 0 {
		return "-" + currency + humanize.FormatFloat("#,###.##", -v)
	}
	return currency + humanize.FormatFloat("#,###.##", v)
}

// FormatGap renders the monthly gap coloured by standing.
func FormatGap(currency string, gap float64) string {
	if gap >= 0 {
		return surplusStyle.Render(FormatMoney(currency, gap) + " surplus")
	}
	return deficitStyle.Render(FormatMoney(currency, -gap) + " deficit")
}

// RenderPlan renders a calculation result.
func RenderPlan(currency string, r core.CalculationResult) string {
	rows := [][]string{
		{"Monthly saving potential", FormatMoney(currency, r.MonthlySavingPotential)},
		{"Required monthly savings", FormatMoney(currency, r.RequiredMonthlySavings)},
		{"Monthly gap", FormatGap(currency, r.Gap)},
		{"Progress", core.FormatPercent(r.ProgressPercentage) + "%"},
		{"Goal amount", FormatMoney(currency, r.GoalAmount)},
		{"Current savings", FormatMoney(currency, r.CurrentSavings)},
	}
	return RenderTable([]string{"Figure", "Value"}, rows)
}

// RenderGoals renders a goal collection, oldest first.
func RenderGoals(currency string, gs []core.Goal) string {
	if len(gs) == 0 {
		return RenderMuted("No goals saved yet.")
	}
	rows := make([][]string, 0, len(gs))
	for _, g := range gs {
		status := "active"
		if g.Completed {
			status = "completed"
		}
		rows = append(rows, []string{
			g.ID,
			g.Name,
			FormatMoney(currency, g.GoalAmount),
			FormatMoney(currency, g.CurrentSavings),
			core.FormatPercent(g.Progress) + "%",
			fmt.Sprintf("%s %s", humanize.Ftoa(g.Duration), g.Unit),
			status,
			g.CreatedAt.Format("2006-01-02"),
		})
	}
	return RenderTable([]string{"ID", "Name", "Goal", "Saved", "Progress", "Duration", "Status", "Created"}, rows)
}

// RenderProfile renders the level, progress and badges of a profile.
func RenderProfile(p gamification.Profile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Level %d  (%d of %d goals completed)\n", p.Level, p.CompletedGoals, p.TotalGoals)
	fmt.Fprintf(&b, "Next level %d at %s\n",
		p.NextLevel, english.Plural(p.GoalsForNextLevel, "completed goal", "completed goals"))

	rows := make([][]string, 0, len(p.Badges))
	for _, badge := range p.Badges {
		earned := "-"
		if badge.Earned {
			earned = "yes"
		}
		rows = append(rows, []string{badge.Title, badge.Description, earned})
	}
	b.WriteString(RenderTable([]string{"Badge", "Requirement", "Earned"}, rows))
	return b.String()
}
