package ui

import (
	"fmt"
	"strings"
	"time"

	"catalogscraper/pkg/models"

	"github.com/charmbracelet/lipgloss"
)

var (
	accent = lipgloss.Color("#00FFFF")
	good   = lipgloss.Color("#39FF14")
	bad    = lipgloss.Color("#FF0000")
	faint  = lipgloss.Color("#B0B0B0")

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 2)

	titleStyle = lipgloss.NewStyle().
			Foreground(accent).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(faint).
			Width(11)

	successStyle = lipgloss.NewStyle().
			Foreground(good).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(bad).
			Bold(true)
)

// RenderSummary draws the end-of-run box for a stage
func RenderSummary(s *models.Summary) string {
	row := func(label string, value string) string {
		return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
	}

	failed := fmt.Sprint(s.Failed)
	if s.Failed > 0 {
		failed = errorStyle.Render(failed)
	}

	lines := []string{
		titleStyle.Render(strings.ToUpper(string(s.Stage)) + " COMPLETE"),
		"",
		row("attempted", fmt.Sprint(s.Attempted)),
		row("succeeded", successStyle.Render(fmt.Sprint(s.Succeeded))),
		row("failed", failed),
		row("skipped", fmt.Sprint(s.Skipped)),
		row("records", fmt.Sprint(s.Records)),
		row("duration", s.Duration.Round(time.Millisecond).String()),
		row("run", s.RunID),
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}
