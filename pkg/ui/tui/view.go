package tui

import (
	"fmt"
	"strings"
	"time"

	"catalogscraper/pkg/models"

	"github.com/charmbracelet/lipgloss"
)

// View renders the dashboard
func (m *Model) View() string {
	if m.stage == "" {
		return m.spinner.View() + " Starting..."
	}

	sections := []string{
		m.renderHeader(),
		m.renderCounts(),
	}
	if len(m.recent) > 0 {
		sections = append(sections, "", m.renderRecent())
	}
	if len(m.failures) > 0 {
		sections = append(sections, "", m.renderFailures())
	}

	switch {
	case m.finished:
	case m.interrupted:
		sections = append(sections, "", warningStyle.Render("Stopping after in-flight items... (q again to leave)"))
	default:
		sections = append(sections, "", dimStyle.Render("q to stop"))
	}

	return panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, sections...)) + "\n"
}

func (m *Model) renderHeader() string {
	icon := m.spinner.View()
	if m.finished {
		icon = successStyle.Render("✓")
	}
	return fmt.Sprintf("%s %s %s %s %3.0f%%",
		icon,
		stageStyle.Render(strings.ToUpper(string(m.stage))),
		countStyle.Render(fmt.Sprintf("%d/%d", m.done, m.total)),
		m.bar.ViewAs(m.Percent()),
		m.Percent()*100,
	)
}

func (m *Model) renderCounts() string {
	parts := []string{
		successStyle.Render(fmt.Sprintf("✓ %d", m.succeeded)),
		errorStyle.Render(fmt.Sprintf("✗ %d", m.failed)),
		labelStyle.Render(fmt.Sprintf("already complete %d", m.skipped)),
		labelStyle.Render("records ") + countStyle.Render(fmt.Sprint(m.records)),
		labelStyle.Render("elapsed ") + countStyle.Render(time.Since(m.startTime).Round(time.Second).String()),
	}
	return strings.Join(parts, "  ")
}

func (m *Model) renderRecent() string {
	lines := make([]string, 0, len(m.recent))
	for _, l := range m.recent {
		switch l.Outcome {
		case models.OutcomeSucceeded:
			lines = append(lines, fmt.Sprintf("%s %s %s", successStyle.Render("✓"), l.Key, dimStyle.Render(fmt.Sprintf("• %d records", l.Records))))
		case models.OutcomeSkipped:
			lines = append(lines, dimStyle.Render("- "+l.Key+" • complete"))
		default:
			lines = append(lines, fmt.Sprintf("%s %s", errorStyle.Render("✗"), l.Key))
		}
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderFailures() string {
	lines := []string{warningStyle.Render("Recent failures")}
	for _, l := range m.failures {
		lines = append(lines, fmt.Sprintf("%s %s", l.Key, errorStyle.Render(truncate(l.Err, m.width-len(l.Key)-8))))
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, max int) string {
	if max < 20 {
		max = 20
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
