package tui

import (
	"catalogscraper/pkg/models"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// StageStartMsg is sent when a stage begins
type StageStartMsg struct {
	Stage   models.Stage
	Total   int
	Skipped int
}

// ItemMsg is sent for every finished work item
type ItemMsg struct {
	Line ItemLine
}

// StageDoneMsg ends the program after a final render
type StageDoneMsg struct{}

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.resize(msg.Width)
		return m, nil

	case spinner.TickMsg:
		if m.finished {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case StageStartMsg:
		m.startStage(msg.Stage, msg.Total, msg.Skipped)
		return m, nil

	case ItemMsg:
		m.addItem(msg.Line)
		return m, nil

	case StageDoneMsg:
		m.finished = true
		return m, tea.Quit
	}

	return m, nil
}

// handleKeyPress stops the run on the first q or ctrl+c. In-flight items
// still finish; a second press leaves the dashboard at once.
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		if m.interrupted {
			return m, tea.Quit
		}
		m.interrupted = true
		if m.onInterrupt != nil {
			m.onInterrupt()
		}
	}
	return m, nil
}
