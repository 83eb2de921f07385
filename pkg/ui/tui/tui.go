// Package tui is the interactive stage dashboard: a bubbletea program that
// shows a spinner, a progress bar, live counters and the latest items. It
// implements the orchestrator's Reporter, so the scraper feeds it directly.
package tui

import (
	"io"

	"catalogscraper/pkg/models"

	tea "github.com/charmbracelet/bubbletea"
)

// TUI runs the dashboard program in the background
type TUI struct {
	program *tea.Program
	done    chan struct{}
	final   *Model
	err     error
}

// New starts the dashboard on out. onInterrupt is called when the user
// presses q or ctrl+c. Extra options are passed to the program, which is how
// tests detach it from the terminal.
func New(out io.Writer, onInterrupt func(), opts ...tea.ProgramOption) *TUI {
	model := NewModel(onInterrupt)
	opts = append([]tea.ProgramOption{tea.WithOutput(out), tea.WithoutSignalHandler()}, opts...)

	t := &TUI{
		program: tea.NewProgram(&model, opts...),
		done:    make(chan struct{}),
		final:   &model,
	}
	go func() {
		defer close(t.done)
		m, err := t.program.Run()
		if fm, ok := m.(*Model); ok {
			t.final = fm
		}
		t.err = err
	}()
	return t
}

// Start implements scraper.Reporter
func (t *TUI) Start(stage models.Stage, total, skipped int) {
	t.program.Send(StageStartMsg{Stage: stage, Total: total, Skipped: skipped})
}

// Item implements scraper.Reporter
func (t *TUI) Item(key models.Key, outcome models.Outcome, records int, err error) {
	line := ItemLine{Key: key.String(), Outcome: outcome, Records: records}
	if err != nil {
		line.Err = err.Error()
	}
	t.program.Send(ItemMsg{Line: line})
}

// Close renders the final frame, stops the program and restores the terminal
func (t *TUI) Close() error {
	t.program.Send(StageDoneMsg{})
	<-t.done
	return t.err
}

// Model returns the final model. Only meaningful after Close.
func (t *TUI) Model() *Model {
	<-t.done
	return t.final
}
