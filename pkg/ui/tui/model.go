package tui

import (
	"time"

	"catalogscraper/pkg/models"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	maxRecent   = 8
	maxFailures = 5
	minBarWidth = 10
	maxBarWidth = 60
)

// ItemLine is one finished work item as shown in the dashboard
type ItemLine struct {
	Key     string
	Outcome models.Outcome
	Records int
	Err     string
}

// Model is the bubbletea model behind the stage dashboard. Update and View
// run on the program's event loop only.
type Model struct {
	spinner spinner.Model
	bar     progress.Model

	stage     models.Stage
	total     int
	skipped   int
	done      int
	succeeded int
	failed    int
	records   int
	startTime time.Time

	recent   []ItemLine
	failures []ItemLine

	width       int
	finished    bool
	interrupted bool
	onInterrupt func()
}

// NewModel creates an empty dashboard. onInterrupt is called once when the
// user asks to stop; it may be nil.
func NewModel(onInterrupt func()) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(neonCyan)

	return Model{
		spinner:     s,
		bar:         progress.New(progress.WithDefaultGradient(), progress.WithWidth(40), progress.WithoutPercentage()),
		startTime:   time.Now(),
		onInterrupt: onInterrupt,
	}
}

// Init starts the spinner
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *Model) startStage(stage models.Stage, total, skipped int) {
	m.stage = stage
	m.total = total
	m.skipped = skipped
	m.done = 0
	m.succeeded = 0
	m.failed = 0
	m.records = 0
	m.recent = nil
	m.failures = nil
	m.finished = false
	m.startTime = time.Now()
}

func (m *Model) addItem(line ItemLine) {
	m.done++
	switch line.Outcome {
	case models.OutcomeSucceeded:
		m.succeeded++
		m.records += line.Records
	case models.OutcomeFailed:
		m.failed++
		m.failures = appendCapped(m.failures, line, maxFailures)
	}
	m.recent = appendCapped(m.recent, line, maxRecent)
}

func (m *Model) resize(width int) {
	m.width = width
	w := width - 30
	if w < minBarWidth {
		w = minBarWidth
	}
	if w > maxBarWidth {
		w = maxBarWidth
	}
	m.bar.Width = w
}

// Percent is the share of the stage's items finished so far
func (m Model) Percent() float64 {
	if m.total == 0 {
		return 1
	}
	return float64(m.done) / float64(m.total)
}

// Done returns the number of finished items
func (m Model) Done() int { return m.done }

// Failed returns the number of failed items
func (m Model) Failed() int { return m.failed }

// Records returns the records produced by successful items
func (m Model) Records() int { return m.records }

// Interrupted reports whether the user asked to stop
func (m Model) Interrupted() bool { return m.interrupted }

func appendCapped(lines []ItemLine, line ItemLine, max int) []ItemLine {
	lines = append(lines, line)
	if len(lines) > max {
		lines = lines[len(lines)-max:]
	}
	return lines
}
