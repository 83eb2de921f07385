package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"catalogscraper/pkg/models"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
	barWidth      = 20
)

// Progress prints one line per finished work item followed by a running
// bar. In quiet mode only failures are printed.
type Progress struct {
	mu        sync.Mutex
	out       io.Writer
	quiet     bool
	stage     models.Stage
	total     int
	done      int
	failed    int
	startTime time.Time
}

// NewProgress creates a progress printer writing to out
func NewProgress(out io.Writer, quiet bool) *Progress {
	return &Progress{out: out, quiet: quiet, startTime: time.Now()}
}

// Start resets the counters for a new stage
func (p *Progress) Start(stage models.Stage, total, skipped int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stage = stage
	p.total = total
	p.done = 0
	p.failed = 0
	p.startTime = time.Now()

	fmt.Fprintf(p.out, "%s %d items, %d already complete\n",
		Magenta("["+strings.ToUpper(string(stage))+"]"), total, skipped)
}

// Item records one finished item
func (p *Progress) Item(key models.Key, outcome models.Outcome, records int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done++
	if outcome == models.OutcomeFailed {
		p.failed++
	}
	if p.quiet && outcome != models.OutcomeFailed {
		return
	}

	var line string
	switch outcome {
	case models.OutcomeSucceeded:
		line = fmt.Sprintf("%s %s • %d records", Green("✓"), key, records)
	case models.OutcomeSkipped:
		line = Dim(fmt.Sprintf("- %s • complete", key))
	default:
		line = fmt.Sprintf("%s %s", Red("✗"), key)
		if err != nil {
			line += " • " + Red(err.Error())
		}
	}
	fmt.Fprintf(p.out, "%s %s\n", line, Dim(p.barLocked()))
}

// Bar returns the progress bar for the current stage
func (p *Progress) Bar() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.barLocked()
}

func (p *Progress) barLocked() string {
	filled := 0
	if p.total > 0 {
		filled = p.done * barWidth / p.total
	}
	if filled > barWidth {
		filled = barWidth
	}
	return fmt.Sprintf("[%s%s] %d/%d",
		strings.Repeat(ProgressBar, filled),
		strings.Repeat(ProgressEmpty, barWidth-filled),
		p.done, p.total)
}

// Rate returns finished items per minute since Start
func (p *Progress) Rate() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	elapsed := time.Since(p.startTime).Minutes()
	if elapsed == 0 {
		return 0
	}
	return float64(p.done) / elapsed
}

// Failed returns the number of failed items so far
func (p *Progress) Failed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failed
}
