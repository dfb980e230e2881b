package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"mailkeep-hq/mailkeep/pkg/jobs"
)

// ProgressReporter mirrors a running cleanup job's batch progress for
// interactive commands.
type ProgressReporter interface {
	Start()
	Observe(progress jobs.Progress)
	Finish()
	Error(err error)
}

// SimpleProgress renders a single-line text progress bar from the
// persisted job progress.
type SimpleProgress struct {
	mu      sync.Mutex
	started time.Time
	last    jobs.Progress
	writer  io.Writer
}

// NewProgressReporter creates a progress reporter that writes to w.
// If w is nil, it defaults to os.Stdout.
func NewProgressReporter(w io.Writer) ProgressReporter {
	if w == nil {
		w = os.Stdout
	}
	return &SimpleProgress{writer: w}
}

// Start begins the elapsed-time clock used for the cleanup rate.
func (p *SimpleProgress) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.started = time.Now()
}

// Observe renders the latest observed progress. Nothing is rendered
// until the job reports its batch plan.
func (p *SimpleProgress) Observe(progress jobs.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.last = progress
	p.render()
}

// Finish completes the bar and ends the line.
func (p *SimpleProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.last.TotalBatches == 0 {
		return
	}
	p.last.CurrentBatch = p.last.TotalBatches
	p.last.PercentComplete = 100
	p.render()
	fmt.Fprintln(p.writer)
}

// Error reports a failure mid-run on its own line.
func (p *SimpleProgress) Error(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.writer, "\n✗ Error: %v\n", err)
}

func (p *SimpleProgress) render() {
	if p.last.TotalBatches == 0 {
		return
	}

	percent := p.last.PercentComplete
	barWidth := 40
	filled := int(float64(barWidth) * percent / 100)
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	elapsed := time.Since(p.started).Seconds()
	var rate float64
	if elapsed > 0 {
		rate = float64(p.last.EmailsCleaned) / elapsed
	}

	fmt.Fprintf(p.writer, "\rBatch %d/%d [%s] %.1f%%  %d cleaned  %.1f emails/s",
		p.last.CurrentBatch, p.last.TotalBatches, bar, percent, p.last.EmailsCleaned, rate)
}
