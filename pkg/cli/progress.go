package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"golang.org/x/time/rate"

	"mercator-hq/rulebench/pkg/engine"
)

// ProgressReporter reports progress for long-running operations.
type ProgressReporter interface {
	Start(total int64)
	Update(current int64)
	Finish()
	Error(err error)
}

// SimpleProgress implements a simple text-based progress reporter. On a
// terminal the bar is redrawn in place; other writers get one line per
// rendered update.
type SimpleProgress struct {
	mu          sync.Mutex
	total       int64
	current     int64
	started     time.Time
	writer      io.Writer
	interactive bool
	throttle    *rate.Sometimes
}

// DefaultRenderInterval is the minimum time between two renders of an
// update.
const DefaultRenderInterval = 100 * time.Millisecond

// NewProgressReporter creates a new progress reporter that writes to w.
// If w is nil, it defaults to os.Stderr.
func NewProgressReporter(w io.Writer) ProgressReporter {
	if w == nil {
		w = os.Stderr
	}
	return &SimpleProgress{
		writer:      w,
		interactive: IsTerminal(w),
		throttle:    &rate.Sometimes{Interval: DefaultRenderInterval},
	}
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Start initializes the progress reporter with the total number of items.
func (p *SimpleProgress) Start(total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	p.current = 0
	p.started = time.Now()

	p.render()
}

// Update updates the current progress. Renders are throttled.
func (p *SimpleProgress) Update(current int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = current
	p.throttle.Do(p.render)
}

// Finish marks the progress as complete.
func (p *SimpleProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = p.total
	p.render()
	if p.interactive {
		fmt.Fprintln(p.writer)
	}
}

// Error reports an error during progress.
func (p *SimpleProgress) Error(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.interactive {
		fmt.Fprintln(p.writer)
	}
	fmt.Fprintf(p.writer, "✗ Error: %v\n", err)
}

func (p *SimpleProgress) render() {
	if p.total == 0 {
		return
	}

	percent := float64(p.current) / float64(p.total) * 100
	elapsed := time.Since(p.started).Round(time.Second)

	eta := "?"
	if p.current > 0 {
		remaining := time.Duration(float64(time.Since(p.started)) * float64(p.total-p.current) / float64(p.current))
		eta = remaining.Round(time.Second).String()
	}

	if !p.interactive {
		fmt.Fprintf(p.writer, "Progress: %.1f%% elapsed %s eta %s\n", percent, elapsed, eta)
		return
	}

	barWidth := 40
	filled := int(float64(barWidth) * percent / 100)
	filled = min(max(filled, 0), barWidth)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	fmt.Fprintf(p.writer, "\rProgress: [%s] %5.1f%% elapsed %s eta %s   ", bar, percent, elapsed, eta)
}

// FollowEvents drives p from a run's event channel until the terminal event
// and returns the run outcome: nil on completion, engine.ErrStopped when
// force-stopped, or the run error. Progress is reported in tenths of a
// percent.
func FollowEvents(events <-chan engine.Event, p ProgressReporter) error {
	for ev := range events {
		switch ev.Type {
		case engine.EventStarted:
			p.Start(1000)
		case engine.EventProgress:
			p.Update(int64(ev.Progress * 10))
		case engine.EventCompleted:
			p.Finish()
			return nil
		case engine.EventForceStopped:
			p.Error(engine.ErrStopped)
			return engine.ErrStopped
		case engine.EventError:
			p.Error(ev.Err)
			return ev.Err
		}
	}
	return nil
}
