package reprocess

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker reports batch reprocessing progress as carriage-returned
// lines on a writer, throttled to every reportInterval episodes. Safe for
// concurrent use.
type ProgressTracker struct {
	mu sync.Mutex

	writer         io.Writer
	total          int
	reportInterval int

	current      int
	lastReported int
	startedAt    time.Time
	started      bool
}

// NewProgressTracker creates a tracker over total episodes that reports
// every reportInterval episodes. Output typically goes to os.Stderr.
func NewProgressTracker(writer io.Writer, total, reportInterval int) *ProgressTracker {
	return &ProgressTracker{
		writer:         writer,
		total:          total,
		reportInterval: reportInterval,
	}
}

// Start resets the tracker and begins timing. Updates before Start are
// ignored.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startedAt = time.Now()
	p.started = true
	p.current = 0
	p.lastReported = 0
}

// Update sets progress to an absolute value, capped at total.
func (p *ProgressTracker) Update(current int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.advance(current)
}

// Increment advances progress by delta, capped at total.
func (p *ProgressTracker) Increment(delta int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.advance(p.current + delta)
}

// Finish forces progress to total, emits a final report, and terminates
// the progress line.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}
	p.current = p.total
	p.report()
	fmt.Fprintln(p.writer)
}

// Elapsed returns the time since Start, or zero if never started.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}
	return time.Since(p.startedAt)
}

// advance moves progress to current and reports when a report interval has
// been crossed. Caller holds the lock.
func (p *ProgressTracker) advance(current int) {
	if !p.started {
		return
	}
	p.current = min(current, p.total)
	if p.current-p.lastReported >= p.reportInterval {
		p.report()
		p.lastReported = p.current
	}
}

// report writes one progress line. Caller holds the lock.
func (p *ProgressTracker) report() {
	percentage := 100.0
	if p.total > 0 {
		percentage = float64(p.current) / float64(p.total) * 100.0
	}
	rate := float64(p.current) / time.Since(p.startedAt).Seconds()
	fmt.Fprintf(p.writer, "\rProgress: %d/%d (%.1f%%) - %.1f episodes/s",
		p.current, p.total, percentage, rate)
}
