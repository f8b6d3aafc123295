package output

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/torosent/chunkfire/internal/metrics"
)

// ProgressReporter displays benchmark progress as sessions finish.
type ProgressReporter struct {
	collector *metrics.Collector
	ticker    *time.Ticker
	done      chan struct{}
	finished  chan struct{}
	writer    io.Writer
	active    int32
}

// NewProgressReporter creates a progress reporter that updates at the given interval.
func NewProgressReporter(collector *metrics.Collector, interval time.Duration, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	return &ProgressReporter{
		collector: collector,
		ticker:    time.NewTicker(interval),
		done:      make(chan struct{}),
		finished:  make(chan struct{}),
		writer:    writer,
	}
}

// Start begins displaying progress updates in a background goroutine.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return // already running
	}
	go p.run()
}

// Stop halts progress updates and prints the final counts.
func (p *ProgressReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.done)
		p.ticker.Stop()
		<-p.finished
		fmt.Fprintln(p.writer, p.line())
	}
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	for {
		select {
		case <-p.ticker.C:
			fmt.Fprint(p.writer, p.line())
		case <-p.done:
			return
		}
	}
}

func (p *ProgressReporter) line() string {
	done, failed := p.collector.Progress()
	requested := p.collector.Requested()
	pct := 0.0
	if requested > 0 {
		pct = float64(done) / float64(requested) * 100
	}
	elapsed := p.collector.Elapsed().Truncate(100 * time.Millisecond)
	return fmt.Sprintf("\rSessions: %d/%d (%.0f%%) | Failures: %d | Elapsed: %s",
		done, requested, pct, failed, elapsed)
}
