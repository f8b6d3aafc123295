package metrics

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/torosent/chunkfire/internal/failure"
)

const mebibit = 1024 * 1024

// Sample is the outcome of one benchmark session. Err is nil on success.
type Sample struct {
	Duration time.Duration
	Bytes    int64
	Chunks   int64
	Err      error
}

// Summary represents aggregated benchmark metrics. Only successful sessions feed the
// numeric fields; failed ones count against Successes and land in Errors.
type Summary struct {
	Requested      int            `json:"requested" yaml:"requested"`
	Successes      int            `json:"successes" yaml:"successes"`
	Failures       int            `json:"failures" yaml:"failures"`
	TotalBytes     int64          `json:"total_bytes" yaml:"total_bytes"`
	TotalChunks    int64          `json:"total_chunks" yaml:"total_chunks"`
	Span           time.Duration  `json:"-" yaml:"-"`
	MinDuration    time.Duration  `json:"-" yaml:"-"`
	MeanDuration   time.Duration  `json:"-" yaml:"-"`
	P50Duration    time.Duration  `json:"-" yaml:"-"`
	P90Duration    time.Duration  `json:"-" yaml:"-"`
	P99Duration    time.Duration  `json:"-" yaml:"-"`
	ThroughputMbps float64        `json:"throughput_mbps" yaml:"throughput_mbps"`
	Errors         map[string]int `json:"errors,omitempty" yaml:"errors,omitempty"`

	// Millisecond fields for the JSON and YAML reports.
	SpanMs         float64 `json:"span_ms" yaml:"span_ms"`
	MinDurationMs  float64 `json:"min_duration_ms" yaml:"min_duration_ms"`
	MeanDurationMs float64 `json:"mean_duration_ms" yaml:"mean_duration_ms"`
	P50DurationMs  float64 `json:"p50_duration_ms" yaml:"p50_duration_ms"`
	P90DurationMs  float64 `json:"p90_duration_ms" yaml:"p90_duration_ms"`
	P99DurationMs  float64 `json:"p99_duration_ms" yaml:"p99_duration_ms"`
}

// SuccessRatio returns Successes / Requested, or 0 when nothing was requested.
func (s Summary) SuccessRatio() float64 {
	if s.Requested <= 0 {
		return 0
	}
	return float64(s.Successes) / float64(s.Requested)
}

// Summarize aggregates samples against the requested session count.
func Summarize(requested int, samples []Sample) Summary {
	// Track durations from 1µs up to 1h with 3 significant figures.
	hist := hdrhistogram.New(1, int64(time.Hour/time.Microsecond), 3)
	summary := Summary{Requested: requested}

	var sum time.Duration
	for _, s := range samples {
		if s.Err != nil {
			summary.Failures++
			if summary.Errors == nil {
				summary.Errors = make(map[string]int)
			}
			summary.Errors[failure.Kind(s.Err)]++
			continue
		}
		summary.Successes++
		summary.TotalBytes += s.Bytes
		summary.TotalChunks += s.Chunks
		sum += s.Duration
		if s.Duration > summary.Span {
			summary.Span = s.Duration
		}
		if summary.MinDuration == 0 || s.Duration < summary.MinDuration {
			summary.MinDuration = s.Duration
		}
		recordDuration(hist, s.Duration)
	}

	if summary.Successes > 0 {
		summary.MeanDuration = sum / time.Duration(summary.Successes)
	}
	if hist.TotalCount() > 0 {
		summary.P50Duration = time.Duration(hist.ValueAtQuantile(50)) * time.Microsecond
		summary.P90Duration = time.Duration(hist.ValueAtQuantile(90)) * time.Microsecond
		summary.P99Duration = time.Duration(hist.ValueAtQuantile(99)) * time.Microsecond
	}
	summary.ThroughputMbps = Throughput(summary.TotalBytes, summary.Span)

	summary.SpanMs = millis(summary.Span)
	summary.MinDurationMs = millis(summary.MinDuration)
	summary.MeanDurationMs = millis(summary.MeanDuration)
	summary.P50DurationMs = millis(summary.P50Duration)
	summary.P90DurationMs = millis(summary.P90Duration)
	summary.P99DurationMs = millis(summary.P99Duration)
	return summary
}

// Throughput converts bytes moved over span into megabits per second
// (bytes × 8 ÷ (seconds × 1,048,576)). It is 0 when span is not positive.
func Throughput(bytes int64, span time.Duration) float64 {
	if span <= 0 {
		return 0
	}
	return float64(bytes) * 8 / (span.Seconds() * mebibit)
}

func recordDuration(h *hdrhistogram.Histogram, d time.Duration) {
	us := d.Microseconds()
	if us < h.LowestTrackableValue() {
		us = h.LowestTrackableValue()
	}
	if us > h.HighestTrackableValue() {
		us = h.HighestTrackableValue()
	}
	_ = h.RecordValue(us)
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// Collector records per-session samples in a thread-safe manner.
type Collector struct {
	mu        sync.Mutex
	requested int
	samples   []Sample
	start     time.Time
}

// NewCollector returns a collector expecting requested sessions.
func NewCollector(requested int) *Collector {
	return &Collector{
		requested: requested,
		samples:   make([]Sample, 0, max(requested, 0)),
		start:     time.Now(),
	}
}

// Start resets the wall clock used by Elapsed.
func (c *Collector) Start() {
	c.mu.Lock()
	c.start = time.Now()
	c.mu.Unlock()
}

// Record stores one session outcome.
func (c *Collector) Record(s Sample) {
	c.mu.Lock()
	c.samples = append(c.samples, s)
	c.mu.Unlock()
}

// Progress returns how many sessions finished and how many of those failed.
func (c *Collector) Progress() (done, failed int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.samples {
		if s.Err != nil {
			failed++
		}
	}
	return len(c.samples), failed
}

// Requested returns the number of sessions the collector expects.
func (c *Collector) Requested() int { return c.requested }

// Elapsed returns the time since the collector was created or last started.
func (c *Collector) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.start)
}

// Summary aggregates everything recorded so far.
func (c *Collector) Summary() Summary {
	c.mu.Lock()
	samples := make([]Sample, len(c.samples))
	copy(samples, c.samples)
	c.mu.Unlock()
	return Summarize(c.requested, samples)
}
