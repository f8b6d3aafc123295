package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/torosent/chunkfire/internal/clientmetrics"
	"github.com/torosent/chunkfire/internal/config"
	"github.com/torosent/chunkfire/internal/metrics"
	"github.com/torosent/chunkfire/internal/response"
	"github.com/torosent/chunkfire/internal/runner"
	"github.com/torosent/chunkfire/internal/session"
)

const rule = "============================================================"

// SessionReport is the outcome of a single upload.
type SessionReport struct {
	ID       string                 `json:"id,omitempty" yaml:"id,omitempty"`
	Target   string                 `json:"target" yaml:"target"`
	Chunks   int                    `json:"chunks" yaml:"chunks"`
	Stats    clientmetrics.Snapshot `json:"stats" yaml:"stats"`
	Mbps     float64                `json:"mbps" yaml:"mbps"`
	Response response.Summary       `json:"response" yaml:"response"`
}

// NewSessionReport digests res for display.
func NewSessionReport(target string, res *session.Result) SessionReport {
	if res == nil {
		return SessionReport{Target: target}
	}
	return SessionReport{
		ID:       res.ID,
		Target:   target,
		Chunks:   res.Chunks,
		Stats:    res.Stats,
		Mbps:     res.Stats.Mbps(),
		Response: response.Summarize(res.Response, response.DefaultSummaryHeaders, response.DefaultSummaryBody),
	}
}

// SessionRow is one line of the per-session benchmark table.
type SessionRow struct {
	Index      int     `json:"index" yaml:"index"`
	ID         string  `json:"id,omitempty" yaml:"id,omitempty"`
	DurationMs float64 `json:"duration_ms" yaml:"duration_ms"`
	Bytes      int64   `json:"bytes" yaml:"bytes"`
	Status     string  `json:"status,omitempty" yaml:"status,omitempty"`
	Error      string  `json:"error,omitempty" yaml:"error,omitempty"`
}

// BenchmarkReport is the outcome of a concurrent run.
type BenchmarkReport struct {
	Target    string                `json:"target" yaml:"target"`
	SizeMB    float64               `json:"size_mb" yaml:"size_mb"`
	ElapsedMs float64               `json:"elapsed_ms" yaml:"elapsed_ms"`
	Summary   metrics.Summary       `json:"summary" yaml:"summary"`
	Errors    []metrics.ErrorBucket `json:"error_breakdown,omitempty" yaml:"error_breakdown,omitempty"`
	Sessions  []SessionRow          `json:"sessions" yaml:"sessions"`
}

// NewBenchmarkReport digests a runner result for display.
func NewBenchmarkReport(target string, sizeMB float64, res runner.Result) BenchmarkReport {
	rows := make([]SessionRow, 0, len(res.Records))
	for _, rec := range res.Records {
		row := SessionRow{
			Index:      rec.Index,
			DurationMs: float64(rec.Duration) / float64(time.Millisecond),
			Bytes:      rec.Bytes,
			Status:     rec.Status,
		}
		if rec.ID.Time() != 0 {
			row.ID = rec.ID.String()
		}
		if rec.Err != nil {
			row.Error = rec.Err.Error()
		}
		rows = append(rows, row)
	}
	return BenchmarkReport{
		Target:    target,
		SizeMB:    sizeMB,
		ElapsedMs: float64(res.Duration) / float64(time.Millisecond),
		Summary:   res.Summary,
		Errors:    metrics.FlattenErrors(res.Summary.Errors),
		Sessions:  rows,
	}
}

// PrintBanner outputs the run configuration before anything is sent.
func PrintBanner(w io.Writer, cfg config.Config) {
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "Chunked HTTP upload client")
	fmt.Fprintf(w, "Target: %s:%d%s\n", cfg.Host, cfg.Port, cfg.RequestPath())
	if cfg.Benchmark {
		fmt.Fprintf(w, "Mode:   benchmark (%d sessions, %d workers)\n", cfg.Concurrency, cfg.EffectiveWorkers())
	}
	fmt.Fprintf(w, "Size:   %.2f MB\n", cfg.SizeMB)
	fmt.Fprintf(w, "Delay:  %s per chunk\n", effectiveDelay(cfg))
	fmt.Fprintf(w, "TLS:    %s\n", yesNo(cfg.TLS))
	fmt.Fprintln(w, rule)
}

// PrintSessionReport outputs a human-readable summary of one upload.
func PrintSessionReport(w io.Writer, rep SessionReport) {
	resp := rep.Response
	fmt.Fprintln(w, "\nServer response summary:")
	fmt.Fprintln(w, strings.Repeat("-", 40))
	fmt.Fprintf(w, "Status: %s\n", resp.StatusLine)
	for _, h := range resp.Headers {
		fmt.Fprintf(w, "Header: %s\n", h)
	}
	if resp.Partial {
		fmt.Fprintln(w, "Note:   response incomplete (read timed out or connection dropped)")
	}
	if order := resp.FieldOrder(); len(order) > 0 {
		fmt.Fprintln(w, "\nJSON fields:")
		for _, key := range order {
			fmt.Fprintf(w, "  %s: %s\n", key, resp.JSONFields[key])
		}
	}
	if resp.Body != "" {
		fmt.Fprintf(w, "\nBody (first %d characters):\n", response.DefaultSummaryBody)
		fmt.Fprintln(w, strings.Repeat("-", 40))
		fmt.Fprintln(w, resp.Body)
		if resp.Truncated {
			fmt.Fprintf(w, "... (%d characters total)\n", resp.BodyChars)
		}
	}

	st := rep.Stats
	fmt.Fprintln(w, "\n"+rule)
	fmt.Fprintln(w, "Transfer statistics:")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Start:             %s\n", formatTime(st.Start))
	fmt.Fprintf(w, "End:               %s\n", formatTime(st.End))
	fmt.Fprintf(w, "Duration:          %.2f s\n", st.Duration.Seconds())
	fmt.Fprintf(w, "Chunks:            %s\n", groupThousands(st.Chunks))
	fmt.Fprintf(w, "Bytes:             %s\n", groupThousands(st.Bytes))
	fmt.Fprintf(w, "Mean chunk size:   %s bytes\n", groupThousands(int64(st.MeanChunkSize()+0.5)))
	if st.BytesPerSec > 0 {
		fmt.Fprintf(w, "Transfer rate:     %.2f KB/s (%.2f Mbps)\n", st.BytesPerSec/1024, st.Mbps())
	}
	fmt.Fprintf(w, "Data size:         %.2f MB\n", float64(st.Bytes)/(1024*1024))
	fmt.Fprintf(w, "Bytes received:    %s\n", groupThousands(st.BytesReceived))
	fmt.Fprintln(w, rule)
}

// PrintBenchmarkReport outputs a human-readable summary of a concurrent run.
func PrintBenchmarkReport(w io.Writer, rep BenchmarkReport) {
	s := rep.Summary
	fmt.Fprintln(w, "\n--- Benchmark Results ---")
	fmt.Fprintf(w, "Successful:        %d/%d (%.1f%%)\n", s.Successes, s.Requested, s.SuccessRatio()*100)
	fmt.Fprintf(w, "Total data:        %.2f MB\n", float64(s.TotalBytes)/(1024*1024))
	fmt.Fprintf(w, "Wall span:         %.2f s\n", s.Span.Seconds())
	fmt.Fprintf(w, "Mean duration:     %.2f s\n", s.MeanDuration.Seconds())
	fmt.Fprintf(w, "Throughput:        %.2f Mbps\n", s.ThroughputMbps)
	if s.Successes > 0 {
		fmt.Fprintln(w, "\nSession duration:")
		fmt.Fprintf(w, "  Min:             %s\n", s.MinDuration)
		fmt.Fprintf(w, "  P50:             %s\n", s.P50Duration)
		fmt.Fprintf(w, "  P90:             %s\n", s.P90Duration)
		fmt.Fprintf(w, "  P99:             %s\n", s.P99Duration)
	}
	if len(rep.Errors) > 0 {
		fmt.Fprintln(w, "\nFailures:")
		for _, row := range rep.Errors {
			fmt.Fprintf(w, "  %s: %d\n", row.Label, row.Count)
		}
	}
	if len(rep.Sessions) > 0 {
		fmt.Fprintln(w, "\nSessions:")
		for _, row := range rep.Sessions {
			if row.Error != "" {
				fmt.Fprintf(w, "  [%d] failed: %s\n", row.Index, row.Error)
				continue
			}
			fmt.Fprintf(w, "  [%d] done: %.2f s, %s bytes\n", row.Index, row.DurationMs/1000, groupThousands(row.Bytes))
		}
	}
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// PrintYAMLReport outputs a YAML-formatted report.
func PrintYAMLReport(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode yaml report: %w", err)
	}
	return enc.Close()
}

// WriteSession renders rep in format.
func WriteSession(w io.Writer, format config.OutputFormat, rep SessionReport) error {
	return write(w, format, rep, func() { PrintSessionReport(w, rep) })
}

// WriteBenchmark renders rep in format.
func WriteBenchmark(w io.Writer, format config.OutputFormat, rep BenchmarkReport) error {
	return write(w, format, rep, func() { PrintBenchmarkReport(w, rep) })
}

func write(w io.Writer, format config.OutputFormat, v any, text func()) error {
	switch format {
	case config.OutputJSON:
		return PrintJSONReport(w, v)
	case config.OutputYAML:
		return PrintYAMLReport(w, v)
	default:
		text()
		return nil
	}
}

func effectiveDelay(cfg config.Config) time.Duration {
	if cfg.Benchmark {
		return cfg.BenchmarkDelay
	}
	return cfg.Delay
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05.000")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// groupThousands formats n with comma separators.
func groupThousands(n int64) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
