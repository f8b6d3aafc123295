package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

type OutputFormat string

const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
	OutputYAML OutputFormat = "yaml"
)

const (
	DefaultSizeMB         = 5.0
	DefaultDelay          = 10 * time.Millisecond
	DefaultPath           = "/upload/stream"
	DefaultTimeout        = 60 * time.Second
	DefaultConcurrency    = 1
	DefaultBenchmarkPath  = "/upload/benchmark"
	DefaultBenchmarkDelay = time.Millisecond
)

type Config struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	SizeMB         float64       `mapstructure:"size"`
	Delay          time.Duration `mapstructure:"delay"`
	Path           string        `mapstructure:"path"`
	TLS            bool          `mapstructure:"ssl"`
	Timeout        time.Duration `mapstructure:"timeout"`
	Quiet          bool          `mapstructure:"quiet"`
	Seed           int64         `mapstructure:"seed"`
	Benchmark      bool          `mapstructure:"benchmark"`
	Concurrency    int           `mapstructure:"concurrent"`
	Workers        int           `mapstructure:"workers"`
	LaunchRate     float64       `mapstructure:"launch_rate"`
	BenchmarkPath  string        `mapstructure:"benchmark_path"`
	BenchmarkDelay time.Duration `mapstructure:"benchmark_delay"`
	JSONOutput     bool          `mapstructure:"json_output"`
	OutputFormat   OutputFormat  `mapstructure:"output_format"`
	ConfigFile     string        `mapstructure:"-"`
	Tracing        TracingConfig `mapstructure:"tracing"`
}

// TracingConfig controls OpenTelemetry export of session spans.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // "grpc" (default) or "http"
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
	Propagate   *bool   `mapstructure:"propagate"` // nil follows Enabled
}

// Enabled reports whether an exporter endpoint is configured, directly or through
// OTEL_EXPORTER_OTLP_ENDPOINT.
func (t TracingConfig) Enabled() bool {
	if strings.TrimSpace(t.Endpoint) != "" {
		return true
	}
	return os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != ""
}

// ShouldPropagate reports whether W3C trace context is added to the request preamble.
func (t TracingConfig) ShouldPropagate() bool {
	if t.Propagate != nil {
		return *t.Propagate
	}
	return t.Enabled()
}

// Format returns the effective report format. --json-output is shorthand for json.
func (c Config) Format() OutputFormat {
	if c.OutputFormat != "" && c.OutputFormat != OutputText {
		return c.OutputFormat
	}
	if c.JSONOutput {
		return OutputJSON
	}
	return OutputText
}

// EffectiveWorkers returns the worker bound, defaulting to one worker per session.
func (c Config) EffectiveWorkers() int {
	if c.Workers <= 0 {
		return c.Concurrency
	}
	return c.Workers
}

// RequestPath returns the upload path for the current mode.
func (c Config) RequestPath() string {
	if c.Benchmark {
		return c.BenchmarkPath
	}
	return c.Path
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

// Warnings lists settings that are valid but worth flagging before a run starts.
func (c Config) Warnings() []string {
	var warnings []string
	if c.Concurrency > 500 {
		warnings = append(warnings, fmt.Sprintf("WARNING: High concurrency configured (%d sessions). Ensure you have authorization to test the target system.", c.Concurrency))
	}
	if c.SizeMB > 1024 {
		warnings = append(warnings, fmt.Sprintf("WARNING: Large payload configured (%.1f MB per session).", c.SizeMB))
	}
	return warnings
}

func (c Config) Validate() error {
	var issues []string

	if strings.TrimSpace(c.Host) == "" {
		issues = append(issues, "host is required (use --help for usage information)")
	}
	if c.Port < 1 || c.Port > 65535 {
		issues = append(issues, fmt.Sprintf("port must be between 1 and 65535, got %d", c.Port))
	}

	if c.SizeMB < 0 {
		issues = append(issues, "size must be >= 0")
	}
	if c.Delay < 0 {
		issues = append(issues, "delay must be >= 0")
	}
	if c.BenchmarkDelay < 0 {
		issues = append(issues, "benchmark delay must be >= 0")
	}
	if c.Timeout < 0 {
		issues = append(issues, "timeout must be >= 0")
	}
	if c.Concurrency < 1 {
		issues = append(issues, "concurrent must be >= 1")
	}
	if c.Workers < 0 {
		issues = append(issues, "workers must be >= 0")
	}
	if c.LaunchRate < 0 {
		issues = append(issues, "launch rate must be >= 0")
	}
	if !strings.HasPrefix(c.Path, "/") {
		issues = append(issues, fmt.Sprintf("path must start with '/', got %q", c.Path))
	}
	if c.Benchmark && !strings.HasPrefix(c.BenchmarkPath, "/") {
		issues = append(issues, fmt.Sprintf("benchmark path must start with '/', got %q", c.BenchmarkPath))
	}

	switch c.OutputFormat {
	case "", OutputText, OutputJSON, OutputYAML:
	default:
		issues = append(issues, fmt.Sprintf("output format must be 'text', 'json' or 'yaml', got %q", c.OutputFormat))
	}

	issues = append(issues, validateTracingConfig(c.Tracing)...)

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

func validateTracingConfig(t TracingConfig) []string {
	var issues []string
	if t.SampleRate < 0 || t.SampleRate > 1 {
		issues = append(issues, fmt.Sprintf("tracing: sample_rate must be between 0.0 and 1.0, got %g", t.SampleRate))
	}
	switch strings.ToLower(strings.TrimSpace(t.Protocol)) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing: protocol must be 'grpc' or 'http', got %q", t.Protocol))
	}
	return issues
}
