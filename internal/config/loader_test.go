package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestAsString(t *testing.T) {
	tests := []struct {
		input interface{}
		want  string
	}{
		{"hello", "hello"},
		{123, "123"},
		{true, "true"},
		{nil, ""},
		{[]byte("bytes"), "bytes"},
	}

	for _, tt := range tests {
		got, err := asString(tt.input)
		if err != nil {
			t.Errorf("asString(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asString(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestAsInt(t *testing.T) {
	tests := []struct {
		input interface{}
		want  int
	}{
		{123, 123},
		{"456", 456},
		{int64(789), 789},
		{float64(10.0), 10},
		{nil, 0},
	}

	for _, tt := range tests {
		got, err := asInt(tt.input)
		if err != nil {
			t.Errorf("asInt(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asInt(%v) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestAsInt64(t *testing.T) {
	tests := []struct {
		input interface{}
		want  int64
	}{
		{int64(1) << 40, 1 << 40},
		{"1099511627776", 1 << 40},
		{42, 42},
		{nil, 0},
	}

	for _, tt := range tests {
		got, err := asInt64(tt.input)
		if err != nil {
			t.Errorf("asInt64(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asInt64(%v) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestAsBool(t *testing.T) {
	tests := []struct {
		input interface{}
		want  bool
	}{
		{true, true},
		{"true", true},
		{"1", true},
		{false, false},
		{"false", false},
		{"0", false},
		{nil, false},
	}

	for _, tt := range tests {
		got, err := asBool(tt.input)
		if err != nil {
			t.Errorf("asBool(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asBool(%v) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestAsDuration(t *testing.T) {
	tests := []struct {
		input interface{}
		want  time.Duration
	}{
		{time.Second, time.Second},
		{"1m", time.Minute},
		{"0.01", 10 * time.Millisecond}, // unitless strings are seconds
		{10, 10 * time.Second},           // int treated as seconds
		{0.001, time.Millisecond},        // fractions are kept
		{nil, 0},
	}

	for _, tt := range tests {
		got, err := asDuration(tt.input)
		if err != nil {
			t.Errorf("asDuration(%v) error = %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("asDuration(%v) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestApplyConfigSettings(t *testing.T) {
	cfg := defaultConfig()
	settings := map[string]interface{}{
		"host":       "example.com",
		"port":       "8080",
		"concurrent": 10,
		"timeout":    "5s",
		"tracing": map[interface{}]interface{}{
			"Endpoint":     "localhost:4317",
			"service_name": "uploader",
			"propagate":    "false",
		},
	}

	if err := applyConfigSettings(cfg, settings); err != nil {
		t.Fatalf("applyConfigSettings() error = %v", err)
	}

	if cfg.Host != "example.com" || cfg.Port != 8080 {
		t.Errorf("target = %s:%d, want example.com:8080", cfg.Host, cfg.Port)
	}
	if cfg.Concurrency != 10 {
		t.Errorf("Concurrency = %d, want 10", cfg.Concurrency)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", cfg.Timeout)
	}
	if cfg.Tracing.Endpoint != "localhost:4317" || cfg.Tracing.ServiceName != "uploader" {
		t.Errorf("Tracing = %+v", cfg.Tracing)
	}
	if cfg.Tracing.Propagate == nil || *cfg.Tracing.Propagate {
		t.Errorf("Tracing.Propagate = %v, want explicit false", cfg.Tracing.Propagate)
	}
	if cfg.Path != DefaultPath {
		t.Errorf("Path = %q, untouched default expected", cfg.Path)
	}
}

func TestApplyConfigSettingsRejectsBadTypes(t *testing.T) {
	cases := map[string]map[string]interface{}{
		"port":    {"port": "eighty"},
		"size":    {"size": []int{1}},
		"ssl":     {"ssl": "maybe"},
		"tracing": {"tracing": "collector"},
	}
	for name, settings := range cases {
		if err := applyConfigSettings(defaultConfig(), settings); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := defaultConfig()

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	configureFlags(fs)

	args := []string{
		"--concurrent=5",
		"--delay=0",
		"--benchmark-delay=0.005",
		"--output-format=YAML",
		"--tracing-endpoint=otel:4317",
		"--tracing-sample-rate=0.25",
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if err := applyFlagOverrides(cfg, fs); err != nil {
		t.Fatalf("applyFlagOverrides() error = %v", err)
	}

	if cfg.Concurrency != 5 {
		t.Errorf("Concurrency = %d, want 5", cfg.Concurrency)
	}
	if cfg.Delay != 0 {
		t.Errorf("Delay = %s, want 0", cfg.Delay)
	}
	if cfg.BenchmarkDelay != 5*time.Millisecond {
		t.Errorf("BenchmarkDelay = %s, want 5ms", cfg.BenchmarkDelay)
	}
	if cfg.OutputFormat != OutputYAML {
		t.Errorf("OutputFormat = %q, want yaml", cfg.OutputFormat)
	}
	if cfg.Tracing.Endpoint != "otel:4317" || cfg.Tracing.SampleRate != 0.25 {
		t.Errorf("Tracing = %+v", cfg.Tracing)
	}
	if cfg.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %s, unchanged flag must not override", cfg.Timeout)
	}
}

func TestApplyPositional(t *testing.T) {
	cfg := defaultConfig()
	if err := applyPositional(cfg, []string{"host.local"}); err != nil {
		t.Fatalf("applyPositional() error = %v", err)
	}
	if cfg.Host != "host.local" || cfg.Port != 0 {
		t.Errorf("target = %s:%d", cfg.Host, cfg.Port)
	}
}
