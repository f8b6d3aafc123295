package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. CHUNKFIRE_HOST or
// CHUNKFIRE_TRACING_ENDPOINT.
const EnvPrefix = "CHUNKFIRE"

// envKeys are the settings that may be supplied through the environment.
var envKeys = []string{
	"host", "port", "ssl", "path", "size", "delay", "timeout", "seed", "quiet",
	"benchmark", "concurrent", "workers", "launch_rate", "benchmark_path",
	"benchmark_delay", "json_output", "output_format",
	"tracing.endpoint", "tracing.protocol", "tracing.insecure", "tracing.sample_rate",
	"tracing.service_name", "tracing.propagate",
}

// Loader handles loading configuration from files, the environment and
// command-line arguments.
type Loader struct {
	lookupEnv func(string) (string, bool)
}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{lookupEnv: os.LookupEnv}
}

// Load parses command-line arguments, the environment and configuration files to
// produce a Config. Precedence, lowest first: defaults, config file, environment,
// positional arguments, flags.
func (l Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	// If nothing identifies a target, show help/usage
	configPath := flagSet.Lookup("config").Value.String()
	if len(args) == 0 && configPath == "" && !l.hasEnv("HOST") {
		displayHelp(cmd)
		return nil, ErrHelpRequested
	}

	cfgViper := viper.New()
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
	}
	cfgViper.SetEnvPrefix(EnvPrefix)
	cfgViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	for _, key := range envKeys {
		if err := cfgViper.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	settings := cfgViper.AllSettings()

	cfg := defaultConfig()
	cfg.ConfigFile = configPath

	if err := applyConfigSettings(cfg, settings); err != nil {
		return nil, err
	}

	if err := applyPositional(cfg, flagSet.Args()); err != nil {
		return nil, err
	}

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.OutputFormat = OutputFormat(strings.ToLower(string(cfg.OutputFormat)))

	return cfg, nil
}

func (l Loader) hasEnv(key string) bool {
	if l.lookupEnv == nil {
		return false
	}
	v, ok := l.lookupEnv(EnvPrefix + "_" + key)
	return ok && strings.TrimSpace(v) != ""
}

func defaultConfig() *Config {
	return &Config{
		SizeMB:         DefaultSizeMB,
		Delay:          DefaultDelay,
		Path:           DefaultPath,
		Timeout:        DefaultTimeout,
		Concurrency:    DefaultConcurrency,
		BenchmarkPath:  DefaultBenchmarkPath,
		BenchmarkDelay: DefaultBenchmarkDelay,
		OutputFormat:   OutputText,
		Tracing: TracingConfig{
			Protocol:   "grpc",
			SampleRate: 1.0,
		},
	}
}

// applyPositional reads the optional `host port` arguments.
func applyPositional(cfg *Config, args []string) error {
	if len(args) > 2 {
		return fmt.Errorf("expected at most 2 positional arguments (host port), got %d", len(args))
	}
	if len(args) >= 1 {
		cfg.Host = strings.TrimSpace(args[0])
	}
	if len(args) == 2 {
		port, err := strconv.Atoi(strings.TrimSpace(args[1]))
		if err != nil {
			return fmt.Errorf("port: invalid value %q", args[1])
		}
		cfg.Port = port
	}
	return nil
}

// applyConfigSettings applies settings from a config file or the environment to the
// Config struct.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	if raw, ok := lookupSetting(settings, "host"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("host: %w", err)
		}
		cfg.Host = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "port"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("port: %w", err)
		}
		cfg.Port = val
	}

	if raw, ok := lookupSetting(settings, "ssl", "tls"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("ssl: %w", err)
		}
		cfg.TLS = val
	}

	if raw, ok := lookupSetting(settings, "path"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("path: %w", err)
		}
		if val = strings.TrimSpace(val); val != "" {
			cfg.Path = val
		}
	}

	if raw, ok := lookupSetting(settings, "size"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return fmt.Errorf("size: %w", err)
		}
		cfg.SizeMB = val
	}

	if raw, ok := lookupSetting(settings, "delay"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("delay: %w", err)
		}
		cfg.Delay = dur
	}

	if raw, ok := lookupSetting(settings, "timeout"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		cfg.Timeout = dur
	}

	if raw, ok := lookupSetting(settings, "seed"); ok {
		val, err := asInt64(raw)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		cfg.Seed = val
	}

	if raw, ok := lookupSetting(settings, "quiet"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("quiet: %w", err)
		}
		cfg.Quiet = val
	}

	if raw, ok := lookupSetting(settings, "benchmark"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("benchmark: %w", err)
		}
		cfg.Benchmark = val
	}

	if raw, ok := lookupSetting(settings, "concurrent", "concurrency"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("concurrent: %w", err)
		}
		cfg.Concurrency = val
	}

	if raw, ok := lookupSetting(settings, "workers"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("workers: %w", err)
		}
		cfg.Workers = val
	}

	if raw, ok := lookupSetting(settings, "launchrate", "launch_rate", "launch-rate"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return fmt.Errorf("launchRate: %w", err)
		}
		cfg.LaunchRate = val
	}

	if raw, ok := lookupSetting(settings, "benchmarkpath", "benchmark_path", "benchmark-path"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("benchmarkPath: %w", err)
		}
		if val = strings.TrimSpace(val); val != "" {
			cfg.BenchmarkPath = val
		}
	}

	if raw, ok := lookupSetting(settings, "benchmarkdelay", "benchmark_delay", "benchmark-delay"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("benchmarkDelay: %w", err)
		}
		cfg.BenchmarkDelay = dur
	}

	if raw, ok := lookupSetting(settings, "jsonoutput", "json_output", "json-output"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("jsonOutput: %w", err)
		}
		cfg.JSONOutput = val
	}

	if raw, ok := lookupSetting(settings, "outputformat", "output_format", "output-format"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("outputFormat: %w", err)
		}
		if val = strings.TrimSpace(val); val != "" {
			cfg.OutputFormat = OutputFormat(val)
		}
	}

	if raw, ok := lookupSetting(settings, "tracing"); ok {
		if err := parseTracing(&cfg.Tracing, raw); err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
	}

	return nil
}

// parseTracing overlays the keys present in raw onto t.
func parseTracing(t *TracingConfig, raw interface{}) error {
	if raw == nil {
		return nil
	}
	m, err := toStringKeyMap(raw)
	if err != nil {
		return err
	}

	if v, ok := lookupSetting(m, "endpoint"); ok {
		s, err := asString(v)
		if err != nil {
			return fmt.Errorf("endpoint: %w", err)
		}
		t.Endpoint = strings.TrimSpace(s)
	}
	if v, ok := lookupSetting(m, "protocol"); ok {
		s, err := asString(v)
		if err != nil {
			return fmt.Errorf("protocol: %w", err)
		}
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			t.Protocol = s
		}
	}
	if v, ok := lookupSetting(m, "servicename", "service_name", "service-name"); ok {
		s, err := asString(v)
		if err != nil {
			return fmt.Errorf("service_name: %w", err)
		}
		t.ServiceName = strings.TrimSpace(s)
	}
	if v, ok := lookupSetting(m, "samplerate", "sample_rate", "sample-rate"); ok {
		f, err := asFloat64(v)
		if err != nil {
			return fmt.Errorf("sample_rate: %w", err)
		}
		t.SampleRate = f
	}
	if v, ok := lookupSetting(m, "insecure"); ok {
		b, err := asBool(v)
		if err != nil {
			return fmt.Errorf("insecure: %w", err)
		}
		t.Insecure = b
	}
	if v, ok := lookupSetting(m, "propagate"); ok && v != nil {
		b, err := asBool(v)
		if err != nil {
			return fmt.Errorf("propagate: %w", err)
		}
		t.Propagate = &b
	}
	return nil
}
