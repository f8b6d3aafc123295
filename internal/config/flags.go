package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "chunkfire [host] [port]",
		Short:         "Stream large chunked uploads to an HTTP server",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Target flags
	flags.String("host", "", "Target host (alternative to the first positional argument)")
	flags.Int("port", 0, "Target port (alternative to the second positional argument)")
	flags.Bool("ssl", false, "Use TLS for the connection")
	flags.StringP("path", "p", DefaultPath, "Upload path for single-session mode")

	// Transfer flags
	flags.Float64P("size", "s", DefaultSizeMB, "Payload size per session in megabytes")
	flags.Float64P("delay", "d", DefaultDelay.Seconds(), "Pause after each chunk in seconds")
	flags.Float64P("timeout", "t", DefaultTimeout.Seconds(), "Connect, write and read timeout in seconds")
	flags.Int64("seed", 0, "Seed for payload generation (0 means random)")

	// Benchmark flags
	flags.BoolP("benchmark", "b", false, "Run concurrent benchmark sessions")
	flags.IntP("concurrent", "c", DefaultConcurrency, "Number of benchmark sessions")
	flags.Int("workers", 0, "Maximum sessions in flight (0 means one per session)")
	flags.Float64("launch-rate", 0, "Session launches per second (0 means unlimited)")
	flags.String("benchmark-path", DefaultBenchmarkPath, "Upload path for benchmark sessions")
	flags.Float64("benchmark-delay", DefaultBenchmarkDelay.Seconds(), "Pause after each chunk in benchmark sessions, in seconds")

	// Output flags
	flags.BoolP("quiet", "q", false, "Suppress progress logging")
	flags.Bool("json-output", false, "Emit JSON formatted report")
	flags.String("output-format", string(OutputText), "Report format: 'text', 'json' or 'yaml'")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")

	// Tracing flags
	flags.String("tracing-endpoint", "", "OTLP collector endpoint (enables tracing)")
	flags.String("tracing-protocol", "grpc", "OTLP protocol: 'grpc' or 'http'")
	flags.Bool("tracing-insecure", false, "Disable TLS for the OTLP exporter")
	flags.Float64("tracing-sample-rate", 1.0, "Trace sampling ratio between 0.0 and 1.0")
	flags.String("tracing-service-name", "", "Service name reported with spans")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config, overriding
// values from the config file and environment.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("host") {
		val, err := fs.GetString("host")
		if err != nil {
			return err
		}
		cfg.Host = strings.TrimSpace(val)
	}
	if fs.Changed("port") {
		val, err := fs.GetInt("port")
		if err != nil {
			return err
		}
		cfg.Port = val
	}
	if fs.Changed("ssl") {
		val, err := fs.GetBool("ssl")
		if err != nil {
			return err
		}
		cfg.TLS = val
	}
	if fs.Changed("path") {
		val, err := fs.GetString("path")
		if err != nil {
			return err
		}
		cfg.Path = strings.TrimSpace(val)
	}
	if fs.Changed("size") {
		val, err := fs.GetFloat64("size")
		if err != nil {
			return err
		}
		cfg.SizeMB = val
	}
	if fs.Changed("delay") {
		val, err := fs.GetFloat64("delay")
		if err != nil {
			return err
		}
		cfg.Delay = secondsToDuration(val)
	}
	if fs.Changed("timeout") {
		val, err := fs.GetFloat64("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = secondsToDuration(val)
	}
	if fs.Changed("seed") {
		val, err := fs.GetInt64("seed")
		if err != nil {
			return err
		}
		cfg.Seed = val
	}
	if fs.Changed("benchmark") {
		val, err := fs.GetBool("benchmark")
		if err != nil {
			return err
		}
		cfg.Benchmark = val
	}
	if fs.Changed("concurrent") {
		val, err := fs.GetInt("concurrent")
		if err != nil {
			return err
		}
		cfg.Concurrency = val
	}
	if fs.Changed("workers") {
		val, err := fs.GetInt("workers")
		if err != nil {
			return err
		}
		cfg.Workers = val
	}
	if fs.Changed("launch-rate") {
		val, err := fs.GetFloat64("launch-rate")
		if err != nil {
			return err
		}
		cfg.LaunchRate = val
	}
	if fs.Changed("benchmark-path") {
		val, err := fs.GetString("benchmark-path")
		if err != nil {
			return err
		}
		cfg.BenchmarkPath = strings.TrimSpace(val)
	}
	if fs.Changed("benchmark-delay") {
		val, err := fs.GetFloat64("benchmark-delay")
		if err != nil {
			return err
		}
		cfg.BenchmarkDelay = secondsToDuration(val)
	}
	if fs.Changed("quiet") {
		val, err := fs.GetBool("quiet")
		if err != nil {
			return err
		}
		cfg.Quiet = val
	}
	if fs.Changed("json-output") {
		val, err := fs.GetBool("json-output")
		if err != nil {
			return err
		}
		cfg.JSONOutput = val
	}
	if fs.Changed("output-format") {
		val, err := fs.GetString("output-format")
		if err != nil {
			return err
		}
		cfg.OutputFormat = OutputFormat(strings.ToLower(strings.TrimSpace(val)))
	}

	if fs.Changed("tracing-endpoint") {
		val, err := fs.GetString("tracing-endpoint")
		if err != nil {
			return err
		}
		cfg.Tracing.Endpoint = strings.TrimSpace(val)
	}
	if fs.Changed("tracing-protocol") {
		val, err := fs.GetString("tracing-protocol")
		if err != nil {
			return err
		}
		cfg.Tracing.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("tracing-insecure") {
		val, err := fs.GetBool("tracing-insecure")
		if err != nil {
			return err
		}
		cfg.Tracing.Insecure = val
	}
	if fs.Changed("tracing-sample-rate") {
		val, err := fs.GetFloat64("tracing-sample-rate")
		if err != nil {
			return err
		}
		cfg.Tracing.SampleRate = val
	}
	if fs.Changed("tracing-service-name") {
		val, err := fs.GetString("tracing-service-name")
		if err != nil {
			return err
		}
		cfg.Tracing.ServiceName = strings.TrimSpace(val)
	}

	return nil
}
