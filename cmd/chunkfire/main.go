package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/torosent/chunkfire/internal/config"
	"github.com/torosent/chunkfire/internal/logging"
	"github.com/torosent/chunkfire/internal/metrics"
	"github.com/torosent/chunkfire/internal/output"
	"github.com/torosent/chunkfire/internal/payload"
	"github.com/torosent/chunkfire/internal/runner"
	"github.com/torosent/chunkfire/internal/session"
	"github.com/torosent/chunkfire/internal/tracing"
	"github.com/torosent/chunkfire/internal/transport"
)

const (
	progressInterval = time.Second
	shutdownTimeout  = 5 * time.Second
)

const (
	version            = "1.0.0"
	interruptedMessage = "interrupted by user"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	for _, w := range cfg.Warnings() {
		fmt.Fprintln(stderr, w)
	}

	log := newLogger(*cfg, stderr)

	provider, err := tracing.Init(ctx, cfg.Tracing, tracing.RunFromConfig(*cfg, version))
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("tracing shutdown failed")
		}
	}()

	if cfg.Format() == config.OutputText {
		output.PrintBanner(stdout, *cfg)
	}

	if cfg.Benchmark {
		err = runBenchmark(ctx, *cfg, provider, log, stdout, stderr)
	} else {
		err = runSingle(ctx, *cfg, provider, log, stdout)
	}
	if interrupted(ctx, err) {
		fmt.Fprintln(stdout, "\n"+interruptedMessage)
		return nil
	}
	return err
}

func runSingle(ctx context.Context, cfg config.Config, provider *tracing.Provider, log zerolog.Logger, stdout io.Writer) error {
	opts := sessionOptions(cfg, provider, 0)
	opts.ID = ulid.Make().String()
	opts.Logger = log

	res, err := session.New(opts).Run(ctx)
	if err != nil {
		return err
	}
	return output.WriteSession(stdout, cfg.Format(), output.NewSessionReport(target(cfg), res))
}

func runBenchmark(ctx context.Context, cfg config.Config, provider *tracing.Provider, log zerolog.Logger, stdout, stderr io.Writer) error {
	collector := metrics.NewCollector(cfg.Concurrency)
	r := runner.New(runner.Options{
		Concurrency: cfg.Concurrency,
		Workers:     cfg.EffectiveWorkers(),
		LaunchRate:  cfg.LaunchRate,
		Collector:   collector,
		Logger:      log,
		Factory: func(index int, id string) runner.Session {
			opts := sessionOptions(cfg, provider, index)
			opts.ID = id
			// Concurrent sessions would interleave their progress lines.
			opts.Logger = zerolog.Nop()
			return session.New(opts)
		},
	})

	var progress *output.ProgressReporter
	if cfg.Format() == config.OutputText && !cfg.Quiet {
		progress = output.NewProgressReporter(collector, progressInterval, stderr)
		progress.Start()
	}
	result := r.Run(ctx)
	if progress != nil {
		progress.Stop()
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	report := output.NewBenchmarkReport(target(cfg), cfg.SizeMB, result)
	if err := output.WriteBenchmark(stdout, cfg.Format(), report); err != nil {
		return err
	}
	if result.Summary.Requested > 0 && result.Summary.Successes == 0 {
		return fmt.Errorf("all %d benchmark sessions failed", result.Summary.Requested)
	}
	return nil
}

// sessionOptions maps the configuration onto one session. index offsets the seed so
// seeded benchmark sessions still carry distinct payloads.
func sessionOptions(cfg config.Config, provider *tracing.Provider, index int) session.Options {
	opts := session.Options{
		Host:        cfg.Host,
		Port:        cfg.Port,
		Path:        cfg.RequestPath(),
		TLS:         cfg.TLS,
		Timeout:     cfg.Timeout,
		Delay:       cfg.Delay,
		TargetBytes: payload.MegabytesToBytes(cfg.SizeMB),
		Client:      clientInfo,
		Tracer:      provider.Tracer(),
		Propagate:   provider.ShouldPropagate(),
	}
	if cfg.Benchmark {
		opts.Delay = cfg.BenchmarkDelay
	}
	if cfg.TLS {
		opts.Wrapper = transport.TLSWrapper(nil)
	}
	if cfg.Seed != 0 {
		opts.Source = payload.NewSource(cfg.Seed+int64(index), nil)
	}
	return opts
}

var clientInfo = payload.ClientInfo{
	Name:     "chunkfire",
	Version:  version,
	Platform: runtime.GOOS + "/" + runtime.GOARCH,
}

// newLogger picks the progress sink. Structured reports get structured logs.
func newLogger(cfg config.Config, stderr io.Writer) zerolog.Logger {
	switch {
	case cfg.Quiet:
		return zerolog.Nop()
	case cfg.Format() != config.OutputText:
		return logging.NewJSON(stderr, zerolog.InfoLevel)
	default:
		return logging.New(stderr, true)
	}
}

func target(cfg config.Config) string {
	return net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)) + cfg.RequestPath()
}

// interrupted reports whether err stems from the signal context being cancelled.
func interrupted(ctx context.Context, err error) bool {
	return err != nil && errors.Is(ctx.Err(), context.Canceled)
}
