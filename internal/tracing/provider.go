// Package tracing exports session spans over OTLP and carries W3C trace context in
// the upload preamble.
package tracing

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/torosent/chunkfire/internal/config"
)

// DefaultServiceName is reported when neither the config nor OTEL_SERVICE_NAME sets one.
const DefaultServiceName = "chunkfire"

const instrumentationName = "github.com/torosent/chunkfire"

// Run describes the upload run every exported span belongs to. It becomes the
// resource of the tracer provider, so a collector can tell runs apart without
// reading span attributes.
type Run struct {
	Version   string
	Host      string
	Port      int
	TLS       bool
	Benchmark bool
	Sessions  int
	SizeMB    float64
}

// RunFromConfig describes the run cfg configures.
func RunFromConfig(cfg config.Config, version string) Run {
	sessions := 1
	if cfg.Benchmark {
		sessions = cfg.Concurrency
	}
	return Run{
		Version:   version,
		Host:      cfg.Host,
		Port:      cfg.Port,
		TLS:       cfg.TLS,
		Benchmark: cfg.Benchmark,
		Sessions:  sessions,
		SizeMB:    cfg.SizeMB,
	}
}

func (r Run) mode() string {
	if r.Benchmark {
		return "benchmark"
	}
	return "single"
}

func (r Run) attributes(serviceName string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(serviceName),
		attribute.String("chunkfire.mode", r.mode()),
		attribute.Int("chunkfire.sessions", r.Sessions),
		attribute.Float64("chunkfire.payload_mb", r.SizeMB),
		attribute.Bool("chunkfire.tls", r.TLS),
	}
	if r.Version != "" {
		attrs = append(attrs, semconv.ServiceVersion(r.Version))
	}
	if r.Host != "" {
		attrs = append(attrs,
			attribute.String("chunkfire.target.address", r.Host),
			attribute.Int("chunkfire.target.port", r.Port),
		)
	}
	return attrs
}

// Provider owns the exporter pipeline of one run. The zero value and a nil
// *Provider are disabled: spans go nowhere and nothing is propagated.
type Provider struct {
	tp        *sdktrace.TracerProvider
	res       *resource.Resource
	tracer    trace.Tracer
	propagate bool
}

// Init builds the exporter pipeline for run. Without an endpoint (flag, config file or
// OTEL_EXPORTER_OTLP_ENDPOINT) it returns a disabled provider that may still
// propagate when cfg.Propagate forces it.
func Init(ctx context.Context, cfg config.TracingConfig, run Run) (*Provider, error) {
	endpoint := resolveEndpoint(cfg)
	if endpoint == "" {
		return &Provider{propagate: cfg.ShouldPropagate()}, nil
	}

	sampler, err := SessionSampler(cfg.SampleRate)
	if err != nil {
		return nil, err
	}

	res := resource.NewWithAttributes(semconv.SchemaURL, run.attributes(resolveServiceName(cfg))...)

	exporter, err := newExporter(ctx, cfg, endpoint)
	if err != nil {
		return nil, fmt.Errorf("tracing exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Provider{
		tp:        tp,
		res:       res,
		tracer:    tp.Tracer(instrumentationName, trace.WithInstrumentationVersion(run.Version)),
		propagate: cfg.ShouldPropagate(),
	}, nil
}

func resolveEndpoint(cfg config.TracingConfig) string {
	if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
		return endpoint
	}
	return strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
}

func resolveServiceName(cfg config.TracingConfig) string {
	if name := strings.TrimSpace(cfg.ServiceName); name != "" {
		return name
	}
	if name := os.Getenv("OTEL_SERVICE_NAME"); name != "" {
		return name
	}
	return DefaultServiceName
}

// Enabled reports whether spans are exported.
func (p *Provider) Enabled() bool { return p != nil && p.tp != nil }

// Resource returns the run resource, or nil when the provider is disabled.
func (p *Provider) Resource() *resource.Resource {
	if p == nil {
		return nil
	}
	return p.res
}

// Tracer returns the session tracer, or a no-op tracer when the provider is disabled.
func (p *Provider) Tracer() trace.Tracer {
	if p == nil || p.tracer == nil {
		return noop.NewTracerProvider().Tracer(instrumentationName)
	}
	return p.tracer
}

// ShouldPropagate reports whether sessions add W3C trace context to the preamble.
func (p *Provider) ShouldPropagate() bool {
	return p != nil && p.propagate
}

// Shutdown flushes pending spans. It is a no-op on a disabled provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if !p.Enabled() {
		return nil
	}
	return p.tp.Shutdown(ctx)
}

func newExporter(ctx context.Context, cfg config.TracingConfig, endpoint string) (sdktrace.SpanExporter, error) {
	switch protocol := strings.ToLower(strings.TrimSpace(cfg.Protocol)); protocol {
	case "", "grpc":
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(endpoint)}
		if cfg.Insecure {
			opts = append(opts,
				otlptracegrpc.WithInsecure(),
				otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
			)
		}
		return otlptracegrpc.New(ctx, opts...)
	case "http":
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q: use \"grpc\" or \"http\"", protocol)
	}
}
