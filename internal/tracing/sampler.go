package tracing

import (
	"fmt"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// SessionSampler makes one sampling decision per upload session. A session span
// (a client-kind root) is kept with probability rate; its phase spans inherit that
// decision, so a session is exported whole or not at all. Root spans that are not
// sessions are dropped. A rate of 0 drops everything.
func SessionSampler(rate float64) (sdktrace.Sampler, error) {
	if rate < 0 || rate > 1 {
		return nil, fmt.Errorf("tracing sample_rate must be between 0.0 and 1.0, got %g", rate)
	}
	var root sdktrace.Sampler
	switch {
	case rate == 0:
		root = sdktrace.NeverSample()
	case rate == 1:
		root = sdktrace.AlwaysSample()
	default:
		root = sdktrace.TraceIDRatioBased(rate)
	}
	return sessionSampler{root: root}, nil
}

type sessionSampler struct {
	root sdktrace.Sampler
}

func (s sessionSampler) ShouldSample(p sdktrace.SamplingParameters) sdktrace.SamplingResult {
	parent := trace.SpanContextFromContext(p.ParentContext)
	if parent.IsValid() {
		decision := sdktrace.Drop
		if parent.IsSampled() {
			decision = sdktrace.RecordAndSample
		}
		return sdktrace.SamplingResult{Decision: decision, Tracestate: parent.TraceState()}
	}
	if p.Kind != trace.SpanKindClient {
		return sdktrace.SamplingResult{Decision: sdktrace.Drop}
	}
	return s.root.ShouldSample(p)
}

func (s sessionSampler) Description() string {
	return "SessionSampler{" + s.root.Description() + "}"
}
