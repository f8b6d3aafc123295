package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Phase span names.
const (
	PhaseConnect = "connect"
	PhaseSend    = "send"
	PhaseReceive = "receive"
)

// SessionAttrs describe the upload a session span covers.
type SessionAttrs struct {
	ID   string
	Host string
	Port int
	Path string
	TLS  bool
}

// StartSessionSpan starts the root span of one upload session.
func StartSessionSpan(ctx context.Context, tracer trace.Tracer, a SessionAttrs) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "chunked upload "+a.Path,
		trace.WithSpanKind(trace.SpanKindClient),
	)
	span.SetAttributes(
		attribute.String("http.request.method", "POST"),
		attribute.String("server.address", a.Host),
		attribute.Int("server.port", a.Port),
		attribute.String("url.path", a.Path),
		attribute.Bool("chunkfire.tls", a.TLS),
	)
	if a.ID != "" {
		span.SetAttributes(attribute.String("chunkfire.session_id", a.ID))
	}
	return ctx, span
}

// StartPhaseSpan starts a child span for one phase of a session.
func StartPhaseSpan(ctx context.Context, tracer trace.Tracer, phase string) (context.Context, trace.Span) {
	return tracer.Start(ctx, phase, trace.WithSpanKind(trace.SpanKindInternal))
}

// EndSpan finishes a span, recording error status if applicable.
func EndSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// InjectHeaders returns the W3C trace context of ctx as header name/value pairs,
// ready to be appended to the request preamble. It is empty without a recording span.
func InjectHeaders(ctx context.Context) map[string]string {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return carrier
}
