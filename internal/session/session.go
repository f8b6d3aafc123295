// Package session runs one complete chunked upload: connect, stream the payload
// bundle, collect the response and finalize the transfer stats.
package session

import (
	"context"
	"net/textproto"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/torosent/chunkfire/internal/clientmetrics"
	"github.com/torosent/chunkfire/internal/payload"
	"github.com/torosent/chunkfire/internal/response"
	"github.com/torosent/chunkfire/internal/tracing"
	"github.com/torosent/chunkfire/internal/transport"
)

// Options configure one session.
type Options struct {
	ID      string
	Host    string
	Port    int
	Path    string
	TLS     bool
	Timeout time.Duration
	Delay   time.Duration

	// TargetBytes sizes the generated bundle when Bundle is nil.
	TargetBytes int64
	Bundle      *payload.Bundle
	Source      payload.Source     // defaults to payload.NewRandomSource()
	Client      payload.ClientInfo // zero means payload.DefaultClientInfo

	UserAgent string
	Wrapper   transport.SecureWrapper
	Dialer    transport.Dialer
	Logger    zerolog.Logger
	Tracer    trace.Tracer
	Propagate bool // add W3C trace context to the preamble
	Clock     func() time.Time
}

// Result is what a successful session produced.
type Result struct {
	ID       string
	Response *response.Response
	Stats    clientmetrics.Snapshot
	Chunks   int // payloads in the bundle, header and footer included
}

// Runner executes a session. A Runner is single use.
type Runner struct {
	opts Options
}

// New returns a Runner for opts.
func New(opts Options) *Runner {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Tracer == nil {
		opts.Tracer = noop.NewTracerProvider().Tracer("session")
	}
	return &Runner{opts: opts}
}

// Run dials, sends the bundle and reads the response. The connection is closed on
// every path. Errors are *failure.ConnectionError, *failure.TransferError or
// *failure.TimeoutError.
func (r *Runner) Run(ctx context.Context) (res *Result, err error) {
	opts := r.opts
	log := opts.Logger
	tracer := opts.Tracer

	ctx, span := tracing.StartSessionSpan(ctx, tracer, tracing.SessionAttrs{
		ID:   opts.ID,
		Host: opts.Host,
		Port: opts.Port,
		Path: opts.Path,
		TLS:  opts.TLS,
	})
	defer func() {
		var attrs []attribute.KeyValue
		if res != nil {
			attrs = append(attrs,
				attribute.Int64("chunkfire.bytes_sent", res.Stats.Bytes),
				attribute.Int64("chunkfire.chunks_sent", res.Stats.Chunks),
				attribute.Int("http.response.status_code", res.Response.StatusCode()),
			)
		}
		tracing.EndSpan(span, err, attrs...)
	}()

	tOpts := transport.Options{
		Host:      opts.Host,
		Port:      opts.Port,
		TLS:       opts.TLS,
		Timeout:   opts.Timeout,
		Delay:     opts.Delay,
		UserAgent: opts.UserAgent,
		Wrapper:   opts.Wrapper,
		Dialer:    opts.Dialer,
		Logger:    log,
		Clock:     opts.Clock,
	}
	if opts.Propagate {
		tOpts.Headers = traceHeaders(ctx)
	}

	connectCtx, connectSpan := tracing.StartPhaseSpan(ctx, tracer, tracing.PhaseConnect)
	t, err := transport.Dial(connectCtx, tOpts)
	tracing.EndSpan(connectSpan, err)
	if err != nil {
		return nil, err
	}
	defer t.Close()

	bundle := opts.Bundle
	if bundle == nil {
		src := opts.Source
		if src == nil {
			src = payload.NewRandomSource()
		}
		gen := payload.NewGenerator(src)
		if opts.Client != (payload.ClientInfo{}) {
			gen.WithClientInfo(opts.Client)
		}
		bundle = gen.Generate(opts.TargetBytes)
	}
	payloads := bundle.Payloads()
	log.Info().
		Int("chunks", bundle.Len()).
		Int64("data_bytes", bundle.DataBytes()).
		Int64("total_bytes", bundle.TotalBytes()).
		Msg("payload ready")

	sendCtx, sendSpan := tracing.StartPhaseSpan(ctx, tracer, tracing.PhaseSend)
	err = t.Send(sendCtx, opts.Path, payloads)
	tracing.EndSpan(sendSpan, err, attribute.Int64("chunkfire.bytes_sent", t.Stats().Bytes()))
	if err != nil {
		return nil, err
	}

	recvCtx, recvSpan := tracing.StartPhaseSpan(ctx, tracer, tracing.PhaseReceive)
	resp, err := response.Read(recvCtx, t.Conn(), response.NewDetector(log), opts.Timeout)
	if err == nil {
		recvSpan.SetAttributes(
			attribute.Int("chunkfire.bytes_received", len(resp.Raw)),
			attribute.String("chunkfire.response_mode", resp.Mode.String()),
			attribute.Bool("chunkfire.partial", resp.Partial),
		)
	}
	tracing.EndSpan(recvSpan, err)
	if err != nil {
		return nil, err
	}

	stats := t.Stats()
	stats.AddReceived(len(resp.Raw))
	stats.MarkEnd(opts.Clock())
	snap := stats.Snapshot()

	log.Info().
		Str("status", resp.StatusLine()).
		Int("bytes", len(resp.Raw)).
		Str("mode", resp.Mode.String()).
		Bool("partial", resp.Partial).
		Dur("duration", snap.Duration).
		Msg("response received")

	return &Result{
		ID:       opts.ID,
		Response: resp,
		Stats:    snap,
		Chunks:   len(payloads),
	}, nil
}

// traceHeaders converts the injected trace context into preamble headers in a
// stable order.
func traceHeaders(ctx context.Context) []transport.Header {
	injected := tracing.InjectHeaders(ctx)
	if len(injected) == 0 {
		return nil
	}
	names := make([]string, 0, len(injected))
	for name := range injected {
		names = append(names, name)
	}
	sort.Strings(names)

	headers := make([]transport.Header, 0, len(names))
	for _, name := range names {
		headers = append(headers, transport.Header{Name: textproto.CanonicalMIMEHeaderKey(name), Value: injected[name]})
	}
	return headers
}
