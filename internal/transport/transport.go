// Package transport owns the client connection of a session and streams payloads
// over it with HTTP/1.1 chunked transfer encoding.
package transport

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/torosent/chunkfire/internal/clientmetrics"
	"github.com/torosent/chunkfire/internal/failure"
)

// DefaultUserAgent identifies the client in the request preamble.
const DefaultUserAgent = "chunkfire/1.0 (Go)"

const (
	writeBufferSize = 32 * 1024
	// progressSteps gives a progress line roughly every 5% of chunks.
	progressSteps = 20
)

// Dialer opens the raw TCP connection. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Options configure a Transport.
type Options struct {
	Host      string
	Port      int
	TLS       bool
	Timeout   time.Duration // bound on connect, handshake and every write; 0 disables
	Delay     time.Duration // pause after every chunk; 0 disables pacing
	UserAgent string
	Headers   []Header      // extra preamble headers, e.g. trace context
	Wrapper   SecureWrapper // used when TLS is set; defaults to TLSWrapper(nil)
	Dialer    Dialer
	Logger    zerolog.Logger
	Clock     func() time.Time
}

// Addr returns host:port.
func (o Options) Addr() string {
	return net.JoinHostPort(o.Host, strconv.Itoa(o.Port))
}

// Transport sends one chunked request over a connection it exclusively owns.
type Transport struct {
	opts   Options
	conn   net.Conn
	stats  *clientmetrics.TransferStats
	closed bool
}

// Dial connects to opts.Addr(), upgrading to TLS when requested. Any failure is a
// *failure.ConnectionError and leaves no connection open.
func Dial(ctx context.Context, opts Options) (*Transport, error) {
	addr := opts.Addr()
	dialer := opts.Dialer
	if dialer == nil {
		dialer = &net.Dialer{Timeout: opts.Timeout}
	}

	opts.Logger.Info().Str("addr", addr).Msg("connecting")
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &failure.ConnectionError{Addr: addr, Err: err}
	}

	if opts.TLS {
		wrap := opts.Wrapper
		if wrap == nil {
			wrap = TLSWrapper(nil)
		}
		if opts.Timeout > 0 {
			_ = conn.SetDeadline(time.Now().Add(opts.Timeout))
		}
		secure, err := wrap(conn, opts.Host)
		if err != nil {
			_ = conn.Close()
			return nil, &failure.ConnectionError{Addr: addr, Err: fmt.Errorf("tls handshake: %w", err)}
		}
		_ = secure.SetDeadline(time.Time{})
		conn = secure
	}

	opts.Logger.Info().Str("addr", addr).Bool("tls", opts.TLS).Msg("connected")
	return New(conn, opts), nil
}

// New wraps an established connection.
func New(conn net.Conn, opts Options) *Transport {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Transport{opts: opts, conn: conn, stats: clientmetrics.New()}
}

// Conn returns the underlying connection.
func (t *Transport) Conn() net.Conn { return t.conn }

// Stats returns the live transfer counters.
func (t *Transport) Stats() *clientmetrics.TransferStats { return t.stats }

// Close closes the connection. It is safe to call more than once.
func (t *Transport) Close() error {
	if t.closed || t.conn == nil {
		return nil
	}
	t.closed = true
	err := t.conn.Close()
	t.opts.Logger.Info().Msg("connection closed")
	return err
}

// Send writes the preamble, every payload as one chunk in order, then the
// terminator. Write failures are returned as *failure.TransferError. Cancelling ctx
// unblocks a pending write, and the error then wraps the context error.
func (t *Transport) Send(ctx context.Context, path string, payloads [][]byte) error {
	log := t.opts.Logger
	t.stats.MarkStart(t.opts.Clock())

	stop := context.AfterFunc(ctx, func() { _ = t.conn.SetWriteDeadline(time.Now()) })
	defer func() {
		stop()
		_ = t.conn.SetWriteDeadline(time.Time{})
	}()

	bw := bufio.NewWriterSize(&deadlineWriter{ctx: ctx, conn: t.conn, timeout: t.opts.Timeout}, writeBufferSize)
	preamble := Preamble{
		Path:         path,
		Host:         t.opts.Host,
		UserAgent:    t.opts.UserAgent,
		ExpectedSize: ExpectedSize(payloads),
		ChunkCount:   len(payloads),
		Timestamp:    t.opts.Clock(),
		Extra:        t.opts.Headers,
	}
	if err := WritePreamble(bw, preamble); err != nil {
		return writeError(ctx, "write preamble", err)
	}
	if err := bw.Flush(); err != nil {
		return writeError(ctx, "write preamble", err)
	}
	log.Info().Int("chunks", len(payloads)).Int64("bytes", preamble.ExpectedSize).Msg("request headers sent")

	every := max(1, len(payloads)/progressSteps)
	cw := NewChunkWriter(bw)
	for i, p := range payloads {
		n, err := cw.WriteChunk(p)
		if err == nil {
			err = bw.Flush()
		}
		if err != nil {
			return writeError(ctx, fmt.Sprintf("write chunk %d", i), err)
		}
		if n > 0 {
			t.stats.AddChunk(n)
		}

		if i%every == 0 {
			log.Info().
				Str("progress", fmt.Sprintf("%.1f%%", float64(i+1)/float64(len(payloads))*100)).
				Int("chunk", i+1).
				Int("chunks", len(payloads)).
				Int64("bytes", t.stats.Bytes()).
				Msg("sending")
		}

		if err := t.pace(ctx); err != nil {
			return &failure.TransferError{Op: fmt.Sprintf("pace after chunk %d", i), Err: err}
		}
	}

	if err := cw.Close(); err != nil {
		return writeError(ctx, "write terminator", err)
	}
	if err := bw.Flush(); err != nil {
		return writeError(ctx, "write terminator", err)
	}
	log.Info().Int64("chunks", t.stats.Chunks()).Int64("bytes", t.stats.Bytes()).Msg("all chunks sent")
	return nil
}

func (t *Transport) pace(ctx context.Context) error {
	if t.opts.Delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(t.opts.Delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// writeError reports a failed write, preferring the context error when the write
// was cut short by cancellation.
func writeError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}
	return &failure.TransferError{Op: op, Err: err}
}

// deadlineWriter refreshes the write deadline before every write.
type deadlineWriter struct {
	ctx     context.Context
	conn    net.Conn
	timeout time.Duration
}

func (w *deadlineWriter) Write(p []byte) (int, error) {
	if w.timeout > 0 {
		if err := w.conn.SetWriteDeadline(time.Now().Add(w.timeout)); err != nil {
			return 0, err
		}
	}
	// A cancellation landing before the refresh above would be overwritten by it.
	if err := w.ctx.Err(); err != nil {
		return 0, err
	}
	return w.conn.Write(p)
}
