package response

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/torosent/chunkfire/internal/failure"
)

const readBufferSize = 4096

// DeadlineReader is the read half of a connection. net.Conn satisfies it.
type DeadlineReader interface {
	io.Reader
	SetReadDeadline(t time.Time) error
}

// Read feeds d from r until the response is complete, the peer closes the stream or a
// read times out. Every read is bounded by timeout (0 disables it).
//
// A timeout after some bytes arrived yields a partial Response rather than an error;
// a timeout before any byte arrived is a *failure.TimeoutError. Cancelling ctx
// unblocks a pending read and always yields a *failure.TransferError wrapping the
// context error, whether or not bytes arrived.
func Read(ctx context.Context, r DeadlineReader, d *Detector, timeout time.Duration) (*Response, error) {
	stop := context.AfterFunc(ctx, func() { _ = r.SetReadDeadline(time.Now()) })
	defer func() {
		stop()
		_ = r.SetReadDeadline(time.Time{})
	}()

	buf := make([]byte, readBufferSize)
	partial := false
	for !d.Complete() {
		if timeout > 0 {
			if err := r.SetReadDeadline(time.Now().Add(timeout)); err != nil {
				return nil, &failure.TransferError{Op: "set read deadline", Err: err}
			}
		}
		// Checked after the deadline refresh so a cancellation landing in between
		// is not overwritten.
		if err := ctx.Err(); err != nil {
			return nil, interruptedRead(d, err)
		}

		n, err := r.Read(buf)
		if n > 0 {
			d.Feed(buf[:n])
		}
		if err == nil {
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, interruptedRead(d, ctxErr)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if failure.IsTimeout(err) {
			if d.Len() == 0 {
				return nil, &failure.TimeoutError{Op: "read response", Err: err}
			}
			d.log.Warn().Int("bytes", d.Len()).Str("state", d.State().String()).Msg("response read timed out, keeping partial data")
			partial = true
			break
		}
		if d.Len() == 0 {
			return nil, &failure.TransferError{Op: "read response", Err: err}
		}
		d.log.Warn().Err(err).Int("bytes", d.Len()).Msg("response read failed, keeping partial data")
		partial = true
		break
	}

	return d.Response(partial), nil
}

func interruptedRead(d *Detector, err error) error {
	if d.Len() > 0 {
		d.log.Warn().Int("bytes", d.Len()).Msg("response read interrupted, discarding partial data")
	}
	return &failure.TransferError{Op: "read response", Err: err}
}

// Response snapshots the detector into a Response.
func (d *Detector) Response(partial bool) *Response {
	raw := make([]byte, len(d.buf))
	copy(raw, d.buf)
	return &Response{
		Raw:      raw,
		Mode:     d.mode,
		BodyFrom: d.bodyStart,
		Complete: d.Complete(),
		Partial:  partial,
		Warnings: append([]failure.ParseWarning(nil), d.warnings...),
	}
}
