package response

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/torosent/chunkfire/internal/failure"
)

func pipeWithServer(t *testing.T, serve func(net.Conn)) net.Conn {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() {
		_ = client.Close()
		_ = server.Close()
	})
	go serve(server)
	return client
}

func TestReadCompleteLengthResponse(t *testing.T) {
	conn := pipeWithServer(t, func(c net.Conn) {
		_, _ = c.Write([]byte("HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\n"))
		_, _ = c.Write([]byte("hello"))
	})

	resp, err := Read(context.Background(), conn, NewDetector(zerolog.Nop()), time.Second)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !resp.Complete || resp.Partial {
		t.Fatalf("complete=%v partial=%v", resp.Complete, resp.Partial)
	}
	if string(resp.Body()) != "hello" {
		t.Errorf("body = %q", resp.Body())
	}
	if resp.StatusCode() != 200 {
		t.Errorf("status = %d", resp.StatusCode())
	}
}

func TestReadEndsOnEOF(t *testing.T) {
	conn := pipeWithServer(t, func(c net.Conn) {
		_, _ = c.Write([]byte("HTTP/1.1 200 OK\r\nContent-Length: 100\r\n\r\nshort"))
		_ = c.Close()
	})

	resp, err := Read(context.Background(), conn, NewDetector(zerolog.Nop()), time.Second)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if resp.Complete {
		t.Error("response should not be marked complete")
	}
	if resp.Partial {
		t.Error("EOF is a normal end of stream, not a partial read")
	}
	if string(resp.Body()) != "short" {
		t.Errorf("body = %q", resp.Body())
	}
}

func TestReadTimeoutWithBytesIsPartial(t *testing.T) {
	release := make(chan struct{})
	conn := pipeWithServer(t, func(c net.Conn) {
		_, _ = c.Write([]byte("HTTP/1.1 200 OK\r\nContent-Length: 100\r\n\r\nabc"))
		<-release
	})
	defer close(release)

	resp, err := Read(context.Background(), conn, NewDetector(zerolog.Nop()), 50*time.Millisecond)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !resp.Partial || resp.Complete {
		t.Fatalf("partial=%v complete=%v", resp.Partial, resp.Complete)
	}
	if string(resp.Body()) != "abc" {
		t.Errorf("body = %q", resp.Body())
	}
}

func TestReadTimeoutWithoutBytesFails(t *testing.T) {
	release := make(chan struct{})
	conn := pipeWithServer(t, func(c net.Conn) { <-release })
	defer close(release)

	_, err := Read(context.Background(), conn, NewDetector(zerolog.Nop()), 30*time.Millisecond)
	var te *failure.TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("expected *failure.TimeoutError, got %T (%v)", err, err)
	}
	if failure.Kind(err) != "timeout" {
		t.Errorf("Kind = %q", failure.Kind(err))
	}
}

func TestReadClosedWithoutBytesReturnsEmptyResponse(t *testing.T) {
	conn := pipeWithServer(t, func(c net.Conn) { _ = c.Close() })

	resp, err := Read(context.Background(), conn, NewDetector(zerolog.Nop()), time.Second)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(resp.Raw) != 0 || resp.StatusLine() != "" {
		t.Fatalf("expected empty response, got %q", resp.Raw)
	}
}

func TestReadCanceledContextWithoutBytes(t *testing.T) {
	conn := pipeWithServer(t, func(c net.Conn) {})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Read(ctx, conn, NewDetector(zerolog.Nop()), time.Second)
	var te *failure.TransferError
	if !errors.As(err, &te) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected TransferError wrapping context.Canceled, got %v", err)
	}
}

func TestReadChunkedResponseAcrossWrites(t *testing.T) {
	conn := pipeWithServer(t, func(c net.Conn) {
		parts := []string{
			"HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n",
			"\r\n5\r\nhel",
			"lo\r\n0\r\n",
			"\r\n",
		}
		for _, p := range parts {
			_, _ = c.Write([]byte(p))
		}
	})

	resp, err := Read(context.Background(), conn, NewDetector(zerolog.Nop()), time.Second)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !resp.Complete || resp.Mode != ModeChunked {
		t.Fatalf("complete=%v mode=%s", resp.Complete, resp.Mode)
	}
	if string(resp.Payload()) != "hello" {
		t.Errorf("payload = %q", resp.Payload())
	}
}

func TestReadCancelUnblocksPendingRead(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
	}{
		{"no bytes yet", ""},
		{"partial headers", "HTTP/1.1 200 OK\r\nContent-Length: 100\r\n\r\nabc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			release := make(chan struct{})
			conn := pipeWithServer(t, func(c net.Conn) {
				if tt.prefix != "" {
					_, _ = c.Write([]byte(tt.prefix))
				}
				<-release
			})
			defer close(release)

			ctx, cancel := context.WithCancel(context.Background())
			time.AfterFunc(50*time.Millisecond, cancel)

			start := time.Now()
			resp, err := Read(ctx, conn, NewDetector(zerolog.Nop()), 5*time.Second)
			elapsed := time.Since(start)

			if elapsed > 2*time.Second {
				t.Fatalf("Read returned after %s, want prompt return on cancel", elapsed)
			}
			if resp != nil {
				t.Errorf("interrupted read returned a response: %q", resp.Raw)
			}
			var te *failure.TransferError
			if !errors.As(err, &te) || !errors.Is(err, context.Canceled) {
				t.Fatalf("expected TransferError wrapping context.Canceled, got %v", err)
			}
		})
	}
}
