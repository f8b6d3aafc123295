package transport

import (
	"errors"
	"io"
	"strconv"
	"strings"
	"time"
)

const crlf = "\r\n"

// Terminator is the last-chunk marker that ends a chunked body.
var Terminator = []byte("0\r\n\r\n")

// ErrWriterClosed is returned when writing a chunk after the terminator.
var ErrWriterClosed = errors.New("chunk writer closed")

// ChunkWriter frames payloads with HTTP/1.1 chunked transfer encoding.
type ChunkWriter struct {
	w      io.Writer
	closed bool
}

// NewChunkWriter returns a ChunkWriter writing frames to w.
func NewChunkWriter(w io.Writer) *ChunkWriter {
	return &ChunkWriter{w: w}
}

// WriteChunk writes p as `<HEX-SIZE>\r\n<p>\r\n`. An empty p is skipped, since a zero
// size line would terminate the body. It returns the number of payload bytes framed.
func (cw *ChunkWriter) WriteChunk(p []byte) (int, error) {
	if cw.closed {
		return 0, ErrWriterClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	sizeLine := strings.ToUpper(strconv.FormatInt(int64(len(p)), 16)) + crlf
	if _, err := io.WriteString(cw.w, sizeLine); err != nil {
		return 0, err
	}
	if _, err := cw.w.Write(p); err != nil {
		return 0, err
	}
	if _, err := io.WriteString(cw.w, crlf); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close writes the terminator. Calling Close twice is a no-op.
func (cw *ChunkWriter) Close() error {
	if cw.closed {
		return nil
	}
	cw.closed = true
	_, err := cw.w.Write(Terminator)
	return err
}

// Preamble describes the request line and header block sent before the body.
type Preamble struct {
	Path         string
	Host         string
	UserAgent    string
	ExpectedSize int64
	ChunkCount   int
	Timestamp    time.Time
	Extra        []Header // written after X-Timestamp, in order
}

// Header is one additional preamble header line.
type Header struct {
	Name  string
	Value string
}

// WritePreamble writes the request line and headers, ending with the blank line.
func WritePreamble(w io.Writer, p Preamble) error {
	path := p.Path
	if path == "" {
		path = "/"
	}
	ua := p.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}

	var sb strings.Builder
	line := func(s string) {
		sb.WriteString(s)
		sb.WriteString(crlf)
	}
	line("POST " + path + " HTTP/1.1")
	line("Host: " + p.Host)
	line("User-Agent: " + ua)
	line("Content-Type: application/json")
	line("Transfer-Encoding: chunked")
	line("Accept: application/json")
	line("X-Request-Type: large_stream_upload")
	line("X-Expected-Size: " + strconv.FormatInt(p.ExpectedSize, 10))
	line("X-Chunk-Count: " + strconv.Itoa(p.ChunkCount))
	line("X-Compression: none")
	line("Connection: keep-alive")
	line("X-Timestamp: " + p.Timestamp.Format(time.RFC3339Nano))
	for _, h := range p.Extra {
		if h.Name == "" || strings.ContainsAny(h.Name+h.Value, "\r\n") {
			continue
		}
		line(h.Name + ": " + h.Value)
	}
	sb.WriteString(crlf)

	_, err := io.WriteString(w, sb.String())
	return err
}

// ExpectedSize sums the payload lengths advertised in X-Expected-Size.
func ExpectedSize(payloads [][]byte) int64 {
	var total int64
	for _, p := range payloads {
		total += int64(len(p))
	}
	return total
}
