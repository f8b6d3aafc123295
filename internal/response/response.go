package response

import (
	"bytes"
	"io"
	"net/http/httputil"
	"strconv"
	"strings"

	"github.com/torosent/chunkfire/internal/failure"
)

// Response is the raw reply collected by Read.
type Response struct {
	Raw      []byte
	Mode     Mode
	BodyFrom int // -1 when no header boundary was seen
	Complete bool
	Partial  bool // cut short by a timeout or read error
	Warnings []failure.ParseWarning
}

// Text returns Raw as a string with invalid UTF-8 replaced by U+FFFD.
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	return strings.ToValidUTF8(string(r.Raw), "\uFFFD")
}

func (r *Response) head() string {
	if r == nil || len(r.Raw) == 0 {
		return ""
	}
	end := len(r.Raw)
	if r.BodyFrom >= 4 {
		end = r.BodyFrom - 4
	}
	return strings.ToValidUTF8(string(r.Raw[:end]), "\uFFFD")
}

// StatusLine returns the first line of the response.
func (r *Response) StatusLine() string {
	head := r.head()
	if i := strings.Index(head, "\r\n"); i >= 0 {
		return head[:i]
	}
	return head
}

// StatusCode parses the code from the status line, or returns 0.
func (r *Response) StatusCode() int {
	fields := strings.Fields(r.StatusLine())
	if len(fields) < 2 || !strings.HasPrefix(fields[0], "HTTP/") {
		return 0
	}
	code, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0
	}
	return code
}

// HeaderLines returns the header lines after the status line.
func (r *Response) HeaderLines() []string {
	head := r.head()
	lines := strings.Split(head, "\r\n")
	if len(lines) <= 1 {
		return nil
	}
	var out []string
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			break
		}
		out = append(out, line)
	}
	return out
}

// Body returns the raw body bytes as received (still chunk-framed in chunked mode).
// A response without a body returns nil.
func (r *Response) Body() []byte {
	if r == nil || r.BodyFrom < 0 || r.BodyFrom > len(r.Raw) || r.Mode == ModeNone {
		return nil
	}
	return r.Raw[r.BodyFrom:]
}

// Payload returns the body with chunk framing removed. Undecodable tails are dropped.
func (r *Response) Payload() []byte {
	body := r.Body()
	if r == nil || r.Mode != ModeChunked {
		return body
	}
	decoded, _ := io.ReadAll(httputil.NewChunkedReader(bytes.NewReader(body)))
	return decoded
}
