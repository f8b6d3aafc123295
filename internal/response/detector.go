// Package response decides when a complete HTTP response has arrived on a raw byte
// stream.
//
// The [Detector] is fed bytes as they are read. It finds the header boundary, picks a
// body mode from the headers and then tracks the body until it is complete:
//
//	READING_HEADERS -> CHUNKED_BODY | LENGTH_BODY | (no body) -> COMPLETE
//
// Chunked bodies are parsed structurally (size line, exactly that many data bytes,
// CRLF, repeat until the zero-size chunk and its trailer section), so a terminator
// sequence appearing inside chunk data does not end the response early.
package response

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/torosent/chunkfire/internal/failure"
)

// Mode is the body framing selected from the response headers.
type Mode int

const (
	ModeUnknown Mode = iota
	ModeChunked
	ModeLength
	ModeNone
)

func (m Mode) String() string {
	switch m {
	case ModeChunked:
		return "chunked"
	case ModeLength:
		return "content-length"
	case ModeNone:
		return "none"
	default:
		return "unknown"
	}
}

// State is the detector's position in the response.
type State int

const (
	StateReadingHeaders State = iota
	StateChunkedBody
	StateLengthBody
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateReadingHeaders:
		return "reading-headers"
	case StateChunkedBody:
		return "chunked-body"
	case StateLengthBody:
		return "length-body"
	case StateComplete:
		return "complete"
	default:
		return "unknown"
	}
}

type chunkPhase int

const (
	phaseSize chunkPhase = iota
	phaseData
	phaseDataCRLF
	phaseTrailer
)

const (
	chunkedMarker = "Transfer-Encoding: chunked"
	// maxLineLen bounds a chunk size or trailer line still waiting for its CRLF.
	maxLineLen = 8 * 1024
)

var (
	crlf       = []byte("\r\n")
	headersEnd = []byte("\r\n\r\n")
)

// Detector accumulates response bytes and tracks completion. It is not safe for
// concurrent use.
type Detector struct {
	log zerolog.Logger

	buf       []byte
	state     State
	mode      Mode
	bodyStart int // offset just past the blank line; -1 until found
	scanFrom  int

	contentLength int64

	cursor    int
	phase     chunkPhase
	remaining int64

	warnings []failure.ParseWarning
}

// NewDetector returns a Detector in StateReadingHeaders. Parse warnings are logged
// to log.
func NewDetector(log zerolog.Logger) *Detector {
	return &Detector{log: log, bodyStart: -1}
}

// Feed appends p and advances the state machine. It reports whether the response is
// complete. Bytes fed after completion are kept but do not change the state.
func (d *Detector) Feed(p []byte) bool {
	d.buf = append(d.buf, p...)
	if d.state == StateComplete {
		return true
	}
	d.advance()
	return d.state == StateComplete
}

// Complete reports whether the full response has been seen.
func (d *Detector) Complete() bool { return d.state == StateComplete }

// State returns the current state.
func (d *Detector) State() State { return d.state }

// Mode returns the body mode, ModeUnknown while headers are incomplete.
func (d *Detector) Mode() Mode { return d.mode }

// Len returns the number of bytes accumulated so far.
func (d *Detector) Len() int { return len(d.buf) }

// Bytes returns the accumulated raw bytes.
func (d *Detector) Bytes() []byte { return d.buf }

// BodyStart returns the offset of the first body byte, or -1 before the header
// boundary was found.
func (d *Detector) BodyStart() int { return d.bodyStart }

// ContentLength returns the parsed Content-Length in length mode.
func (d *Detector) ContentLength() int64 { return d.contentLength }

// Warnings returns the parse warnings raised so far.
func (d *Detector) Warnings() []failure.ParseWarning { return d.warnings }

func (d *Detector) advance() {
	if d.state == StateReadingHeaders {
		from := max(0, d.scanFrom-len(headersEnd)+1)
		idx := bytes.Index(d.buf[from:], headersEnd)
		if idx < 0 {
			d.scanFrom = len(d.buf)
			return
		}
		d.bodyStart = from + idx + len(headersEnd)
		d.selectMode(string(d.buf[:from+idx]))
	}

	switch d.state {
	case StateChunkedBody:
		d.parseChunked()
	case StateLengthBody:
		if int64(len(d.buf)-d.bodyStart) >= d.contentLength {
			d.state = StateComplete
		}
	}
}

func (d *Detector) selectMode(header string) {
	if strings.Contains(header, chunkedMarker) {
		d.mode = ModeChunked
		d.state = StateChunkedBody
		d.cursor = d.bodyStart
		d.phase = phaseSize
		return
	}

	for _, line := range strings.Split(header, "\r\n") {
		name, value, ok := strings.Cut(line, ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			continue
		}
		value = strings.TrimSpace(value)
		n, err := strconv.ParseInt(value, 10, 64)
		switch {
		case err != nil:
			d.warn(failure.ParseWarning{Field: "Content-Length", Value: value, Reason: "not an integer"})
		case n < 0:
			d.warn(failure.ParseWarning{Field: "Content-Length", Value: value, Reason: "negative length"})
		case n > 0:
			d.mode = ModeLength
			d.state = StateLengthBody
			d.contentLength = n
			return
		}
		break
	}

	d.mode = ModeNone
	d.state = StateComplete
}

func (d *Detector) parseChunked() {
	for d.state == StateChunkedBody {
		switch d.phase {
		case phaseSize:
			line, ok := d.nextLine("chunk size")
			if !ok {
				return
			}
			size, valid := parseChunkSize(line)
			if !valid {
				d.warn(failure.ParseWarning{Field: "chunk size", Value: string(line), Reason: "invalid hex size"})
				d.state = StateComplete
				return
			}
			if size == 0 {
				d.phase = phaseTrailer
			} else {
				d.remaining = size
				d.phase = phaseData
			}

		case phaseData:
			avail := int64(len(d.buf) - d.cursor)
			if avail == 0 {
				return
			}
			take := min(avail, d.remaining)
			d.cursor += int(take)
			d.remaining -= take
			if d.remaining > 0 {
				return
			}
			d.phase = phaseDataCRLF

		case phaseDataCRLF:
			if len(d.buf)-d.cursor < len(crlf) {
				return
			}
			if !bytes.Equal(d.buf[d.cursor:d.cursor+len(crlf)], crlf) {
				d.warn(failure.ParseWarning{Field: "chunk data", Reason: "missing CRLF after chunk data"})
				d.state = StateComplete
				return
			}
			d.cursor += len(crlf)
			d.phase = phaseSize

		case phaseTrailer:
			line, ok := d.nextLine("trailer")
			if !ok {
				return
			}
			if len(line) == 0 {
				d.state = StateComplete
				return
			}
		}
	}
}

// nextLine returns the CRLF-terminated line at the cursor and moves past it.
func (d *Detector) nextLine(field string) ([]byte, bool) {
	pending := d.buf[d.cursor:]
	idx := bytes.Index(pending, crlf)
	if idx < 0 {
		if len(pending) > maxLineLen {
			d.warn(failure.ParseWarning{Field: field, Reason: "line too long"})
			d.state = StateComplete
		}
		return nil, false
	}
	d.cursor += idx + len(crlf)
	return pending[:idx], true
}

func parseChunkSize(line []byte) (int64, bool) {
	s := string(line)
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 16, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func (d *Detector) warn(w failure.ParseWarning) {
	d.warnings = append(d.warnings, w)
	d.log.Warn().Err(w).Msg("unexpected response content")
}
