package response

import (
	"strconv"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

func detect(t *testing.T, raw string) *Response {
	t.Helper()
	d := NewDetector(zerolog.Nop())
	d.Feed([]byte(raw))
	return d.Response(false)
}

func TestSummarizeJSONBody(t *testing.T) {
	body := `{"status":"ok","received_bytes":5242880,"chunks":[1,2,3]}`
	resp := detect(t, "HTTP/1.1 200 OK\r\nContent-Type: application/json\r\nContent-Length: "+strconv.Itoa(len(body))+"\r\n\r\n"+body)

	s := Summarize(resp, DefaultSummaryHeaders, DefaultSummaryBody)
	if s.StatusLine != "HTTP/1.1 200 OK" || s.StatusCode != 200 {
		t.Fatalf("status = %q (%d)", s.StatusLine, s.StatusCode)
	}
	if len(s.Headers) != 2 {
		t.Errorf("headers = %v", s.Headers)
	}
	if s.Body != body || s.Truncated {
		t.Errorf("body = %q truncated=%v", s.Body, s.Truncated)
	}
	if s.JSONFields["status"] != "ok" || s.JSONFields["received_bytes"] != "5242880" || s.JSONFields["chunks"] != "[1,2,3]" {
		t.Errorf("json fields = %v", s.JSONFields)
	}
	if got := strings.Join(s.FieldOrder(), ","); got != "status,received_bytes,chunks" {
		t.Errorf("field order = %s", got)
	}
}

func TestSummarizeTruncates(t *testing.T) {
	var b strings.Builder
	b.WriteString("HTTP/1.1 200 OK\r\n")
	for i := 0; i < 15; i++ {
		b.WriteString("X-H" + strconv.Itoa(i) + ": v\r\n")
	}
	body := strings.Repeat("é", 600)
	b.WriteString("Content-Length: " + strconv.Itoa(len(body)) + "\r\n\r\n")
	b.WriteString(body)

	s := Summarize(detect(t, b.String()), DefaultSummaryHeaders, DefaultSummaryBody)
	if len(s.Headers) != 10 {
		t.Errorf("expected 10 headers, got %d", len(s.Headers))
	}
	if !s.Truncated || s.BodyChars != 600 {
		t.Errorf("truncated=%v chars=%d", s.Truncated, s.BodyChars)
	}
	if got := len([]rune(s.Body)); got != 500 {
		t.Errorf("body runes = %d, want 500", got)
	}
	if s.JSONFields != nil {
		t.Errorf("unexpected json fields %v", s.JSONFields)
	}
}

func TestSummarizeJSONFieldKeepsWholeRunes(t *testing.T) {
	long := strings.Repeat("ü", 100)
	body := `{"note":"` + long + `","short":"日本"}`
	resp := detect(t, "HTTP/1.1 200 OK\r\nContent-Length: "+strconv.Itoa(len(body))+"\r\n\r\n"+body)

	s := Summarize(resp, DefaultSummaryHeaders, DefaultSummaryBody)
	note := s.JSONFields["note"]
	if !utf8.ValidString(note) {
		t.Fatalf("note is not valid UTF-8: %q", note)
	}
	if want := strings.Repeat("ü", maxJSONFieldValue) + "..."; note != want {
		t.Errorf("note = %q, want %d runes and an ellipsis", note, maxJSONFieldValue)
	}
	if s.JSONFields["short"] != "日本" {
		t.Errorf("short = %q", s.JSONFields["short"])
	}
}

func TestSummarizeChunkedBodyIsDecoded(t *testing.T) {
	resp := detect(t, "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n7\r\n{\"a\":1}\r\n0\r\n\r\n")
	s := Summarize(resp, DefaultSummaryHeaders, DefaultSummaryBody)
	if s.Body != `{"a":1}` || s.JSONFields["a"] != "1" {
		t.Fatalf("body = %q fields = %v", s.Body, s.JSONFields)
	}
	if s.Mode != "chunked" {
		t.Errorf("mode = %s", s.Mode)
	}
}

func TestSummarizeNil(t *testing.T) {
	if s := Summarize(nil, 10, 10); s.StatusLine != "" || s.Headers != nil {
		t.Fatalf("expected zero summary, got %+v", s)
	}
}
