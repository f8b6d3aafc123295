package response

import (
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

const (
	DefaultSummaryHeaders = 10
	DefaultSummaryBody    = 500

	maxJSONFields     = 20
	maxJSONFieldValue = 80
)

// Summary is the console digest of a response.
type Summary struct {
	StatusLine string            `json:"status_line" yaml:"status_line"`
	StatusCode int               `json:"status_code" yaml:"status_code"`
	Headers    []string          `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body       string            `json:"body,omitempty" yaml:"body,omitempty"`
	BodyChars  int               `json:"body_chars" yaml:"body_chars"`
	Truncated  bool              `json:"truncated" yaml:"truncated"`
	Mode       string            `json:"mode" yaml:"mode"`
	Partial    bool              `json:"partial" yaml:"partial"`
	JSONFields map[string]string `json:"json_fields,omitempty" yaml:"json_fields,omitempty"`
	fieldOrder []string
}

// FieldOrder returns JSON field names in document order.
func (s Summary) FieldOrder() []string { return s.fieldOrder }

// Summarize keeps at most maxHeaders header lines and maxBody body characters. When
// the decoded body is a JSON object its top-level fields are extracted as well.
func Summarize(r *Response, maxHeaders, maxBody int) Summary {
	if r == nil {
		return Summary{}
	}
	s := Summary{
		StatusLine: r.StatusLine(),
		StatusCode: r.StatusCode(),
		Mode:       r.Mode.String(),
		Partial:    r.Partial,
	}

	headers := r.HeaderLines()
	if maxHeaders >= 0 && len(headers) > maxHeaders {
		headers = headers[:maxHeaders]
	}
	s.Headers = headers

	payload := r.Payload()
	runes := []rune(strings.ToValidUTF8(string(payload), "\uFFFD"))
	s.BodyChars = len(runes)
	if maxBody >= 0 && len(runes) > maxBody {
		runes = runes[:maxBody]
		s.Truncated = true
	}
	s.Body = string(runes)

	if gjson.ValidBytes(payload) {
		parsed := gjson.ParseBytes(payload)
		if parsed.IsObject() {
			s.JSONFields = make(map[string]string)
			parsed.ForEach(func(key, value gjson.Result) bool {
				raw := value.Raw
				if value.Type == gjson.String {
					raw = value.String()
				}
				s.JSONFields[key.String()] = truncateRunes(raw, maxJSONFieldValue)
				s.fieldOrder = append(s.fieldOrder, key.String())
				return len(s.fieldOrder) < maxJSONFields
			})
		}
	}
	return s
}

// truncateRunes cuts s to at most n characters, marking the cut with "...".
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
