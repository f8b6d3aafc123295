package metrics

import (
	"sort"
	"strings"
	"unicode"
)

var friendlyKinds = map[string]string{
	"connection": "Connection error",
	"timeout":    "Response timeout",
	"transfer":   "Transfer error",
	"other":      "Unexpected error",
}

// FriendlyErrorName returns a human-friendly label for a failure kind.
func FriendlyErrorName(kind string) string {
	cleaned := strings.TrimSpace(kind)
	if cleaned == "" {
		return "Unknown error"
	}
	if alias, ok := friendlyKinds[strings.ToLower(cleaned)]; ok {
		return alias
	}
	return capitalize(strings.ReplaceAll(cleaned, "_", " ")) + " error"
}

// ErrorBucket is the failure count for one error kind.
type ErrorBucket struct {
	Kind  string `json:"kind" yaml:"kind"`
	Label string `json:"label" yaml:"label"`
	Count int    `json:"count" yaml:"count"`
}

// FlattenErrors converts a kind->count map into rows sorted by descending count,
// then by kind for stability.
func FlattenErrors(errs map[string]int) []ErrorBucket {
	if len(errs) == 0 {
		return nil
	}
	rows := make([]ErrorBucket, 0, len(errs))
	for kind, count := range errs {
		rows = append(rows, ErrorBucket{Kind: kind, Label: FriendlyErrorName(kind), Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			return rows[i].Kind < rows[j].Kind
		}
		return rows[i].Count > rows[j].Count
	})
	return rows
}

func capitalize(s string) string {
	if s == "" {
		return ""
	}
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
