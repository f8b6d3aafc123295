package metrics

import (
	"reflect"
	"testing"
)

func TestFriendlyErrorName(t *testing.T) {
	tests := []struct {
		kind string
		want string
	}{
		{"connection", "Connection error"},
		{"timeout", "Response timeout"},
		{"transfer", "Transfer error"},
		{"other", "Unexpected error"},
		{" TIMEOUT ", "Response timeout"},
		{"", "Unknown error"},
		{"tls_handshake", "Tls handshake error"},
	}
	for _, tt := range tests {
		if got := FriendlyErrorName(tt.kind); got != tt.want {
			t.Errorf("FriendlyErrorName(%q) = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestFlattenErrors(t *testing.T) {
	tests := []struct {
		name string
		errs map[string]int
		want []ErrorBucket
	}{
		{name: "nil", errs: nil, want: nil},
		{name: "empty", errs: map[string]int{}, want: nil},
		{
			name: "sorted by count then kind",
			errs: map[string]int{"transfer": 2, "connection": 5, "timeout": 2},
			want: []ErrorBucket{
				{Kind: "connection", Label: "Connection error", Count: 5},
				{Kind: "timeout", Label: "Response timeout", Count: 2},
				{Kind: "transfer", Label: "Transfer error", Count: 2},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FlattenErrors(tt.errs); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FlattenErrors() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
