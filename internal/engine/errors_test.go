package engine

import "testing"

func TestLooksLikeQuota(t *testing.T) {
	tests := []struct {
		body string
		want bool
	}{
		{"Quota exceeded for metric", true},
		{"RESOURCE_EXHAUSTED: out of capacity", true},
		{"resource exhausted", true},
		{"You hit a rate limit", true},
		{"code: rate_limit_exceeded", true},
		{"internal server error", false},
		{"invalid api key", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := looksLikeQuota(tt.body); got != tt.want {
			t.Errorf("looksLikeQuota(%q) = %v, want %v", tt.body, got, tt.want)
		}
	}
}
