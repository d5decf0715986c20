package engine

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrQuotaExhausted marks failures caused by provider rate/usage limiting.
// Everything else a Transformer returns is an ordinary provider error. The
// rest of the pipeline branches only on this two-valued taxonomy; the
// provider-specific sniffing stays in this package.
var ErrQuotaExhausted = errors.New("provider quota exhausted")

// apiError represents a non-OK HTTP response from a provider.
type apiError struct {
	StatusCode int
	Body       string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Body)
}

// classify wraps quota-limited API errors with ErrQuotaExhausted.
func classify(e *apiError) error {
	if e.StatusCode == http.StatusTooManyRequests || looksLikeQuota(e.Body) {
		return fmt.Errorf("%w: %s", ErrQuotaExhausted, e.Error())
	}
	return e
}

// looksLikeQuota sniffs provider error text for rate/usage-limit markers.
func looksLikeQuota(s string) bool {
	s = strings.ToLower(s)
	for _, marker := range []string{
		"quota",
		"resource_exhausted",
		"resource exhausted",
		"rate limit",
		"rate_limit",
	} {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}
