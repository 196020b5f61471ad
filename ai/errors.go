package ai

import (
	"errors"
	"strings"
)

var (
	// ErrMalformedOutput indicates the model returned output that does not
	// match the requested JSON schema. Callers treat this as a parse
	// failure, not a crash.
	ErrMalformedOutput = errors.New("malformed model output")

	// ErrRateLimited indicates the provider rejected a call for quota
	// reasons. Callers retry these with backoff.
	ErrRateLimited = errors.New("rate limited by provider")
)

// rateLimitMarkers are substrings providers use in 429-class errors.
var rateLimitMarkers = []string{
	"429",
	"rate limit",
	"rate_limit",
	"too many requests",
	"quota",
}

// IsRateLimit reports whether err looks like a provider throttling error.
// Providers surface these as opaque strings, so detection is heuristic.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
