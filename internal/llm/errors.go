package llm

import (
	"errors"
	"net/http"

	"google.golang.org/genai"
)

// ErrRateLimitExceeded is returned by the invoker when every attempt failed
// with a rate-limit signal.
var ErrRateLimitExceeded = errors.New("llm: rate limit retries exhausted")

// IsRateLimited reports whether err carries a rate-limit signal from the
// provider. Classification is structural (API error codes), never based on
// error message text.
func IsRateLimited(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Status == "RESOURCE_EXHAUSTED"
	}
	return false
}
