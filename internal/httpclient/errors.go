package httpclient

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// UpstreamError represents a non-2xx response from an upstream backend. The
// raw body is preserved so adapters can surface the offending payload.
type UpstreamError struct {
	StatusCode int
	Body       []byte
	URL        string
	RetryAfter time.Duration
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error: status %d from %s", e.StatusCode, e.URL)
}

// retryAfter parses the Retry-After header (seconds form only).
func retryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
