package openaicompat

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spindlehq/spindle/internal/httpclient"
	"github.com/spindlehq/spindle/internal/provider"
)

var errInvalidToolArgs = errors.New("tool call arguments are not valid JSON")

// apiError mirrors the standard error envelope used by this backend family.
type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
	Message string `json:"message"`
}

// errorMessage extracts a human-readable message from an upstream body,
// falling back to a truncated raw dump.
func errorMessage(body []byte) string {
	var e apiError
	if json.Unmarshal(body, &e) == nil {
		if e.Error.Message != "" {
			return e.Error.Message
		}
		if e.Message != "" {
			return e.Message
		}
	}
	s := string(body)
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

// MapError converts transport failures into the typed provider error values.
// Context cancellation passes through untouched so callers can distinguish
// a deliberate abort from a backend fault.
func MapError(name, model string, timeout time.Duration, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var upstream *httpclient.UpstreamError
	if errors.As(err, &upstream) {
		msg := errorMessage(upstream.Body)
		switch {
		case upstream.StatusCode == http.StatusUnauthorized || upstream.StatusCode == http.StatusForbidden:
			return &provider.AuthError{Provider: name, Message: msg}
		case upstream.StatusCode == http.StatusPaymentRequired:
			return &provider.QuotaError{Provider: name, Message: msg}
		case upstream.StatusCode == http.StatusNotFound && model != "":
			return &provider.ModelNotSupportedError{Provider: name, Model: model}
		case upstream.StatusCode == http.StatusTooManyRequests:
			return &provider.RateLimitError{Provider: name, RetryAfter: upstream.RetryAfter, Message: msg}
		case upstream.StatusCode >= 500:
			return &provider.UnavailableError{Provider: name, Reason: msg}
		default:
			return &provider.InvalidResponseError{Provider: name, Raw: string(upstream.Body), Cause: upstream}
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &provider.TimeoutError{Provider: name, Timeout: timeout}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &provider.TimeoutError{Provider: name, Timeout: timeout}
	}

	return &provider.NetworkError{Provider: name, Cause: err}
}
