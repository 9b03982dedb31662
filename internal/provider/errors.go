package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// NotFoundError reports that no provider matched a lookup or selection.
type NotFoundError struct {
	Name string // provider name or strategy that produced no match
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("provider not found: %s", e.Name)
}

// UnavailableError reports a provider that exists but cannot serve requests.
type UnavailableError struct {
	Provider string
	Reason   string
}

func (e *UnavailableError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("provider %q unavailable: %s", e.Provider, e.Reason)
	}
	return fmt.Sprintf("provider %q unavailable", e.Provider)
}

// AuthError reports rejected credentials (HTTP 401/403).
type AuthError struct {
	Provider string
	Message  string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("provider %q authentication failed: %s", e.Provider, e.Message)
}

// RateLimitError reports HTTP 429 with the retry-after hint when the backend
// supplied one. The provider layer never retries; callers decide.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("provider %q rate limited (retry after %s): %s", e.Provider, e.RetryAfter, e.Message)
	}
	return fmt.Sprintf("provider %q rate limited: %s", e.Provider, e.Message)
}

// QuotaError reports an exhausted spending or usage quota (HTTP 402).
type QuotaError struct {
	Provider string
	Message  string
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("provider %q quota exceeded: %s", e.Provider, e.Message)
}

// TimeoutError reports a request that exceeded the configured timeout.
type TimeoutError struct {
	Provider string
	Timeout  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("provider %q request timed out after %s", e.Provider, e.Timeout)
}

// InvalidResponseError reports a payload the adapter could not normalize.
// Raw carries the offending body for diagnostics.
type InvalidResponseError struct {
	Provider string
	Raw      string
	Cause    error
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("provider %q returned an invalid response: %v", e.Provider, e.Cause)
}

func (e *InvalidResponseError) Unwrap() error { return e.Cause }

// ModelNotSupportedError reports a model the provider does not serve.
type ModelNotSupportedError struct {
	Provider string
	Model    string
}

func (e *ModelNotSupportedError) Error() string {
	return fmt.Sprintf("provider %q does not support model %q", e.Provider, e.Model)
}

// ConfigError reports an invalid provider configuration field.
type ConfigError struct {
	Provider string
	Field    string
	Message  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("provider %q configuration error for field %q: %s", e.Provider, e.Field, e.Message)
}

// NetworkError wraps a transport-level failure (connect, DNS, reset).
type NetworkError struct {
	Provider string
	Cause    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("provider %q network error: %v", e.Provider, e.Cause)
}

func (e *NetworkError) Unwrap() error { return e.Cause }

// IsRetryable reports whether err is a transient condition a caller may
// reasonably retry: timeouts, network failures, and rate limits.
func IsRetryable(err error) bool {
	var (
		rateErr    *RateLimitError
		timeoutErr *TimeoutError
		netErr     *NetworkError
	)
	if errors.As(err, &rateErr) || errors.As(err, &timeoutErr) || errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// IsUserFixable reports whether err should be surfaced verbatim to the
// operator because only a config or credential change can resolve it.
func IsUserFixable(err error) bool {
	var (
		authErr *AuthError
		cfgErr  *ConfigError
	)
	return errors.As(err, &authErr) || errors.As(err, &cfgErr)
}
