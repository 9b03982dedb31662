package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryable(t *testing.T) {
	retryable := []error{
		&RateLimitError{Provider: "p", RetryAfter: time.Second},
		&TimeoutError{Provider: "p", Timeout: time.Second},
		&NetworkError{Provider: "p", Cause: errors.New("reset")},
		context.DeadlineExceeded,
		fmt.Errorf("wrapped: %w", &TimeoutError{Provider: "p"}),
	}
	for _, err := range retryable {
		assert.True(t, IsRetryable(err), "%v", err)
	}

	permanent := []error{
		&AuthError{Provider: "p"},
		&QuotaError{Provider: "p"},
		&ConfigError{Provider: "p"},
		&InvalidResponseError{Provider: "p", Cause: errors.New("bad json")},
		errors.New("misc"),
	}
	for _, err := range permanent {
		assert.False(t, IsRetryable(err), "%v", err)
	}
}

func TestIsUserFixable(t *testing.T) {
	assert.True(t, IsUserFixable(&AuthError{Provider: "p"}))
	assert.True(t, IsUserFixable(&ConfigError{Provider: "p", Field: "endpoint"}))
	assert.True(t, IsUserFixable(fmt.Errorf("wrapped: %w", &AuthError{Provider: "p"})))

	assert.False(t, IsUserFixable(&RateLimitError{Provider: "p"}))
	assert.False(t, IsUserFixable(&UnavailableError{Provider: "p"}))
	assert.False(t, IsUserFixable(errors.New("misc")))
}
