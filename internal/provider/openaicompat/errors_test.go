package openaicompat

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spindlehq/spindle/internal/httpclient"
	"github.com/spindlehq/spindle/internal/provider"
)

func upstream(status int, body string) *httpclient.UpstreamError {
	return &httpclient.UpstreamError{StatusCode: status, Body: []byte(body), URL: "http://test/v1"}
}

func TestMapError_StatusTaxonomy(t *testing.T) {
	t.Run("401 becomes auth error", func(t *testing.T) {
		err := MapError("gw", "m", time.Minute, upstream(http.StatusUnauthorized, `{"error":{"message":"bad key"}}`))
		var authErr *provider.AuthError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, "bad key", authErr.Message)
	})

	t.Run("402 becomes quota error", func(t *testing.T) {
		err := MapError("gw", "m", time.Minute, upstream(http.StatusPaymentRequired, `{"error":{"message":"empty wallet"}}`))
		var quotaErr *provider.QuotaError
		require.ErrorAs(t, err, &quotaErr)
	})

	t.Run("404 with model becomes model-not-supported", func(t *testing.T) {
		err := MapError("gw", "gpt-x", time.Minute, upstream(http.StatusNotFound, `{}`))
		var modelErr *provider.ModelNotSupportedError
		require.ErrorAs(t, err, &modelErr)
		assert.Equal(t, "gpt-x", modelErr.Model)
	})

	t.Run("429 carries retry-after", func(t *testing.T) {
		up := upstream(http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`)
		up.RetryAfter = 9 * time.Second
		err := MapError("gw", "m", time.Minute, up)
		var rateErr *provider.RateLimitError
		require.ErrorAs(t, err, &rateErr)
		assert.Equal(t, 9*time.Second, rateErr.RetryAfter)
	})

	t.Run("5xx becomes unavailable", func(t *testing.T) {
		err := MapError("gw", "m", time.Minute, upstream(http.StatusBadGateway, `{"message":"upstream down"}`))
		var unavailErr *provider.UnavailableError
		require.ErrorAs(t, err, &unavailErr)
		assert.Equal(t, "upstream down", unavailErr.Reason)
	})

	t.Run("other statuses become invalid-response", func(t *testing.T) {
		err := MapError("gw", "m", time.Minute, upstream(http.StatusTeapot, `nonsense`))
		var invalidErr *provider.InvalidResponseError
		require.ErrorAs(t, err, &invalidErr)
	})
}

func TestMapError_CancellationPassesThrough(t *testing.T) {
	err := MapError("gw", "m", time.Minute, context.Canceled)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestMapError_DeadlineBecomesTimeout(t *testing.T) {
	err := MapError("gw", "m", 30*time.Second, context.DeadlineExceeded)
	var timeoutErr *provider.TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, 30*time.Second, timeoutErr.Timeout)
}

func TestMapError_GenericBecomesNetwork(t *testing.T) {
	cause := errors.New("connection refused")
	err := MapError("gw", "m", time.Minute, cause)
	var netErr *provider.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.True(t, errors.Is(err, cause))
}

func TestErrorMessage_FallsBackToTruncatedBody(t *testing.T) {
	assert.Equal(t, "oops", errorMessage([]byte(`{"error":{"message":"oops"}}`)))
	assert.Equal(t, "flat", errorMessage([]byte(`{"message":"flat"}`)))

	long := make([]byte, 400)
	for i := range long {
		long[i] = 'x'
	}
	msg := errorMessage(long)
	assert.Len(t, msg, 203) // 200 chars plus ellipsis
}
