package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSend_DecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		w.Write([]byte(`{"id":"resp-1"}`))
	}))
	defer srv.Close()

	var out struct {
		ID string `json:"id"`
	}
	headers := map[string]string{"Authorization": "Bearer sk-test"}
	err := Send(context.Background(), srv.Client(), "POST", srv.URL, headers, map[string]string{"k": "v"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "resp-1", out.ID)
}

func TestSend_Non2xxReturnsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"slow down"}}`))
	}))
	defer srv.Close()

	err := Send(context.Background(), srv.Client(), "GET", srv.URL, nil, nil, nil)
	require.Error(t, err)

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusTooManyRequests, upstream.StatusCode)
	assert.Equal(t, srv.URL, upstream.URL)
	assert.Equal(t, 7*time.Second, upstream.RetryAfter)
	assert.Contains(t, string(upstream.Body), "slow down")
}

func TestSend_NoRetries(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := Send(context.Background(), srv.Client(), "GET", srv.URL, nil, nil, nil)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestNewClient_PacingDisabledAtZero(t *testing.T) {
	c := NewClient(time.Second, 0)
	assert.Nil(t, c.limiter)

	paced := NewClient(time.Second, 2.5)
	assert.NotNil(t, paced.limiter)
}

func TestClient_DoRespectsCanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	c := NewClient(time.Second, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL, nil)
	require.NoError(t, err)

	_, err = c.Do(req)
	require.Error(t, err)
}
