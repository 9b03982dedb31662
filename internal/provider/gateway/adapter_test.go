package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spindlehq/spindle/internal/provider"
)

func gatewayConfig(endpoint string) provider.Config {
	return provider.Config{
		Name:     "openrouter",
		Kind:     provider.KindGateway,
		Enabled:  true,
		Endpoint: endpoint,
		Timeout:  5 * time.Second,
		Auth: provider.AuthConfig{
			Kind:   provider.AuthAPIKey,
			APIKey: "sk-test",
		},
	}
}

func TestNew_RequiresAPIKeyAuth(t *testing.T) {
	cfg := gatewayConfig("")
	cfg.Auth = provider.AuthConfig{Kind: provider.AuthNone}

	_, err := New(cfg)
	var cfgErr *provider.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "auth.kind", cfgErr.Field)
}

func TestNew_RejectsEmptyKey(t *testing.T) {
	cfg := gatewayConfig("")
	cfg.Auth.APIKey = ""

	_, err := New(cfg)
	var cfgErr *provider.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "auth.api_key", cfgErr.Field)
}

func TestNew_DefaultsEndpoint(t *testing.T) {
	a, err := New(gatewayConfig(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultEndpoint, a.caller.BaseURL)
}

func TestRequests_CarryAttributionHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, defaultReferrer, r.Header.Get("HTTP-Referer"))
		assert.Equal(t, defaultTitle, r.Header.Get("X-Title"))
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	a, err := New(gatewayConfig(srv.URL))
	require.NoError(t, err)
	require.NoError(t, a.Init(context.Background()))
	assert.True(t, a.Available())
}

func TestNew_ExtraHeadersOverrideDefaults(t *testing.T) {
	cfg := gatewayConfig("")
	cfg.Auth.Headers = map[string]string{"X-Title": "my-agent"}

	a, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "my-agent", a.caller.Headers["X-Title"])
	assert.Equal(t, "Bearer sk-test", a.caller.Headers["Authorization"])
}

func TestModels_ParsesCatalogue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/models", r.URL.Path)
		w.Write([]byte(`{"data":[
			{"id":"meta-llama/llama-3.1-70b","name":"Llama 3.1 70B","context_length":131072,
			 "pricing":{"prompt":"0.0000005","completion":"0.0000015"}},
			{"id":"free/tiny","name":"","context_length":0,
			 "pricing":{"prompt":"0","completion":"0"}}
		]}`))
	}))
	defer srv.Close()

	a, err := New(gatewayConfig(srv.URL))
	require.NoError(t, err)

	models, err := a.Models(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 2)

	priced := models[0]
	assert.Equal(t, "Llama 3.1 70B", priced.Name)
	assert.Equal(t, 131072, priced.Capabilities.ContextWindow)
	require.NotNil(t, priced.Pricing)
	assert.InDelta(t, 0.0000005, priced.Pricing.Input, 1e-12)
	assert.InDelta(t, 0.0000015, priced.Pricing.Output, 1e-12)
	assert.Equal(t, "USD", priced.Pricing.Currency)
	assert.False(t, priced.IsLocal)

	free := models[1]
	assert.Equal(t, "free/tiny", free.Name) // falls back to the id
	assert.Nil(t, free.Pricing)
}

func TestModels_ListingFailurePropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	a, err := New(gatewayConfig(srv.URL))
	require.NoError(t, err)

	_, err = a.Models(context.Background())
	var unavailErr *provider.UnavailableError
	require.ErrorAs(t, err, &unavailErr)
}

func TestParsePricing(t *testing.T) {
	assert.Nil(t, parsePricing("0", "0"))
	assert.Nil(t, parsePricing("free", "0"))

	p := parsePricing("0.001", "0.002")
	require.NotNil(t, p)
	assert.Equal(t, 0.001, p.Input)
	assert.Equal(t, 0.002, p.Output)
}

func TestCheckHealth_ReportsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	a, err := New(gatewayConfig(srv.URL))
	require.NoError(t, err)

	health := a.CheckHealth(context.Background())
	assert.False(t, health.Healthy)
	assert.NotEmpty(t, health.Err)
	assert.Greater(t, health.Latency, time.Duration(0))
}
