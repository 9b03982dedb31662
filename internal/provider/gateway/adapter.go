// Package gateway implements the adapter for a remote aggregator gateway
// (an OpenRouter-style service multiplexing many hosted models behind one
// OpenAI-compatible API). It requires api-key auth and attaches the
// gateway's attribution headers to every request.
package gateway

import (
	"context"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/spindlehq/spindle/internal/httpclient"
	"github.com/spindlehq/spindle/internal/provider"
	"github.com/spindlehq/spindle/internal/provider/openaicompat"
)

const (
	// DefaultEndpoint is the hosted aggregator's versioned API root.
	DefaultEndpoint = "https://openrouter.ai/api/v1"

	// Attribution headers the aggregator asks clients to send.
	defaultReferrer = "https://github.com/spindlehq/spindle"
	defaultTitle    = "spindle"

	defaultTimeout = 60 * time.Second
)

// Adapter talks to one remote aggregator gateway.
type Adapter struct {
	cfg       provider.Config
	caller    *openaicompat.Caller
	client    *httpclient.Client
	available atomic.Bool
}

// New validates the configuration and constructs the adapter. The gateway
// requires api-key auth with a non-empty key; endpoint and attribution
// headers default when absent.
func New(cfg provider.Config) (*Adapter, error) {
	if cfg.Auth.Kind != provider.AuthAPIKey && cfg.Auth.Kind != provider.AuthBearer {
		return nil, &provider.ConfigError{
			Provider: cfg.Name,
			Field:    "auth.kind",
			Message:  "gateway requires api-key auth",
		}
	}
	if cfg.Auth.APIKey == "" {
		return nil, &provider.ConfigError{
			Provider: cfg.Name,
			Field:    "auth.api_key",
			Message:  "gateway requires a non-empty API key",
		}
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	headers := map[string]string{
		"Authorization": "Bearer " + cfg.Auth.APIKey,
		"HTTP-Referer":  defaultReferrer,
		"X-Title":       defaultTitle,
	}
	for k, v := range cfg.Auth.Headers {
		headers[k] = v
	}

	client := httpclient.NewClient(timeout, cfg.RequestsPerSecond)
	return &Adapter{
		cfg:    cfg,
		client: client,
		caller: &openaicompat.Caller{
			Provider: cfg.Name,
			BaseURL:  strings.TrimRight(endpoint, "/"),
			Headers:  headers,
			Client:   client,
			Timeout:  timeout,
		},
	}, nil
}

func (a *Adapter) Name() string        { return a.cfg.Name }
func (a *Adapter) Kind() provider.Kind { return provider.KindGateway }
func (a *Adapter) Available() bool     { return a.available.Load() }

// Init probes the gateway with a list-models call.
func (a *Adapter) Init(ctx context.Context) error {
	if _, err := a.caller.ListModels(ctx); err != nil {
		a.available.Store(false)
		return &provider.UnavailableError{Provider: a.cfg.Name, Reason: err.Error()}
	}
	a.available.Store(true)
	return nil
}

// modelList is the aggregator's listing shape. Unlike a local server it
// reports context sizes and a per-token price sheet.
type modelList struct {
	Data []struct {
		ID            string `json:"id"`
		Name          string `json:"name"`
		ContextLength int    `json:"context_length"`
		Pricing       struct {
			Prompt     string `json:"prompt"`
			Completion string `json:"completion"`
		} `json:"pricing"`
	} `json:"data"`
}

// Models lists the gateway's models. Listing failures propagate as-is; the
// gateway has no sensible fallback catalogue. Reported context length and
// pricing override the id heuristics where present.
func (a *Adapter) Models(ctx context.Context) ([]provider.ModelInfo, error) {
	var list modelList
	url := a.caller.BaseURL + "/models"
	if err := httpclient.Send(ctx, a.caller.Client, "GET", url, a.caller.Headers, nil, &list); err != nil {
		return nil, openaicompat.MapError(a.cfg.Name, "", a.caller.Timeout, err)
	}

	models := make([]provider.ModelInfo, len(list.Data))
	for i, m := range list.Data {
		caps := provider.HeuristicCapabilities(m.ID)
		if m.ContextLength > 0 {
			caps.ContextWindow = m.ContextLength
		}

		name := m.Name
		if name == "" {
			name = m.ID
		}
		info := provider.ModelInfo{
			ID:           m.ID,
			Name:         name,
			Provider:     a.cfg.Name,
			Capabilities: caps,
		}
		if pricing := parsePricing(m.Pricing.Prompt, m.Pricing.Completion); pricing != nil {
			info.Pricing = pricing
		}
		models[i] = info
	}
	return models, nil
}

// parsePricing converts the gateway's string prices. Both zero means the
// model reports no usable price sheet.
func parsePricing(prompt, completion string) *provider.Pricing {
	in, errIn := strconv.ParseFloat(prompt, 64)
	out, errOut := strconv.ParseFloat(completion, 64)
	if errIn != nil || errOut != nil {
		return nil
	}
	if in == 0 && out == 0 {
		return nil
	}
	return &provider.Pricing{Input: in, Output: out, Currency: "USD"}
}

// CheckHealth probes the listing endpoint and reports a timed snapshot.
func (a *Adapter) CheckHealth(ctx context.Context) provider.Health {
	start := time.Now()
	_, err := a.caller.ListModels(ctx)

	health := provider.Health{
		Provider:  a.cfg.Name,
		Healthy:   err == nil,
		Latency:   time.Since(start),
		CheckedAt: time.Now(),
	}
	if err != nil {
		health.Err = err.Error()
	}
	return health
}

func (a *Adapter) Chat(ctx context.Context, req *provider.ChatRequest) (*provider.ChatResponse, error) {
	return a.caller.Chat(ctx, req)
}

func (a *Adapter) ChatStream(ctx context.Context, req *provider.ChatRequest) (<-chan provider.StreamResult, error) {
	return a.caller.ChatStream(ctx, req)
}

// Close releases pooled connections.
func (a *Adapter) Close() error {
	a.available.Store(false)
	a.client.CloseIdleConnections()
	return nil
}
