// Package localserver implements the adapter for a local inference server
// (Ollama, LM Studio, vLLM and friends) speaking the OpenAI-compatible API.
// No credentials are attached; the server is assumed to be on a trusted
// loopback or LAN address.
package localserver

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/spindlehq/spindle/internal/httpclient"
	"github.com/spindlehq/spindle/internal/platform/logger"
	"github.com/spindlehq/spindle/internal/provider"
	"github.com/spindlehq/spindle/internal/provider/openaicompat"
)

const (
	// DefaultEndpoint is the stock Ollama listen address.
	DefaultEndpoint = "http://localhost:11434"

	defaultTimeout = 120 * time.Second
)

// fallbackModels is returned when the model-listing endpoint is unreachable.
// A local server with no reachable listing is still usable for completion
// calls, so this is a documented fallback, not an error.
var fallbackModels = []string{
	"llama3.1:8b",
	"qwen2.5-coder:7b",
	"mistral:7b",
}

// Adapter talks to one local inference server.
type Adapter struct {
	cfg       provider.Config
	caller    *openaicompat.Caller
	client    *httpclient.Client
	available atomic.Bool
}

// New validates the configuration and constructs the adapter. The base URL
// is required; the versioned API path is derived from it.
func New(cfg provider.Config) (*Adapter, error) {
	base := cfg.Endpoint
	if base == "" {
		base = cfg.Auth.BaseURL
	}
	if base == "" {
		return nil, &provider.ConfigError{
			Provider: cfg.Name,
			Field:    "endpoint",
			Message:  "local server requires a base URL",
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := httpclient.NewClient(timeout, cfg.RequestsPerSecond)
	return &Adapter{
		cfg:    cfg,
		client: client,
		caller: &openaicompat.Caller{
			Provider: cfg.Name,
			BaseURL:  apiRoot(base),
			Headers:  cfg.Auth.Headers,
			Client:   client,
			Timeout:  timeout,
		},
	}, nil
}

// apiRoot appends the /v1 path unless the operator already supplied one.
func apiRoot(base string) string {
	base = strings.TrimRight(base, "/")
	if strings.HasSuffix(base, "/v1") {
		return base
	}
	return base + "/v1"
}

func (a *Adapter) Name() string        { return a.cfg.Name }
func (a *Adapter) Kind() provider.Kind { return provider.KindLocal }
func (a *Adapter) Available() bool     { return a.available.Load() }

// Init probes the server with a list-models call. Failure leaves the
// adapter unavailable and is returned as a value.
func (a *Adapter) Init(ctx context.Context) error {
	if _, err := a.caller.ListModels(ctx); err != nil {
		a.available.Store(false)
		return &provider.UnavailableError{Provider: a.cfg.Name, Reason: err.Error()}
	}
	a.available.Store(true)
	return nil
}

// Models lists the server's models. When the listing endpoint fails the
// hardcoded default list is returned instead. Capabilities are heuristic,
// derived from each model id.
func (a *Adapter) Models(ctx context.Context) ([]provider.ModelInfo, error) {
	ids, err := a.caller.ListModels(ctx)
	if err != nil {
		logger.Warn("local model listing failed, using fallback list",
			zap.String("provider", a.cfg.Name), zap.Error(err))
		ids = fallbackModels
	}

	models := make([]provider.ModelInfo, len(ids))
	for i, id := range ids {
		models[i] = provider.ModelInfo{
			ID:           id,
			Name:         id,
			Provider:     a.cfg.Name,
			Capabilities: provider.HeuristicCapabilities(id),
			IsLocal:      true,
		}
	}
	return models, nil
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
