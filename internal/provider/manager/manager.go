// Package manager owns the set of live providers. It initializes them from
// configuration through the registry, answers strategy-driven selection
// queries, fans out health probes, and tears everything down on close.
package manager

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/spindlehq/spindle/internal/cache"
	"github.com/spindlehq/spindle/internal/provider"
	"github.com/spindlehq/spindle/internal/provider/registry"
)

// State is the manager lifecycle. Ready and Failed are reached from
// Initializing; Disposed is terminal.
type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateFailed
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// modelListTTL bounds how long a provider's model catalogue is reused
// across selection passes within one process.
const modelListTTL = 30 * time.Second

// Manager holds the initialized providers. The provider slice is write-once
// during Init and read-only afterwards; no locking is needed post-init
// beyond the state word.
type Manager struct {
	log      *zap.Logger
	registry *registry.Registry
	cache    cache.Service
	configs  []provider.Config

	mu        sync.Mutex
	providers []provider.Provider
	state     atomic.Int32
}

// New builds a manager over the given configurations. The registry and
// cache are injected from the composition root.
func New(log *zap.Logger, reg *registry.Registry, c cache.Service, configs []provider.Config) *Manager {
	if c == nil {
		c = cache.NewMemory()
	}
	return &Manager{
		log:      log,
		registry: reg,
		cache:    c,
		configs:  configs,
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// Init constructs and probes every configured, enabled provider in listed
// order. Individual failures are collected, not fatal; the manager reaches
// Ready when at least one provider initializes and Failed otherwise.
func (m *Manager) Init(ctx context.Context) error {
	if !m.state.CompareAndSwap(int32(StateUninitialized), int32(StateInitializing)) {
		return fmt.Errorf("manager already %s", m.State())
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var failures []string
	for _, cfg := range m.configs {
		if !cfg.Enabled {
			continue
		}

		p, err := m.registry.Create(cfg)
		if err != nil {
			m.log.Warn("provider construction failed",
				zap.String("provider", cfg.Name), zap.Error(err))
			failures = append(failures, fmt.Sprintf("%s: %v", cfg.Name, err))
			continue
		}

		if err := p.Init(ctx); err != nil {
			m.log.Warn("provider probe failed",
				zap.String("provider", cfg.Name), zap.Error(err))
			failures = append(failures, fmt.Sprintf("%s: %v", cfg.Name, err))
			_ = p.Close()
			continue
		}

		m.providers = append(m.providers, p)
		m.log.Info("provider initialized",
			zap.String("provider", p.Name()), zap.String("kind", string(p.Kind())))
	}

	if len(m.providers) == 0 {
		m.state.Store(int32(StateFailed))
		return &provider.UnavailableError{
			Provider: "manager",
			Reason:   "no providers initialized: " + strings.Join(failures, "; "),
		}
	}

	m.state.Store(int32(StateReady))
	if len(failures) > 0 {
		m.log.Warn("some providers failed to initialize",
			zap.Int("up", len(m.providers)), zap.Strings("failures", failures))
	}
	return nil
}

// Available returns the providers whose probe succeeded, in listed order.
func (m *Manager) Available() []provider.Provider {
	var out []provider.Provider
	for _, p := range m.providers {
		if p.Available() {
			out = append(out, p)
		}
	}
	return out
}

// Get returns a provider by name.
func (m *Manager) Get(name string) (provider.Provider, error) {
	for _, p := range m.providers {
		if p.Name() == name {
			return p, nil
		}
	}
	return nil, &provider.NotFoundError{Name: name}
}

// HealthCheck probes every live provider concurrently and returns the full
// snapshot array, ordered by internal provider iteration. The call waits
// for the slowest probe; latency is bounded by the slowest candidate by
// design.
func (m *Manager) HealthCheck(ctx context.Context) []provider.Health {
	results := make([]provider.Health, len(m.providers))

	var wg sync.WaitGroup
	for i, p := range m.providers {
		i, p := i, p
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = p.CheckHealth(ctx)
		}()
	}
	wg.Wait()

	return results
}

// Close disposes every provider concurrently, tolerating individual
// failures, then clears state. The manager cannot be reused afterwards.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var wg sync.WaitGroup
	for _, p := range m.providers {
		p := p
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.Close(); err != nil {
				m.log.Warn("provider close failed",
					zap.String("provider", p.Name()), zap.Error(err))
			}
		}()
	}
	wg.Wait()

	m.providers = nil
	m.state.Store(int32(StateDisposed))
	return nil
}

// models returns a provider's catalogue, consulting the shared cache first
// so one selection pass does not repeat identical listing calls.
func (m *Manager) models(ctx context.Context, p provider.Provider) ([]provider.ModelInfo, error) {
	key := "models:" + p.Name()

	var cached []provider.ModelInfo
	if err := m.cache.Get(ctx, key, &cached); err == nil {
		return cached, nil
	}

	models, err := p.Models(ctx)
	if err != nil {
		return nil, err
	}
	if err := m.cache.Set(ctx, key, models, modelListTTL); err != nil {
		m.log.Debug("model list cache write failed",
			zap.String("provider", p.Name()), zap.Error(err))
	}
	return models, nil
}
