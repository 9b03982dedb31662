package manager

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/spindlehq/spindle/internal/provider"
)

// Strategy selects one provider among the capability-matching candidates.
type Strategy string

const (
	FirstAvailable Strategy = "first-available"
	Fastest        Strategy = "fastest"
	Cheapest       Strategy = "cheapest"
	MostCapable    Strategy = "most-capable"
	Random         Strategy = "random"
)

// candidate pairs a provider with the model catalogue used to qualify it
// and its configured priority, so strategies do not repeat listing or
// config lookups within one selection pass.
type candidate struct {
	p        provider.Provider
	models   []provider.ModelInfo
	priority int
}

// Best returns the preferred provider under the given strategy. Candidates
// are the available providers exposing at least one model that meets every
// requirement; with none left the call fails with a not-found error.
func (m *Manager) Best(ctx context.Context, strategy Strategy, reqs *provider.Requirements) (provider.Provider, error) {
	if m.State() != StateReady {
		return nil, &provider.UnavailableError{Provider: "manager", Reason: "manager is " + m.State().String()}
	}

	candidates := m.qualify(ctx, reqs)
	if len(candidates) == 0 {
		return nil, &provider.NotFoundError{Name: string(strategy)}
	}

	switch strategy {
	case Fastest:
		return m.pickFastest(ctx, candidates), nil
	case Cheapest:
		return pickCheapest(candidates), nil
	case MostCapable:
		return pickMostCapable(candidates), nil
	case Random:
		return candidates[rand.Intn(len(candidates))].p, nil
	case FirstAvailable:
		fallthrough
	default:
		return pickFirst(candidates), nil
	}
}

// qualify filters available providers by capability requirements. A
// provider whose catalogue cannot be listed is excluded: it cannot
// demonstrate any capability.
func (m *Manager) qualify(ctx context.Context, reqs *provider.Requirements) []candidate {
	var out []candidate
	for _, p := range m.Available() {
		models, err := m.models(ctx, p)
		if err != nil {
			m.log.Debug("excluding provider from selection",
				zap.String("provider", p.Name()), zap.Error(err))
			continue
		}

		c := candidate{p: p, models: models, priority: m.priorityFor(p.Name())}
		if reqs == nil {
			out = append(out, c)
			continue
		}
		for _, model := range models {
			if model.Capabilities.Meets(*reqs) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// pickFirst orders candidates by configured priority (ascending =
// preferred, stable for equal priorities) and takes the head.
func pickFirst(candidates []candidate) provider.Provider {
	sorted := make([]candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].priority < sorted[j].priority
	})
	return sorted[0].p
}

// pickFastest probes every candidate concurrently and keeps the healthy
// one with the lowest reported latency. With no healthy candidate it falls
// back to the first candidate in original order; that fallback is
// deliberate, not an error.
func (m *Manager) pickFastest(ctx context.Context, candidates []candidate) provider.Provider {
	healths := make([]provider.Health, len(candidates))

	var wg sync.WaitGroup
	for i, c := range candidates {
		i, c := i, c
		wg.Add(1)
		go func() {
			defer wg.Done()
			healths[i] = c.p.CheckHealth(ctx)
		}()
	}
	wg.Wait()

	best := -1
	for i, h := range healths {
		if !h.Healthy {
			continue
		}
		if best == -1 || h.Latency < healths[best].Latency {
			best = i
		}
	}
	if best == -1 {
		m.log.Warn("no healthy candidate, falling back to first",
			zap.String("provider", candidates[0].p.Name()))
		return candidates[0].p
	}
	return candidates[best].p
}

// pickCheapest averages (input + output) price across each candidate's
// priced models. Candidates with no priced models inherit the first
// candidate's average so they are neither excluded nor preferred; any
// remaining tie breaks by ascending priority, then name.
func pickCheapest(candidates []candidate) provider.Provider {
	costs := make([]float64, len(candidates))
	for i, c := range candidates {
		costs[i] = averageCost(c.models)
	}

	baseline := costs[0]
	if math.IsNaN(baseline) {
		baseline = 0
	}
	for i := range costs {
		if math.IsNaN(costs[i]) {
			costs[i] = baseline
		}
	}

	best := 0
	for i := 1; i < len(costs); i++ {
		switch {
		case costs[i] < costs[best]:
			best = i
		case costs[i] == costs[best] && cheaperTieBreak(candidates[i], candidates[best]):
			best = i
		}
	}
	return candidates[best].p
}

// averageCost returns NaN when no model reports pricing.
func averageCost(models []provider.ModelInfo) float64 {
	var sum float64
	var priced int
	for _, m := range models {
		if m.Pricing == nil {
			continue
		}
		sum += m.Pricing.Input + m.Pricing.Output
		priced++
	}
	if priced == 0 {
		return math.NaN()
	}
	return sum / float64(priced)
}

func cheaperTieBreak(a, b candidate) bool {
	if a.priority != b.priority {
		return a.priority < b.priority
	}
	return a.p.Name() < b.p.Name()
}

// pickMostCapable scores each candidate as the sum over its models of the
// capability flags plus log10 of the context window and token limit, and
// takes the highest.
func pickMostCapable(candidates []candidate) provider.Provider {
	best := 0
	bestScore := math.Inf(-1)
	for i, c := range candidates {
		score := capabilityScore(c.models)
		if score > bestScore {
			best = i
			bestScore = score
		}
	}
	return candidates[best].p
}

func capabilityScore(models []provider.ModelInfo) float64 {
	var score float64
	for _, m := range models {
		caps := m.Capabilities
		for _, flag := range []bool{caps.Streaming, caps.Tools, caps.Vision, caps.CodeGen} {
			if flag {
				score++
			}
		}
		if caps.ContextWindow > 0 {
			score += math.Log10(float64(caps.ContextWindow))
		}
		if caps.MaxTokens > 0 {
			score += math.Log10(float64(caps.MaxTokens))
		}
	}
	return score
}

// priorityFor recovers the configured priority for a provider. Providers
// are matched to their config by name; unknown providers sort last.
func (m *Manager) priorityFor(name string) int {
	for _, cfg := range m.configs {
		if cfg.Name == name {
			return cfg.Priority
		}
	}
	return int(^uint(0) >> 1)
}
