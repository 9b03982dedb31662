// Package registry maps provider configurations to concrete adapter
// constructors. The registry is an explicit value built once at the
// composition root and passed by reference; there is no package-global
// factory map.
package registry

import (
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entrans "github.com/go-playground/validator/v10/translations/en"

	"github.com/spindlehq/spindle/internal/provider"
	"github.com/spindlehq/spindle/internal/provider/gateway"
	"github.com/spindlehq/spindle/internal/provider/localserver"
)

// Factory constructs an adapter from a validated configuration. The factory
// re-validates backend-specific requirements before constructing anything.
type Factory func(cfg provider.Config) (provider.Provider, error)

// Registry holds named construction strategies.
type Registry struct {
	mu        sync.RWMutex
	factories map[provider.Kind]Factory
	validate  *validator.Validate
	trans     ut.Translator
}

// New builds an empty registry with a configured struct validator.
func New() *Registry {
	validate := validator.New()
	locale := en.New()
	uni := ut.New(locale, locale)
	trans, _ := uni.GetTranslator("en")
	_ = entrans.RegisterDefaultTranslations(validate, trans)

	return &Registry{
		factories: make(map[provider.Kind]Factory),
		validate:  validate,
		trans:     trans,
	}
}

// Default returns a registry with both built-in backend factories.
func Default() *Registry {
	r := New()
	r.Register(provider.KindLocal, func(cfg provider.Config) (provider.Provider, error) {
		return localserver.New(cfg)
	})
	r.Register(provider.KindGateway, func(cfg provider.Config) (provider.Provider, error) {
		return gateway.New(cfg)
	})
	return r
}

// Register adds a named construction strategy.
func (r *Registry) Register(kind provider.Kind, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = f
}

// Create validates the configuration and constructs the matching adapter.
// The factory is resolved by exact kind first, then by a substring
// heuristic on the provider name. Any validation failure returns an error
// value and constructs nothing.
func (r *Registry) Create(cfg provider.Config) (provider.Provider, error) {
	if err := r.ValidateConfig(&cfg); err != nil {
		return nil, err
	}

	factory, ok := r.lookup(cfg)
	if !ok {
		return nil, &provider.NotFoundError{Name: cfg.Name}
	}
	return factory(cfg)
}

func (r *Registry) lookup(cfg provider.Config) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if f, ok := r.factories[cfg.Kind]; ok {
		return f, true
	}

	// No exact match; resolve by name marker.
	name := strings.ToLower(cfg.Name)
	switch {
	case containsAny(name, "local", "ollama", "lmstudio", "vllm"):
		f, ok := r.factories[provider.KindLocal]
		return f, ok
	case containsAny(name, "gateway", "router", "openrouter"):
		f, ok := r.factories[provider.KindGateway]
		return f, ok
	}
	return nil, false
}

func containsAny(s string, markers ...string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// ValidateConfig schema-checks the configuration, applies backend-specific
// rules, and normalizes defaults in place. It returns error values only;
// it never panics on bad input.
func (r *Registry) ValidateConfig(cfg *provider.Config) error {
	if err := r.validate.Struct(cfg); err != nil {
		var errs validator.ValidationErrors
		if ok := asValidationErrors(err, &errs); ok && len(errs) > 0 {
			first := errs[0]
			return &provider.ConfigError{
				Provider: cfg.Name,
				Field:    strings.ToLower(first.Field()),
				Message:  first.Translate(r.trans),
			}
		}
		return &provider.ConfigError{Provider: cfg.Name, Field: "config", Message: err.Error()}
	}

	if cfg.Kind == "" {
		// Kind omitted; resolve it from the name marker so the rest of the
		// rules know which backend they are validating.
		name := strings.ToLower(cfg.Name)
		switch {
		case containsAny(name, "local", "ollama", "lmstudio", "vllm"):
			cfg.Kind = provider.KindLocal
		case containsAny(name, "gateway", "router", "openrouter"):
			cfg.Kind = provider.KindGateway
		default:
			return &provider.ConfigError{
				Provider: cfg.Name,
				Field:    "kind",
				Message:  "kind is required and could not be inferred from the name",
			}
		}
	}

	switch cfg.Kind {
	case provider.KindGateway:
		if cfg.Auth.Kind != provider.AuthAPIKey && cfg.Auth.Kind != provider.AuthBearer {
			return &provider.ConfigError{
				Provider: cfg.Name,
				Field:    "auth.kind",
				Message:  "gateway requires api-key auth",
			}
		}
		if cfg.Auth.APIKey == "" {
			return &provider.ConfigError{
				Provider: cfg.Name,
				Field:    "auth.api_key",
				Message:  "gateway requires a non-empty API key",
			}
		}
		if cfg.Endpoint == "" {
			cfg.Endpoint = gateway.DefaultEndpoint
		}

	case provider.KindLocal:
		if cfg.Endpoint == "" && cfg.Auth.BaseURL == "" {
			return &provider.ConfigError{
				Provider: cfg.Name,
				Field:    "endpoint",
				Message:  "local server requires a base URL",
			}
		}
	}

	if !strings.HasPrefix(cfg.Endpoint, "http://") && !strings.HasPrefix(cfg.Endpoint, "https://") && cfg.Endpoint != "" {
		return &provider.ConfigError{
			Provider: cfg.Name,
			Field:    "endpoint",
			Message:  "endpoint must be an absolute http(s) URL",
		}
	}

	return nil
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	verrs, ok := err.(validator.ValidationErrors)
	if ok {
		*target = verrs
	}
	return ok
}
