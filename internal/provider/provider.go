// Package provider defines the uniform chat-completion contract implemented
// by every backend adapter, the normalized data model shared across the
// system, and the typed error values used at component boundaries.
package provider

import "context"

// Provider is the contract every backend adapter implements. Adapters are
// independent structs composing a shared transport; there is no base type.
//
// All blocking methods take a context for cancellation and timeout control
// and must return promptly when it is cancelled.
type Provider interface {
	// Name returns the configured provider name.
	Name() string

	// Kind returns the backend family (local or gateway).
	Kind() Kind

	// Init probes the backend with a lightweight list-models call. On failure
	// it returns the error as a value and leaves the provider unavailable;
	// it never panics.
	Init(ctx context.Context) error

	// Available reports whether Init succeeded. Only the owning manager
	// writes the underlying flag.
	Available() bool

	// Models lists the backend's models with heuristic capability data.
	Models(ctx context.Context) ([]ModelInfo, error)

	// CheckHealth probes the backend and returns a point-in-time snapshot.
	CheckHealth(ctx context.Context) Health

	// Chat sends a completion request and returns the normalized response.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// ChatStream sends a streaming completion request. The returned channel
	// is a finite, single-consumption sequence: it yields one StreamResult
	// per chunk and closes at the terminal chunk, on error, or on
	// cancellation. It is not restartable.
	ChatStream(ctx context.Context, req *ChatRequest) (<-chan StreamResult, error)

	// Close releases the adapter's resources. The provider must not be used
	// afterwards.
	Close() error
}
