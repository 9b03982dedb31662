package provider

import (
	"encoding/json"
	"time"
)

// Message role constants.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// FinishReason is the canonical reason a completion stopped.
type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishLength        FinishReason = "length"
	FinishToolCalls     FinishReason = "tool_calls"
	FinishContentFilter FinishReason = "content_filter"
)

// Kind identifies which backend family a provider speaks to.
type Kind string

const (
	KindLocal   Kind = "local"
	KindGateway Kind = "gateway"
)

// AuthKind selects how credentials are attached to outgoing requests.
type AuthKind string

const (
	AuthNone    AuthKind = "none"
	AuthAPIKey  AuthKind = "api-key"
	AuthBearer  AuthKind = "bearer"
	AuthBasic   AuthKind = "basic"
	AuthHeaders AuthKind = "headers"
)

// AuthConfig carries the credential material for one provider.
type AuthConfig struct {
	Kind    AuthKind          `json:"kind" yaml:"kind" mapstructure:"kind"`
	APIKey  string            `json:"api_key,omitempty" yaml:"api_key" mapstructure:"api_key"`
	BaseURL string            `json:"base_url,omitempty" yaml:"base_url" mapstructure:"base_url"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers" mapstructure:"headers"`
}

// Config is the immutable per-provider configuration. It is read once at
// startup by the config loader and never mutated afterwards.
type Config struct {
	Name     string        `json:"name" yaml:"name" mapstructure:"name" validate:"required"`
	Kind     Kind          `json:"kind" yaml:"kind" mapstructure:"kind" validate:"omitempty,oneof=local gateway"`
	Priority int           `json:"priority" yaml:"priority" mapstructure:"priority"` // ascending = preferred
	Enabled  bool          `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Auth     AuthConfig    `json:"auth" yaml:"auth" mapstructure:"auth"`
	Models   []string      `json:"models,omitempty" yaml:"models" mapstructure:"models"`
	Endpoint string        `json:"endpoint,omitempty" yaml:"endpoint" mapstructure:"endpoint"`
	Timeout  time.Duration `json:"timeout,omitempty" yaml:"timeout" mapstructure:"timeout"`
	// Retries is advisory for callers. The provider layer never retries.
	Retries int `json:"retries,omitempty" yaml:"retries" mapstructure:"retries"`
	// RequestsPerSecond enables client-side pacing when > 0.
	RequestsPerSecond float64 `json:"requests_per_second,omitempty" yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// Capabilities describes what a model can do. Boolean flags gate features,
// numeric limits are upper bounds.
type Capabilities struct {
	Streaming     bool `json:"streaming"`
	Tools         bool `json:"tools"`
	Vision        bool `json:"vision"`
	CodeGen       bool `json:"codegen"`
	MaxTokens     int  `json:"max_tokens"`
	ContextWindow int  `json:"context_window"`
}

// Pricing is the per-token price sheet for a model, when the backend reports
// one. Local models generally have none.
type Pricing struct {
	Input    float64 `json:"input"`
	Output   float64 `json:"output"`
	Currency string  `json:"currency"`
}

// ModelInfo is a normalized model listing entry.
type ModelInfo struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Provider     string       `json:"provider"`
	Capabilities Capabilities `json:"capabilities"`
	Pricing      *Pricing     `json:"pricing,omitempty"`
	IsLocal      bool         `json:"is_local"`
}

// Message is a single conversation turn, provider-agnostic.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	Name       string     `json:"name,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Timestamp  time.Time  `json:"timestamp,omitempty"`
}

// ToolCall is a function invocation requested by the model.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"` // always "function"
	Function FunctionCall `json:"function"`
}

// FunctionCall names the function and carries its JSON-encoded arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Tool is a function definition offered to the model.
type Tool struct {
	Type     string             `json:"type"` // always "function"
	Function FunctionDefinition `json:"function"`
}

type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"` // JSON Schema object
}

// Stop handles the wire union type: string | []string.
type Stop struct {
	Val []string
}

func (s *Stop) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '[' {
		return json.Unmarshal(data, &s.Val)
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	s.Val = []string{str}
	return nil
}

func (s Stop) MarshalJSON() ([]byte, error) {
	if len(s.Val) == 1 {
		return json.Marshal(s.Val[0])
	}
	return json.Marshal(s.Val)
}

// ChatRequest is the generic completion request, translated by each adapter
// into its backend's wire shape.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stop        *Stop     `json:"stop,omitempty"`
	Tools       []Tool    `json:"tools,omitempty"`
	ToolChoice  any       `json:"tool_choice,omitempty"` // "none", "auto", or object
	Stream      bool      `json:"stream,omitempty"`
}

// Usage is the token accounting triple.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResponse is a normalized, non-streaming completion result.
type ChatResponse struct {
	ID           string       `json:"id"`
	Model        string       `json:"model"`
	Message      Message      `json:"message"`
	FinishReason FinishReason `json:"finish_reason"`
	Usage        Usage        `json:"usage"`
	ToolCalls    []ToolCall   `json:"tool_calls,omitempty"`
}

// Delta is the incremental payload of one streaming chunk. Tool-call
// fragments arrive split across chunks keyed by index; adapters forward them
// as-is and assembly is the consumer's job.
type Delta struct {
	Role      string             `json:"role,omitempty"`
	Content   string             `json:"content,omitempty"`
	ToolCalls []ToolCallFragment `json:"tool_calls,omitempty"`
}

// ToolCallFragment is a partial tool call. Index positions the fragment
// within the final call list; ID and Name may be empty on continuations.
type ToolCallFragment struct {
	Index     int    `json:"index"`
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// Chunk is one streaming fragment. FinishReason is set only on the terminal
// chunk.
type Chunk struct {
	ID           string       `json:"id"`
	Model        string       `json:"model"`
	Delta        Delta        `json:"delta"`
	FinishReason FinishReason `json:"finish_reason,omitempty"`
	Usage        *Usage       `json:"usage,omitempty"`
}

// StreamResult is the per-item result yielded on a chat stream. Exactly one
// of Chunk or Err is set.
type StreamResult struct {
	Chunk *Chunk
	Err   error
}

// Health is a point-in-time probe snapshot, not a lifecycle state.
type Health struct {
	Provider  string        `json:"provider"`
	Healthy   bool          `json:"healthy"`
	Latency   time.Duration `json:"latency,omitempty"`
	Err       string        `json:"error,omitempty"`
	CheckedAt time.Time     `json:"checked_at"`
}

// Requirements filters candidate providers by model capability. Boolean
// fields must be satisfied when true; numeric fields require capability >=
// requirement.
type Requirements struct {
	Streaming     bool
	Tools         bool
	Vision        bool
	MaxTokens     int
	ContextWindow int
}

// Meets reports whether c satisfies r.
func (c Capabilities) Meets(r Requirements) bool {
	if r.Streaming && !c.Streaming {
		return false
	}
	if r.Tools && !c.Tools {
		return false
	}
	if r.Vision && !c.Vision {
		return false
	}
	if r.MaxTokens > 0 && c.MaxTokens < r.MaxTokens {
		return false
	}
	if r.ContextWindow > 0 && c.ContextWindow < r.ContextWindow {
		return false
	}
	return true
}

// ParseFinishReason maps a backend's raw finish-reason string onto the
// canonical four-way enum. Unrecognized values default to stop.
func ParseFinishReason(raw string) FinishReason {
	switch raw {
	case "length", "max_tokens":
		return FinishLength
	case "tool_calls", "function_call":
		return FinishToolCalls
	case "content_filter":
		return FinishContentFilter
	default:
		return FinishStop
	}
}
