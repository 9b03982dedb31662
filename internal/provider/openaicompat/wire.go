// Package openaicompat implements the OpenAI-compatible wire schema spoken
// by both backend families (GET /v1/models, POST /v1/chat/completions) and
// the translation between it and the generic chat-completion model. Both
// adapters compose this codec; neither embeds the other.
package openaicompat

import (
	"encoding/json"

	"github.com/spindlehq/spindle/internal/provider"
)

// Request is the chat-completions request body.
type Request struct {
	Model         string         `json:"model"`
	Messages      []Message      `json:"messages"`
	Temperature   float64        `json:"temperature,omitempty"`
	MaxTokens     int            `json:"max_tokens,omitempty"`
	Stop          *provider.Stop `json:"stop,omitempty"`
	Tools         []Tool         `json:"tools,omitempty"`
	ToolChoice    any            `json:"tool_choice,omitempty"`
	Stream        bool           `json:"stream,omitempty"`
	StreamOptions *StreamOptions `json:"stream_options,omitempty"`
}

type StreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	Name       string     `json:"name,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

type Tool struct {
	Type     string             `json:"type"`
	Function FunctionDefinition `json:"function"`
}

type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// ToolCall carries Index for streaming fragments; it is nil on complete
// calls in non-streaming responses.
type ToolCall struct {
	Index    *int         `json:"index,omitempty"`
	ID       string       `json:"id,omitempty"`
	Type     string       `json:"type,omitempty"`
	Function FunctionCall `json:"function"`
}

type FunctionCall struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the non-streaming chat-completions response body.
type Response struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int     `json:"index"`
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage *Usage `json:"usage,omitempty"`
}

// Chunk is one streamed chat-completions fragment.
type Chunk struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Delta struct {
			Role      string     `json:"role,omitempty"`
			Content   string     `json:"content,omitempty"`
			ToolCalls []ToolCall `json:"tool_calls,omitempty"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Usage *Usage `json:"usage,omitempty"`
}

// ModelList is the GET /v1/models response body.
type ModelList struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// EncodeRequest translates the generic request into the wire shape. When
// stream is set, usage reporting on the final chunk is requested too.
func EncodeRequest(req *provider.ChatRequest, stream bool) *Request {
	wire := &Request{
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stop:        req.Stop,
		ToolChoice:  req.ToolChoice,
		Stream:      stream,
	}
	if stream {
		wire.StreamOptions = &StreamOptions{IncludeUsage: true}
	}

	wire.Messages = make([]Message, len(req.Messages))
	for i, m := range req.Messages {
		wm := Message{
			Role:       m.Role,
			Content:    m.Content,
			Name:       m.Name,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			wm.ToolCalls = append(wm.ToolCalls, ToolCall{
				ID:   tc.ID,
				Type: "function",
				Function: FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
		wire.Messages[i] = wm
	}

	for _, t := range req.Tools {
		wire.Tools = append(wire.Tools, Tool{
			Type: "function",
			Function: FunctionDefinition{
				Name:        t.Function.Name,
				Description: t.Function.Description,
				Parameters:  t.Function.Parameters,
			},
		})
	}

	return wire
}

// DecodeResponse normalizes a wire response. Tool-call argument strings are
// verified to be valid JSON; a parse failure surfaces as an
// InvalidResponseError value rather than a panic.
func DecodeResponse(name string, wire *Response) (*provider.ChatResponse, error) {
	resp := &provider.ChatResponse{
		ID:           wire.ID,
		Model:        wire.Model,
		FinishReason: provider.FinishStop,
	}
	if wire.Usage != nil {
		resp.Usage = provider.Usage{
			PromptTokens:     wire.Usage.PromptTokens,
			CompletionTokens: wire.Usage.CompletionTokens,
			TotalTokens:      wire.Usage.TotalTokens,
		}
	}

	if len(wire.Choices) == 0 {
		return resp, nil
	}
	choice := wire.Choices[0]
	resp.FinishReason = provider.ParseFinishReason(choice.FinishReason)
	resp.Message = provider.Message{
		Role:    choice.Message.Role,
		Content: choice.Message.Content,
	}

	for _, tc := range choice.Message.ToolCalls {
		call, err := decodeToolCall(name, tc)
		if err != nil {
			return nil, err
		}
		resp.ToolCalls = append(resp.ToolCalls, call)
	}
	resp.Message.ToolCalls = resp.ToolCalls

	return resp, nil
}

func decodeToolCall(name string, tc ToolCall) (provider.ToolCall, error) {
	args := tc.Function.Arguments
	if args == "" {
		args = "{}"
	}
	if !json.Valid([]byte(args)) {
		return provider.ToolCall{}, &provider.InvalidResponseError{
			Provider: name,
			Raw:      tc.Function.Arguments,
			Cause:    errInvalidToolArgs,
		}
	}
	return provider.ToolCall{
		ID:   tc.ID,
		Type: "function",
		Function: provider.FunctionCall{
			Name:      tc.Function.Name,
			Arguments: args,
		},
	}, nil
}

// DecodeChunk normalizes one streamed fragment. Tool-call fragments are
// forwarded as partial, preserving the backend's index; assembly is the
// consumer's job.
func DecodeChunk(name string, data []byte) (*provider.Chunk, error) {
	var wire Chunk
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, &provider.InvalidResponseError{
			Provider: name,
			Raw:      string(data),
			Cause:    err,
		}
	}

	chunk := &provider.Chunk{ID: wire.ID, Model: wire.Model}
	if wire.Usage != nil {
		chunk.Usage = &provider.Usage{
			PromptTokens:     wire.Usage.PromptTokens,
			CompletionTokens: wire.Usage.CompletionTokens,
			TotalTokens:      wire.Usage.TotalTokens,
		}
	}

	if len(wire.Choices) == 0 {
		return chunk, nil
	}
	choice := wire.Choices[0]
	chunk.Delta.Role = choice.Delta.Role
	chunk.Delta.Content = choice.Delta.Content

	for _, tc := range choice.Delta.ToolCalls {
		idx := 0
		if tc.Index != nil {
			idx = *tc.Index
		}
		chunk.Delta.ToolCalls = append(chunk.Delta.ToolCalls, provider.ToolCallFragment{
			Index:     idx,
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	if choice.FinishReason != nil && *choice.FinishReason != "" {
		chunk.FinishReason = provider.ParseFinishReason(*choice.FinishReason)
	}

	return chunk, nil
}
