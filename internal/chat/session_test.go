package chat

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spindlehq/spindle/internal/provider"
	"github.com/spindlehq/spindle/internal/tools"
)

// scriptedProvider replays canned turns and captures every request for
// later inspection.
type scriptedProvider struct {
	turns    [][]provider.StreamResult
	chats    []*provider.ChatResponse
	requests []*provider.ChatRequest
}

func (p *scriptedProvider) Name() string               { return "scripted" }
func (p *scriptedProvider) Kind() provider.Kind        { return provider.KindLocal }
func (p *scriptedProvider) Init(context.Context) error { return nil }
func (p *scriptedProvider) Available() bool            { return true }
func (p *scriptedProvider) Close() error               { return nil }
func (p *scriptedProvider) Models(context.Context) ([]provider.ModelInfo, error) {
	return nil, nil
}
func (p *scriptedProvider) CheckHealth(context.Context) provider.Health {
	return provider.Health{Provider: "scripted", Healthy: true}
}

func (p *scriptedProvider) Chat(ctx context.Context, req *provider.ChatRequest) (*provider.ChatResponse, error) {
	p.requests = append(p.requests, req)
	if len(p.chats) == 0 {
		return nil, fmt.Errorf("no scripted response")
	}
	resp := p.chats[0]
	p.chats = p.chats[1:]
	return resp, nil
}

func (p *scriptedProvider) ChatStream(ctx context.Context, req *provider.ChatRequest) (<-chan provider.StreamResult, error) {
	p.requests = append(p.requests, req)
	if len(p.turns) == 0 {
		return nil, fmt.Errorf("no scripted turn")
	}
	turn := p.turns[0]
	p.turns = p.turns[1:]

	ch := make(chan provider.StreamResult, len(turn))
	for _, res := range turn {
		ch <- res
	}
	close(ch)
	return ch, nil
}

func textChunk(text string) provider.StreamResult {
	return provider.StreamResult{Chunk: &provider.Chunk{
		Model: "test-model",
		Delta: provider.Delta{Content: text},
	}}
}

func finishChunk(reason provider.FinishReason) provider.StreamResult {
	return provider.StreamResult{Chunk: &provider.Chunk{
		Model:        "test-model",
		FinishReason: reason,
		Usage:        &provider.Usage{PromptTokens: 5, CompletionTokens: 7, TotalTokens: 12},
	}}
}

func toolChunk(index int, id, name, args string) provider.StreamResult {
	return provider.StreamResult{Chunk: &provider.Chunk{
		Model: "test-model",
		Delta: provider.Delta{ToolCalls: []provider.ToolCallFragment{
			{Index: index, ID: id, Name: name, Arguments: args},
		}},
	}}
}

// echoTool reflects its arguments back, letting tests observe execution.
type echoTool struct{}

func (echoTool) Name() string        { return "echo" }
func (echoTool) Description() string { return "Echo the given text back." }
func (echoTool) Safety() tools.Safety {
	return tools.SafetyReadOnly
}
func (echoTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text": map[string]any{"type": "string"},
		},
		"required": []any{"text"},
	}
}
func (echoTool) Execute(_ context.Context, args string) (tools.Result, error) {
	return tools.Result{Output: "echoed " + args}, nil
}

// failTool always reports a tool-level failure.
type failTool struct{ echoTool }

func (failTool) Name() string { return "fail" }
func (failTool) Execute(context.Context, string) (tools.Result, error) {
	return tools.Result{Error: "disk on fire"}, nil
}

func toolRegistry() *tools.Registry {
	r := tools.NewRegistry(nil, false)
	r.Register(echoTool{})
	r.Register(failTool{})
	return r
}

func TestAsk_StreamsContentToOut(t *testing.T) {
	p := &scriptedProvider{turns: [][]provider.StreamResult{{
		textChunk("hello"),
		textChunk(" world"),
		finishChunk(provider.FinishStop),
	}}}

	var out bytes.Buffer
	s, err := NewSession(context.Background(), zap.NewNop(), Options{
		Provider: p,
		Model:    "test-model",
		Out:      &out,
	})
	require.NoError(t, err)

	require.NoError(t, s.Ask(context.Background(), "greet me"))
	assert.Equal(t, "hello world\n", out.String())

	require.Len(t, p.requests, 1)
	assert.True(t, p.requests[0].Stream)
	assert.Equal(t, "greet me", p.requests[0].Messages[len(p.requests[0].Messages)-1].Content)
}

func TestAsk_SystemPromptSeedsThread(t *testing.T) {
	p := &scriptedProvider{turns: [][]provider.StreamResult{{
		textChunk("ok"),
		finishChunk(provider.FinishStop),
	}}}

	s, err := NewSession(context.Background(), zap.NewNop(), Options{
		Provider:     p,
		Model:        "test-model",
		SystemPrompt: "be terse",
	})
	require.NoError(t, err)

	require.NoError(t, s.Ask(context.Background(), "hi"))
	require.NotEmpty(t, p.requests)
	first := p.requests[0].Messages[0]
	assert.Equal(t, provider.RoleSystem, first.Role)
	assert.Equal(t, "be terse", first.Content)
}

func TestAsk_ToolRoundTrip(t *testing.T) {
	p := &scriptedProvider{turns: [][]provider.StreamResult{
		{
			toolChunk(0, "call_1", "echo", `{"te`),
			toolChunk(0, "", "", `xt":"hi"}`),
			finishChunk(provider.FinishToolCalls),
		},
		{
			textChunk("done"),
			finishChunk(provider.FinishStop),
		},
	}}

	var out bytes.Buffer
	s, err := NewSession(context.Background(), zap.NewNop(), Options{
		Provider: p,
		Model:    "test-model",
		Tools:    toolRegistry(),
		Out:      &out,
	})
	require.NoError(t, err)

	require.NoError(t, s.Ask(context.Background(), "use the tool"))
	assert.Contains(t, out.String(), "[tool] echo")
	assert.Contains(t, out.String(), "done")

	// The second request must carry the assembled call and its result.
	require.Len(t, p.requests, 2)
	msgs := p.requests[1].Messages
	require.GreaterOrEqual(t, len(msgs), 2)

	assistant := msgs[len(msgs)-2]
	require.Len(t, assistant.ToolCalls, 1)
	assert.Equal(t, `{"text":"hi"}`, assistant.ToolCalls[0].Function.Arguments)

	result := msgs[len(msgs)-1]
	assert.Equal(t, provider.RoleTool, result.Role)
	assert.Equal(t, "call_1", result.ToolCallID)
	assert.Contains(t, result.Content, `echoed {"text":"hi"}`)
}

func TestAsk_ToolFailureFeedsBackAsContent(t *testing.T) {
	p := &scriptedProvider{turns: [][]provider.StreamResult{
		{
			toolChunk(0, "call_1", "fail", `{"text":"x"}`),
			finishChunk(provider.FinishToolCalls),
		},
		{
			textChunk("recovered"),
			finishChunk(provider.FinishStop),
		},
	}}

	s, err := NewSession(context.Background(), zap.NewNop(), Options{
		Provider: p,
		Model:    "test-model",
		Tools:    toolRegistry(),
	})
	require.NoError(t, err)

	require.NoError(t, s.Ask(context.Background(), "break something"))

	msgs := p.requests[1].Messages
	result := msgs[len(msgs)-1]
	assert.Equal(t, provider.RoleTool, result.Role)
	assert.Contains(t, result.Content, "error: disk on fire")
}

func TestAsk_RoundLimitTrips(t *testing.T) {
	// The model asks for a tool on every turn and never stops.
	loop := []provider.StreamResult{
		toolChunk(0, "call_n", "echo", `{"text":"again"}`),
		finishChunk(provider.FinishToolCalls),
	}
	p := &scriptedProvider{turns: [][]provider.StreamResult{loop, loop, loop}}

	s, err := NewSession(context.Background(), zap.NewNop(), Options{
		Provider:      p,
		Model:         "test-model",
		MaxToolRounds: 3,
		Tools:         toolRegistry(),
	})
	require.NoError(t, err)

	err = s.Ask(context.Background(), "loop forever")
	assert.ErrorIs(t, err, ErrToolRoundsExhausted)
}

func TestAsk_ToolsRequestedButDisabled(t *testing.T) {
	p := &scriptedProvider{turns: [][]provider.StreamResult{{
		toolChunk(0, "call_1", "echo", `{"text":"hi"}`),
		finishChunk(provider.FinishToolCalls),
	}}}

	s, err := NewSession(context.Background(), zap.NewNop(), Options{
		Provider: p,
		Model:    "test-model",
	})
	require.NoError(t, err)

	err = s.Ask(context.Background(), "try tools")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disabled")
}

func TestAsk_MalformedStreamItemDoesNotAbort(t *testing.T) {
	p := &scriptedProvider{turns: [][]provider.StreamResult{{
		textChunk("good"),
		{Err: &provider.InvalidResponseError{Provider: "scripted", Raw: "{bad"}},
		textChunk(" enough"),
		finishChunk(provider.FinishStop),
	}}}

	var out bytes.Buffer
	s, err := NewSession(context.Background(), zap.NewNop(), Options{
		Provider: p,
		Model:    "test-model",
		Out:      &out,
	})
	require.NoError(t, err)

	require.NoError(t, s.Ask(context.Background(), "hi"))
	assert.Equal(t, "good enough\n", out.String())
}

func TestComplete_ReturnsFinalContent(t *testing.T) {
	p := &scriptedProvider{chats: []*provider.ChatResponse{{
		Model:        "test-model",
		Message:      provider.Message{Role: provider.RoleAssistant, Content: "forty-two"},
		FinishReason: provider.FinishStop,
		Usage:        provider.Usage{TotalTokens: 9},
	}}}

	s, err := NewSession(context.Background(), zap.NewNop(), Options{
		Provider: p,
		Model:    "test-model",
	})
	require.NoError(t, err)

	answer, err := s.Complete(context.Background(), "the question")
	require.NoError(t, err)
	assert.Equal(t, "forty-two", answer)
	assert.False(t, p.requests[0].Stream)
}

func TestComplete_ToolRoundTrip(t *testing.T) {
	p := &scriptedProvider{chats: []*provider.ChatResponse{
		{
			Model:        "test-model",
			FinishReason: provider.FinishToolCalls,
			ToolCalls: []provider.ToolCall{{
				ID:       "call_1",
				Type:     "function",
				Function: provider.FunctionCall{Name: "echo", Arguments: `{"text":"hi"}`},
			}},
		},
		{
			Model:        "test-model",
			Message:      provider.Message{Role: provider.RoleAssistant, Content: "all wrapped up"},
			FinishReason: provider.FinishStop,
		},
	}}

	s, err := NewSession(context.Background(), zap.NewNop(), Options{
		Provider: p,
		Model:    "test-model",
		Tools:    toolRegistry(),
	})
	require.NoError(t, err)

	answer, err := s.Complete(context.Background(), "use a tool")
	require.NoError(t, err)
	assert.Equal(t, "all wrapped up", answer)
	require.Len(t, p.requests, 2)
}
