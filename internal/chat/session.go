// Package chat drives a conversation against one provider: it streams
// assistant output, feeds tool results back into the thread, and records
// everything to history.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/spindlehq/spindle/internal/history"
	"github.com/spindlehq/spindle/internal/provider"
	"github.com/spindlehq/spindle/internal/tools"
)

// ErrToolRoundsExhausted is returned when the model keeps requesting tools
// past the configured round limit.
var ErrToolRoundsExhausted = errors.New("chat: tool round limit reached")

// Options configures a session. Store, Recorder, and Tools are optional.
type Options struct {
	Provider      provider.Provider
	Model         string
	SystemPrompt  string
	Temperature   float64
	MaxToolRounds int
	Tools         *tools.Registry
	Store         *history.Store
	Recorder      *history.Recorder
	Out           io.Writer
}

// Session is one conversation thread bound to a provider and model.
type Session struct {
	log  *zap.Logger
	opts Options

	id       string
	messages []provider.Message
}

// NewSession starts a fresh thread, seeding the system prompt and creating
// the history record when persistence is on.
func NewSession(ctx context.Context, log *zap.Logger, opts Options) (*Session, error) {
	if opts.MaxToolRounds <= 0 {
		opts.MaxToolRounds = 8
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}

	s := &Session{log: log, opts: opts}
	if opts.SystemPrompt != "" {
		s.messages = append(s.messages, provider.Message{
			Role:    provider.RoleSystem,
			Content: opts.SystemPrompt,
		})
	}

	if opts.Store != nil {
		sess, err := opts.Store.CreateSession(ctx, "", opts.Provider.Name(), opts.Model)
		if err != nil {
			return nil, fmt.Errorf("creating session: %w", err)
		}
		s.id = sess.ID
		for _, msg := range s.messages {
			if err := opts.Store.AppendMessage(ctx, s.id, msg); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

// Resume rebuilds a session's message list from history.
func Resume(ctx context.Context, log *zap.Logger, opts Options, sessionID string) (*Session, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("resume requires history")
	}
	if opts.MaxToolRounds <= 0 {
		opts.MaxToolRounds = 8
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}

	messages, err := opts.Store.Messages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading session %s: %w", sessionID, err)
	}
	return &Session{log: log, opts: opts, id: sessionID, messages: messages}, nil
}

// ID returns the history session id, empty without persistence.
func (s *Session) ID() string {
	return s.id
}

// Ask sends a user turn and streams the reply to Out. Tool calls are
// executed and their results fed back until the model produces a final
// answer or the round limit trips.
func (s *Session) Ask(ctx context.Context, prompt string) error {
	ctx, span := s.span(ctx, "chat.ask")
	defer span.End()

	if err := s.append(ctx, provider.Message{Role: provider.RoleUser, Content: prompt}); err != nil {
		return err
	}

	for round := 0; round < s.opts.MaxToolRounds; round++ {
		reply, calls, err := s.streamTurn(ctx)
		if err != nil {
			return err
		}
		if err := s.append(ctx, reply); err != nil {
			return err
		}

		if len(calls) == 0 {
			return nil
		}
		if s.opts.Tools == nil {
			return fmt.Errorf("model requested tools but tool execution is disabled")
		}
		if err := s.runTools(ctx, calls); err != nil {
			return err
		}
	}
	return ErrToolRoundsExhausted
}

// Complete is the non-streaming variant of Ask for one-shot use.
func (s *Session) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, span := s.span(ctx, "chat.complete")
	defer span.End()

	if err := s.append(ctx, provider.Message{Role: provider.RoleUser, Content: prompt}); err != nil {
		return "", err
	}

	for round := 0; round < s.opts.MaxToolRounds; round++ {
		start := time.Now()
		resp, err := s.opts.Provider.Chat(ctx, s.request(false))
		if err != nil {
			return "", err
		}
		s.record(resp.Model, resp.FinishReason, resp.Usage, time.Since(start), false)

		reply := resp.Message
		if len(resp.ToolCalls) > 0 && len(reply.ToolCalls) == 0 {
			reply.ToolCalls = resp.ToolCalls
		}
		if err := s.append(ctx, reply); err != nil {
			return "", err
		}

		if resp.FinishReason != provider.FinishToolCalls || len(reply.ToolCalls) == 0 {
			return reply.Content, nil
		}
		if s.opts.Tools == nil {
			return "", fmt.Errorf("model requested tools but tool execution is disabled")
		}
		if err := s.runTools(ctx, reply.ToolCalls); err != nil {
			return "", err
		}
	}
	return "", ErrToolRoundsExhausted
}

// streamTurn runs one streaming completion, printing content as it
// arrives and assembling any tool-call fragments.
func (s *Session) streamTurn(ctx context.Context) (provider.Message, []provider.ToolCall, error) {
	start := time.Now()
	stream, err := s.opts.Provider.ChatStream(ctx, s.request(true))
	if err != nil {
		return provider.Message{}, nil, err
	}

	var (
		content         string
		model           = s.opts.Model
		finish          provider.FinishReason
		usage           provider.Usage
		asm             = newAssembler()
		printedAnything bool
	)

	for res := range stream {
		if res.Err != nil {
			// A malformed fragment fails alone; the stream goes on.
			s.log.Warn("stream item failed", zap.Error(res.Err))
			continue
		}
		chunk := res.Chunk
		if chunk.Model != "" {
			model = chunk.Model
		}
		if chunk.Delta.Content != "" {
			content += chunk.Delta.Content
			fmt.Fprint(s.opts.Out, chunk.Delta.Content)
			printedAnything = true
		}
		for _, frag := range chunk.Delta.ToolCalls {
			asm.add(frag)
		}
		if chunk.FinishReason != "" {
			finish = chunk.FinishReason
		}
		if chunk.Usage != nil {
			usage = *chunk.Usage
		}
	}
	if printedAnything {
		fmt.Fprintln(s.opts.Out)
	}

	if err := ctx.Err(); err != nil {
		return provider.Message{}, nil, err
	}

	s.record(model, finish, usage, time.Since(start), true)

	reply := provider.Message{
		Role:      provider.RoleAssistant,
		Content:   content,
		ToolCalls: asm.result(),
	}
	return reply, reply.ToolCalls, nil
}

// runTools executes each requested call and appends the results as tool
// turns. Tool failures go back to the model as content, not up the stack.
func (s *Session) runTools(ctx context.Context, calls []provider.ToolCall) error {
	for _, call := range calls {
		fmt.Fprintf(s.opts.Out, "[tool] %s\n", call.Function.Name)

		res, err := s.opts.Tools.Execute(ctx, call)
		if err != nil {
			return fmt.Errorf("executing %s: %w", call.Function.Name, err)
		}

		content := res.Output
		if res.Error != "" {
			content = "error: " + res.Error
		}
		msg := provider.Message{
			Role:       provider.RoleTool,
			Content:    content,
			Name:       call.Function.Name,
			ToolCallID: call.ID,
		}
		if err := s.append(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) span(ctx context.Context, name string) (context.Context, trace.Span) {
	return otel.Tracer("spindle/chat").Start(ctx, name,
		trace.WithAttributes(
			attribute.String("provider", s.opts.Provider.Name()),
			attribute.String("model", s.opts.Model),
		))
}

func (s *Session) request(stream bool) *provider.ChatRequest {
	req := &provider.ChatRequest{
		Model:       s.opts.Model,
		Messages:    s.messages,
		Temperature: s.opts.Temperature,
		Stream:      stream,
	}
	if s.opts.Tools != nil {
		req.Tools = s.opts.Tools.Definitions()
	}
	return req
}

func (s *Session) append(ctx context.Context, msg provider.Message) error {
	s.messages = append(s.messages, msg)
	if s.opts.Store != nil && s.id != "" {
		if err := s.opts.Store.AppendMessage(ctx, s.id, msg); err != nil {
			return fmt.Errorf("persisting message: %w", err)
		}
	}
	return nil
}

func (s *Session) record(model string, finish provider.FinishReason, usage provider.Usage, latency time.Duration, streamed bool) {
	if s.opts.Recorder == nil {
		return
	}
	s.opts.Recorder.Record(&history.Exchange{
		SessionID:        s.id,
		Provider:         s.opts.Provider.Name(),
		Model:            model,
		FinishReason:     string(finish),
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		TotalTokens:      usage.TotalTokens,
		LatencyMS:        latency.Milliseconds(),
		Streamed:         streamed,
	})
}
