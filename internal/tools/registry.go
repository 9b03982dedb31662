package tools

import (
	"context"
	"fmt"
	"sort"

	"github.com/spindlehq/spindle/internal/provider"
)

// ConfirmFunc asks the user whether a tool invocation may proceed.
type ConfirmFunc func(name, args string) bool

// Registry holds the available tools and runs invocations through schema
// validation and the safety gate.
type Registry struct {
	tools       map[string]Tool
	schemas     validator
	confirm     ConfirmFunc
	autoApprove bool
}

// NewRegistry builds an empty registry. With autoApprove, cautious tools
// skip the prompt; destructive tools never do. A nil confirm denies
// everything that needs asking.
func NewRegistry(confirm ConfirmFunc, autoApprove bool) *Registry {
	return &Registry{
		tools:       make(map[string]Tool),
		confirm:     confirm,
		autoApprove: autoApprove,
	}
}

func (r *Registry) Register(t Tool) {
	r.tools[t.Name()] = t
}

func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Definitions returns the tool set in the shape chat requests carry,
// sorted by name for stable request bodies.
func (r *Registry) Definitions() []provider.Tool {
	defs := make([]provider.Tool, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, provider.Tool{
			Type: "function",
			Function: provider.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	sort.Slice(defs, func(i, j int) bool {
		return defs[i].Function.Name < defs[j].Function.Name
	})
	return defs
}

// Execute runs one model-requested invocation. Unknown tools, schema
// violations, and declined confirmations come back as Result errors so
// the model can react; only infrastructure failures use the error return.
func (r *Registry) Execute(ctx context.Context, call provider.ToolCall) (Result, error) {
	t, ok := r.tools[call.Function.Name]
	if !ok {
		return Result{Error: fmt.Sprintf("unknown tool: %s", call.Function.Name)}, nil
	}

	if err := r.schemas.validate(t.Parameters(), call.Function.Arguments); err != nil {
		return Result{Error: err.Error()}, nil
	}

	if r.needsConfirmation(t) {
		if r.confirm == nil || !r.confirm(t.Name(), call.Function.Arguments) {
			return Result{Error: fmt.Sprintf("user declined %s", t.Name())}, nil
		}
	}

	return t.Execute(ctx, call.Function.Arguments)
}

func (r *Registry) needsConfirmation(t Tool) bool {
	switch t.Safety() {
	case SafetyReadOnly:
		return false
	case SafetyCautious:
		return !r.autoApprove
	default:
		return true
	}
}

// RegisterDefaults wires the built-in tool set against one sandbox.
func RegisterDefaults(r *Registry, sb *Sandbox) {
	r.Register(&ReadFileTool{sandbox: sb})
	r.Register(&WriteFileTool{sandbox: sb})
	r.Register(&ListFilesTool{sandbox: sb})
	r.Register(&SearchFilesTool{sandbox: sb})
	r.Register(&ShellTool{sandbox: sb})
	r.Register(&CodeStatsTool{sandbox: sb})
}
