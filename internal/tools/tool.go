// Package tools implements the file/shell/analysis tools the model can
// request during a chat. Arguments are validated against each tool's JSON
// schema before execution, file access is confined to a workspace root,
// and destructive tools gate on a confirmation callback.
package tools

import "context"

// Safety classifies how much damage a tool can do.
type Safety int

const (
	// SafetyReadOnly tools run without confirmation.
	SafetyReadOnly Safety = iota
	// SafetyCautious tools mutate the workspace; confirmation can be
	// waived by configuration.
	SafetyCautious
	// SafetyDestructive tools always require confirmation.
	SafetyDestructive
)

func (s Safety) String() string {
	switch s {
	case SafetyReadOnly:
		return "read-only"
	case SafetyCautious:
		return "cautious"
	case SafetyDestructive:
		return "destructive"
	default:
		return "unknown"
	}
}

// Result carries a tool's output back to the model. Execution failures
// land in Error rather than the error return, so the model sees them.
type Result struct {
	Output string
	Error  string
}

// Tool is one executable capability offered to the model.
type Tool interface {
	Name() string
	Description() string
	// Parameters returns the JSON Schema for the tool's arguments.
	Parameters() map[string]any
	Safety() Safety
	Execute(ctx context.Context, args string) (Result, error)
}
