package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const defaultShellTimeout = 120 * time.Second

// blockedFragments are always rejected, regardless of confirmation.
var blockedFragments = []string{"rm -rf /", "mkfs", "dd if=", ":(){:|:&};:"}

// ShellTool runs a shell command in the workspace directory. It is
// destructive by definition and always confirms.
type ShellTool struct {
	sandbox *Sandbox
}

type shellArgs struct {
	Command string `json:"command"`
	Timeout int    `json:"timeout,omitempty"`
}

func (t *ShellTool) Name() string { return "shell" }
func (t *ShellTool) Description() string {
	return "Run a shell command in the workspace directory and return combined stdout/stderr."
}
func (t *ShellTool) Safety() Safety { return SafetyDestructive }

func (t *ShellTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command": map[string]any{"type": "string", "description": "The command to execute"},
			"timeout": map[string]any{"type": "integer", "description": "Timeout in seconds (default 120)"},
		},
		"required": []any{"command"},
	}
}

func (t *ShellTool) Execute(ctx context.Context, rawArgs string) (Result, error) {
	var args shellArgs
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
		return Result{Error: "invalid arguments: " + err.Error()}, nil
	}

	for _, fragment := range blockedFragments {
		if strings.Contains(args.Command, fragment) {
			return Result{Error: fmt.Sprintf("command blocked: contains %q", fragment)}, nil
		}
	}

	timeout := defaultShellTimeout
	if args.Timeout > 0 {
		timeout = time.Duration(args.Timeout) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", args.Command)
	cmd.Dir = t.sandbox.Root()

	out, err := cmd.CombinedOutput()
	if err != nil {
		return Result{Output: string(out), Error: err.Error()}, nil
	}
	return Result{Output: string(out)}, nil
}
