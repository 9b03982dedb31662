package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	maxMatches  = 200
	maxGrepSize = 1 << 20 // skip files over 1 MiB when searching content
)

// ReadFileTool returns file contents with numbered lines.
type ReadFileTool struct {
	sandbox *Sandbox
}

type readFileArgs struct {
	Path   string `json:"path"`
	Offset int    `json:"offset,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

func (t *ReadFileTool) Name() string { return "read_file" }
func (t *ReadFileTool) Description() string {
	return "Read a file from the workspace. Returns numbered lines; offset and limit select a window."
}
func (t *ReadFileTool) Safety() Safety { return SafetyReadOnly }

func (t *ReadFileTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path":   map[string]any{"type": "string", "description": "Path relative to the workspace root"},
			"offset": map[string]any{"type": "integer", "description": "Line offset to start from (0-indexed)"},
			"limit":  map[string]any{"type": "integer", "description": "Maximum number of lines"},
		},
		"required": []any{"path"},
	}
}

func (t *ReadFileTool) Execute(_ context.Context, rawArgs string) (Result, error) {
	var args readFileArgs
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
		return Result{Error: "invalid arguments: " + err.Error()}, nil
	}

	path, err := t.sandbox.Resolve(args.Path)
	if err != nil {
		return Result{Error: err.Error()}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{Error: err.Error()}, nil
	}

	lines := strings.Split(string(data), "\n")
	start := min(args.Offset, len(lines))
	end := len(lines)
	if args.Limit > 0 && start+args.Limit < end {
		end = start + args.Limit
	}

	var sb strings.Builder
	for i := start; i < end; i++ {
		fmt.Fprintf(&sb, "%4d\t%s\n", i+1, lines[i])
	}
	return Result{Output: sb.String()}, nil
}

// WriteFileTool creates or overwrites a workspace file.
type WriteFileTool struct {
	sandbox *Sandbox
}

type writeFileArgs struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

func (t *WriteFileTool) Name() string { return "write_file" }
func (t *WriteFileTool) Description() string {
	return "Write content to a workspace file, creating parent directories as needed. Overwrites existing files."
}
func (t *WriteFileTool) Safety() Safety { return SafetyCautious }

func (t *WriteFileTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path":    map[string]any{"type": "string", "description": "Path relative to the workspace root"},
			"content": map[string]any{"type": "string", "description": "Full file content"},
		},
		"required": []any{"path", "content"},
	}
}

func (t *WriteFileTool) Execute(_ context.Context, rawArgs string) (Result, error) {
	var args writeFileArgs
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
		return Result{Error: "invalid arguments: " + err.Error()}, nil
	}

	path, err := t.sandbox.Resolve(args.Path)
	if err != nil {
		return Result{Error: err.Error()}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Result{Error: err.Error()}, nil
	}
	if err := os.WriteFile(path, []byte(args.Content), 0o644); err != nil {
		return Result{Error: err.Error()}, nil
	}
	return Result{Output: fmt.Sprintf("wrote %d bytes to %s", len(args.Content), args.Path)}, nil
}

// ListFilesTool matches workspace files against a doublestar glob.
type ListFilesTool struct {
	sandbox *Sandbox
}

type listFilesArgs struct {
	Pattern string `json:"pattern"`
}

func (t *ListFilesTool) Name() string { return "list_files" }
func (t *ListFilesTool) Description() string {
	return "List workspace files matching a glob pattern. Supports ** for recursive matching, e.g. '**/*.go'."
}
func (t *ListFilesTool) Safety() Safety { return SafetyReadOnly }

func (t *ListFilesTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"pattern": map[string]any{"type": "string", "description": "Glob pattern relative to the workspace root"},
		},
		"required": []any{"pattern"},
	}
}

func (t *ListFilesTool) Execute(_ context.Context, rawArgs string) (Result, error) {
	var args listFilesArgs
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
		return Result{Error: "invalid arguments: " + err.Error()}, nil
	}

	matches, err := doublestar.Glob(os.DirFS(t.sandbox.Root()), args.Pattern)
	if err != nil {
		return Result{Error: "bad pattern: " + err.Error()}, nil
	}
	sort.Strings(matches)
	if len(matches) > maxMatches {
		matches = matches[:maxMatches]
	}
	return Result{Output: strings.Join(matches, "\n")}, nil
}

// SearchFilesTool greps workspace file contents.
type SearchFilesTool struct {
	sandbox *Sandbox
}

type searchFilesArgs struct {
	Query   string `json:"query"`
	Pattern string `json:"pattern,omitempty"`
}

func (t *SearchFilesTool) Name() string { return "search_files" }
func (t *SearchFilesTool) Description() string {
	return "Search workspace file contents for a text query. An optional glob pattern narrows which files are searched."
}
func (t *SearchFilesTool) Safety() Safety { return SafetyReadOnly }

func (t *SearchFilesTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query":   map[string]any{"type": "string", "description": "Text to search for"},
			"pattern": map[string]any{"type": "string", "description": "Glob limiting the files searched (default '**/*')"},
		},
		"required": []any{"query"},
	}
}

func (t *SearchFilesTool) Execute(_ context.Context, rawArgs string) (Result, error) {
	var args searchFilesArgs
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
		return Result{Error: "invalid arguments: " + err.Error()}, nil
	}
	if args.Pattern == "" {
		args.Pattern = "**/*"
	}

	root := t.sandbox.Root()
	matches, err := doublestar.Glob(os.DirFS(root), args.Pattern)
	if err != nil {
		return Result{Error: "bad pattern: " + err.Error()}, nil
	}
	sort.Strings(matches)

	var hits []string
	for _, rel := range matches {
		path := filepath.Join(root, rel)
		info, err := os.Stat(path)
		if err != nil || info.IsDir() || info.Size() > maxGrepSize {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		for i, line := range strings.Split(string(data), "\n") {
			if strings.Contains(line, args.Query) {
				hits = append(hits, fmt.Sprintf("%s:%d: %s", rel, i+1, strings.TrimSpace(line)))
				if len(hits) >= maxMatches {
					return Result{Output: strings.Join(hits, "\n")}, nil
				}
			}
		}
	}
	return Result{Output: strings.Join(hits, "\n")}, nil
}
