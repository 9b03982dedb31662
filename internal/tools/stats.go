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

// CodeStatsTool summarizes the workspace: file and line counts grouped by
// extension. A cheap way for the model to orient itself in a repo.
type CodeStatsTool struct {
	sandbox *Sandbox
}

type codeStatsArgs struct {
	Pattern string `json:"pattern,omitempty"`
}

func (t *CodeStatsTool) Name() string { return "code_stats" }
func (t *CodeStatsTool) Description() string {
	return "Summarize workspace files: counts and line totals grouped by file extension."
}
func (t *CodeStatsTool) Safety() Safety { return SafetyReadOnly }

func (t *CodeStatsTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"pattern": map[string]any{"type": "string", "description": "Glob limiting which files are counted (default '**/*')"},
		},
	}
}

func (t *CodeStatsTool) Execute(_ context.Context, rawArgs string) (Result, error) {
	var args codeStatsArgs
	if rawArgs != "" {
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			return Result{Error: "invalid arguments: " + err.Error()}, nil
		}
	}
	if args.Pattern == "" {
		args.Pattern = "**/*"
	}

	root := t.sandbox.Root()
	matches, err := doublestar.Glob(os.DirFS(root), args.Pattern)
	if err != nil {
		return Result{Error: "bad pattern: " + err.Error()}, nil
	}

	type bucket struct {
		files int
		lines int
	}
	buckets := make(map[string]*bucket)

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

		ext := filepath.Ext(rel)
		if ext == "" {
			ext = "(none)"
		}
		b, ok := buckets[ext]
		if !ok {
			b = &bucket{}
			buckets[ext] = b
		}
		b.files++
		b.lines += strings.Count(string(data), "\n") + 1
	}

	exts := make([]string, 0, len(buckets))
	for ext := range buckets {
		exts = append(exts, ext)
	}
	sort.Slice(exts, func(i, j int) bool {
		return buckets[exts[i]].lines > buckets[exts[j]].lines
	})

	var sb strings.Builder
	for _, ext := range exts {
		b := buckets[ext]
		fmt.Fprintf(&sb, "%-10s %5d files %8d lines\n", ext, b.files, b.lines)
	}
	return Result{Output: sb.String()}, nil
}
