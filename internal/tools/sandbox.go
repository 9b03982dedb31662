package tools

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Sandbox confines file tool paths to a workspace root. Every path the
// model supplies resolves through it; anything escaping the root is
// rejected before touching the filesystem.
type Sandbox struct {
	root string
}

func NewSandbox(root string) (*Sandbox, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace root: %w", err)
	}
	return &Sandbox{root: abs}, nil
}

func (s *Sandbox) Root() string {
	return s.root
}

// Resolve turns a model-supplied path into an absolute path inside the
// workspace. Absolute inputs are allowed only when already under the root.
func (s *Sandbox) Resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty path")
	}

	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(s.root, abs)
	}
	abs = filepath.Clean(abs)

	if abs != s.root && !strings.HasPrefix(abs, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the workspace", path)
	}
	return abs, nil
}
