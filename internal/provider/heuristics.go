package provider

import (
	"regexp"
	"strconv"
	"strings"
)

// Capability baselines. Backends in this family do not report capability
// flags or context sizes on their model-listing endpoints, so these are
// derived from the model id. This is a deliberate heuristic, not a
// backend-reported fact.
const (
	baseContextWindow  = 8192
	coderContextWindow = 131072
	baseMaxTokens      = 4096
	largeMaxTokens     = 8192
	hugeMaxTokens      = 16384
)

var paramCountRe = regexp.MustCompile(`(\d+)b\b`)

// HeuristicCapabilities derives model capabilities from a model id.
// Coder-marked ids get the large context window, very large parameter-count
// markers raise token limits, and common vision markers set the vision flag.
func HeuristicCapabilities(id string) Capabilities {
	lower := strings.ToLower(id)

	caps := Capabilities{
		Streaming:     true,
		Tools:         true,
		MaxTokens:     baseMaxTokens,
		ContextWindow: baseContextWindow,
	}

	if strings.Contains(lower, "coder") || strings.Contains(lower, "codestral") {
		caps.CodeGen = true
		caps.ContextWindow = coderContextWindow
	}

	if m := paramCountRe.FindStringSubmatch(lower); m != nil {
		if params, err := strconv.Atoi(m[1]); err == nil {
			switch {
			case params >= 70:
				caps.MaxTokens = hugeMaxTokens
			case params >= 30:
				caps.MaxTokens = largeMaxTokens
			}
		}
	}

	for _, marker := range []string{"vision", "-vl", "llava", "pixtral", "multimodal"} {
		if strings.Contains(lower, marker) {
			caps.Vision = true
			break
		}
	}

	return caps
}
