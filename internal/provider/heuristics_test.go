package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeuristicCapabilities_Baseline(t *testing.T) {
	caps := HeuristicCapabilities("llama3.1:8b")

	assert.True(t, caps.Streaming)
	assert.True(t, caps.Tools)
	assert.False(t, caps.CodeGen)
	assert.False(t, caps.Vision)
	assert.Equal(t, 8192, caps.ContextWindow)
	assert.Equal(t, 4096, caps.MaxTokens)
}

func TestHeuristicCapabilities_CoderGetsLargeContext(t *testing.T) {
	caps := HeuristicCapabilities("qwen2.5-coder:7b")

	assert.True(t, caps.CodeGen)
	assert.Equal(t, 131072, caps.ContextWindow)
}

func TestHeuristicCapabilities_ParamCountRaisesMaxTokens(t *testing.T) {
	assert.Equal(t, 8192, HeuristicCapabilities("qwen3-coder-30b").MaxTokens)
	assert.Equal(t, 16384, HeuristicCapabilities("llama3.1:70b").MaxTokens)
	assert.Equal(t, 4096, HeuristicCapabilities("mistral:7b").MaxTokens)
}

func TestHeuristicCapabilities_VisionMarkers(t *testing.T) {
	assert.True(t, HeuristicCapabilities("llava:13b").Vision)
	assert.True(t, HeuristicCapabilities("qwen2-vl:7b").Vision)
	assert.True(t, HeuristicCapabilities("pixtral-12b").Vision)
	assert.False(t, HeuristicCapabilities("llama3.1:8b").Vision)
}
