// Spindle is a command-line chat client for OpenAI-compatible LLM
// backends: a local inference server, a remote aggregator gateway, or
// both at once with strategy-driven routing between them.
//
// Usage:
//
//	# One-shot completion against the best available backend
//	spindle chat "explain io.Pipe in two sentences"
//
//	# Interactive session pinned to a model
//	spindle chat -m qwen2.5-coder:7b
//
//	# Inspect configured backends
//	spindle providers
//	spindle health
//	spindle models
package main

func main() {
	Execute()
}
