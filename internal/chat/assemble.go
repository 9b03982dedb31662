package chat

import "github.com/spindlehq/spindle/internal/provider"

// assembler reconstructs complete tool calls from the partial fragments a
// stream delivers. Fragments for one call share an index; continuations
// carry only argument text.
type assembler struct {
	calls []provider.ToolCall
	byIdx map[int]int
}

func newAssembler() *assembler {
	return &assembler{byIdx: make(map[int]int)}
}

func (a *assembler) add(f provider.ToolCallFragment) {
	pos, ok := a.byIdx[f.Index]
	if !ok {
		pos = len(a.calls)
		a.byIdx[f.Index] = pos
		a.calls = append(a.calls, provider.ToolCall{Type: "function"})
	}

	call := &a.calls[pos]
	if f.ID != "" {
		call.ID = f.ID
	}
	if f.Name != "" {
		call.Function.Name = f.Name
	}
	call.Function.Arguments += f.Arguments
}

func (a *assembler) result() []provider.ToolCall {
	if len(a.calls) == 0 {
		return nil
	}
	return a.calls
}
