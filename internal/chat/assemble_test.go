package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spindlehq/spindle/internal/provider"
)

func TestAssembler_SingleCallAcrossFragments(t *testing.T) {
	a := newAssembler()
	a.add(provider.ToolCallFragment{Index: 0, ID: "call_1", Name: "read_file", Arguments: `{"pa`})
	a.add(provider.ToolCallFragment{Index: 0, Arguments: `th":"go.`})
	a.add(provider.ToolCallFragment{Index: 0, Arguments: `mod"}`})

	calls := a.result()
	require.Len(t, calls, 1)
	assert.Equal(t, "call_1", calls[0].ID)
	assert.Equal(t, "function", calls[0].Type)
	assert.Equal(t, "read_file", calls[0].Function.Name)
	assert.Equal(t, `{"path":"go.mod"}`, calls[0].Function.Arguments)
}

func TestAssembler_InterleavedIndexes(t *testing.T) {
	a := newAssembler()
	a.add(provider.ToolCallFragment{Index: 0, ID: "call_a", Name: "list_files", Arguments: `{"patt`})
	a.add(provider.ToolCallFragment{Index: 1, ID: "call_b", Name: "read_file", Arguments: `{"path`})
	a.add(provider.ToolCallFragment{Index: 0, Arguments: `ern":"**"}`})
	a.add(provider.ToolCallFragment{Index: 1, Arguments: `":"x"}`})

	calls := a.result()
	require.Len(t, calls, 2)
	assert.Equal(t, "list_files", calls[0].Function.Name)
	assert.Equal(t, `{"pattern":"**"}`, calls[0].Function.Arguments)
	assert.Equal(t, "read_file", calls[1].Function.Name)
	assert.Equal(t, `{"path":"x"}`, calls[1].Function.Arguments)
}

func TestAssembler_LateIDAndNameStillLand(t *testing.T) {
	a := newAssembler()
	a.add(provider.ToolCallFragment{Index: 0, Arguments: `{"comman`})
	a.add(provider.ToolCallFragment{Index: 0, ID: "call_9", Name: "shell", Arguments: `d":"ls"}`})

	calls := a.result()
	require.Len(t, calls, 1)
	assert.Equal(t, "call_9", calls[0].ID)
	assert.Equal(t, "shell", calls[0].Function.Name)
	assert.Equal(t, `{"command":"ls"}`, calls[0].Function.Arguments)
}

func TestAssembler_EmptyIsNil(t *testing.T) {
	a := newAssembler()
	assert.Nil(t, a.result())
}
