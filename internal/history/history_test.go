package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spindlehq/spindle/internal/provider"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpen_CreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", "nested", "history.db")
	store, err := Open(path)
	require.NoError(t, err)
	defer store.Close()

	assert.FileExists(t, path)
}

func TestSessionLifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, "first chat", "local", "llama3.1:8b")
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)

	got, err := store.Session(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "first chat", got.Title)
	assert.Equal(t, "local", got.Provider)
	assert.Equal(t, "llama3.1:8b", got.Model)

	_, err = store.Session(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMessages_RoundTripWithToolCalls(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, "", "local", "m")
	require.NoError(t, err)

	turns := []provider.Message{
		{Role: provider.RoleSystem, Content: "be terse"},
		{Role: provider.RoleUser, Content: "list files"},
		{
			Role: provider.RoleAssistant,
			ToolCalls: []provider.ToolCall{{
				ID:       "call_1",
				Type:     "function",
				Function: provider.FunctionCall{Name: "list_files", Arguments: `{"pattern":"**"}`},
			}},
		},
		{Role: provider.RoleTool, Content: "main.go", ToolCallID: "call_1"},
	}
	for _, msg := range turns {
		require.NoError(t, store.AppendMessage(ctx, sess.ID, msg))
	}

	got, err := store.Messages(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, got, 4)

	assert.Equal(t, provider.RoleSystem, got[0].Role)
	assert.Equal(t, "list files", got[1].Content)

	require.Len(t, got[2].ToolCalls, 1)
	assert.Equal(t, "call_1", got[2].ToolCalls[0].ID)
	assert.Equal(t, `{"pattern":"**"}`, got[2].ToolCalls[0].Function.Arguments)

	assert.Equal(t, provider.RoleTool, got[3].Role)
	assert.Equal(t, "call_1", got[3].ToolCallID)
}

func TestAppendMessage_BumpsSessionClock(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, "", "local", "m")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, store.AppendMessage(ctx, sess.ID, provider.Message{
		Role: provider.RoleUser, Content: "hi",
	}))

	got, err := store.Session(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.After(sess.UpdatedAt))
}

func TestRecentSessions_NewestActivityFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	older, err := store.CreateSession(ctx, "older", "local", "m")
	require.NoError(t, err)
	newer, err := store.CreateSession(ctx, "newer", "local", "m")
	require.NoError(t, err)

	// Activity on the older session moves it back to the front.
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, store.AppendMessage(ctx, older.ID, provider.Message{
		Role: provider.RoleUser, Content: "still here",
	}))

	sessions, err := store.RecentSessions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, older.ID, sessions[0].ID)
	assert.Equal(t, newer.ID, sessions[1].ID)
}

func TestLogExchange_AndUsageAggregation(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.LogExchange(ctx, &Exchange{
			Provider:         "local",
			Model:            "llama3.1:8b",
			FinishReason:     "stop",
			PromptTokens:     10,
			CompletionTokens: 20,
			TotalTokens:      30,
			LatencyMS:        int64(100 * (i + 1)),
			Streamed:         true,
		}))
	}
	require.NoError(t, store.LogExchange(ctx, &Exchange{
		Provider:    "openrouter",
		Model:       "gpt-x",
		TotalTokens: 5,
		LatencyMS:   50,
	}))

	stats, err := store.Usage(ctx, 7)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	// Ordered by request count descending.
	assert.Equal(t, "local", stats[0].Provider)
	assert.Equal(t, 3, stats[0].Requests)
	assert.Equal(t, 90, stats[0].TotalTokens)
	assert.InDelta(t, 200.0, stats[0].AvgLatencyMS, 0.01)

	assert.Equal(t, "openrouter", stats[1].Provider)
	assert.Equal(t, 1, stats[1].Requests)
}

func TestDeleteSession_CascadesToMessages(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, "", "local", "m")
	require.NoError(t, err)
	require.NoError(t, store.AppendMessage(ctx, sess.ID, provider.Message{
		Role: provider.RoleUser, Content: "hi",
	}))

	require.NoError(t, store.DeleteSession(ctx, sess.ID))

	_, err = store.Session(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	msgs, err := store.Messages(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	assert.ErrorIs(t, store.DeleteSession(ctx, sess.ID), ErrNotFound)
}
