package history

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRecorder_FlushesOnStop(t *testing.T) {
	store := openTestStore(t)

	rec := NewRecorder(zap.NewNop(), store)
	rec.Start(context.Background())

	for i := 0; i < 5; i++ {
		rec.Record(&Exchange{Provider: "local", Model: "m", TotalTokens: 10})
	}
	rec.Stop()

	stats, err := store.Usage(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 5, stats[0].Requests)
	assert.Equal(t, 50, stats[0].TotalTokens)
}

func TestRecorder_FlushesWhenBatchFills(t *testing.T) {
	store := openTestStore(t)

	rec := NewRecorder(zap.NewNop(), store)
	rec.batchSize = 2
	rec.Start(context.Background())

	for i := 0; i < 4; i++ {
		rec.Record(&Exchange{Provider: "local", Model: "m", TotalTokens: 1})
	}
	rec.Stop()

	stats, err := store.Usage(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 4, stats[0].Requests)
}

func TestRecorder_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	store := openTestStore(t)

	rec := NewRecorder(zap.NewNop(), store)
	rec.ch = make(chan *Exchange, 1)

	// Worker not started; the second record must not block.
	rec.Record(&Exchange{Provider: "local", Model: "m"})
	rec.Record(&Exchange{Provider: "local", Model: "m"})

	assert.Len(t, rec.ch, 1)
}
