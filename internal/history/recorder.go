package history

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Recorder persists exchanges asynchronously so usage bookkeeping never
// blocks the chat path. Records are buffered and flushed in batches.
type Recorder struct {
	log       *zap.Logger
	store     *Store
	ch        chan *Exchange
	batchSize int
	flushTime time.Duration
	done      chan struct{}
}

func NewRecorder(log *zap.Logger, store *Store) *Recorder {
	return &Recorder{
		log:       log,
		store:     store,
		ch:        make(chan *Exchange, 1024),
		batchSize: 32,
		flushTime: 2 * time.Second,
		done:      make(chan struct{}),
	}
}

// Record enqueues an exchange. A full buffer drops the record rather than
// blocking the caller.
func (r *Recorder) Record(ex *Exchange) {
	select {
	case r.ch <- ex:
	default:
		r.log.Warn("history buffer full, dropping exchange",
			zap.String("provider", ex.Provider), zap.String("model", ex.Model))
	}
}

// Start launches the flush worker.
func (r *Recorder) Start(ctx context.Context) {
	go r.worker(ctx)
}

// Stop closes the queue and waits for the final flush.
func (r *Recorder) Stop() {
	close(r.ch)
	<-r.done
}

func (r *Recorder) worker(ctx context.Context) {
	defer close(r.done)

	batch := make([]*Exchange, 0, r.batchSize)
	ticker := time.NewTicker(r.flushTime)
	defer ticker.Stop()

	flush := func() {
		for _, ex := range batch {
			if err := r.store.LogExchange(context.Background(), ex); err != nil {
				r.log.Error("failed to persist exchange",
					zap.String("provider", ex.Provider), zap.Error(err))
			}
		}
		batch = batch[:0]
	}

	for {
		select {
		case ex, ok := <-r.ch:
			if !ok {
				flush()
				return
			}
			batch = append(batch, ex)
			if len(batch) >= r.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-ctx.Done():
			flush()
			return
		}
	}
}
