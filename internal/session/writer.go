package session

import (
	"context"
	"sync"
	"time"

	"github.com/sirahlabs/smartchat/internal/chat"
	"github.com/sirahlabs/smartchat/internal/observability/metrics"
	"github.com/sirahlabs/smartchat/pkg/logging"
)

const writeTimeout = 5 * time.Second

// AsyncWriter saves sessions from a single background goroutine so turns
// never wait on the store. Saves are applied in enqueue order. When the
// queue is full the snapshot is dropped; the next turn enqueues a newer one.
type AsyncWriter struct {
	store   Store
	logger  *logging.Logger
	metrics *metrics.ChatMetrics

	mu     sync.Mutex
	closed bool
	queue  chan *chat.Session
	done   chan struct{}
}

func NewAsyncWriter(store Store, size int, logger *logging.Logger, m *metrics.ChatMetrics) *AsyncWriter {
	if logger == nil {
		logger = logging.Default()
	}
	if size <= 0 {
		size = 1
	}
	w := &AsyncWriter{
		store:   store,
		logger:  logger,
		metrics: m,
		queue:   make(chan *chat.Session, size),
		done:    make(chan struct{}),
	}
	go w.run()
	return w
}

// Enqueue schedules a snapshot of s for saving. It reports false when the
// snapshot was dropped.
func (w *AsyncWriter) Enqueue(s *chat.Session) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return false
	}
	select {
	case w.queue <- s.Clone():
		return true
	default:
		w.logger.Warn("session save dropped, queue full", "session_id", s.ID)
		w.metrics.ObserveSessionStoreError("dropped")
		return false
	}
}

func (w *AsyncWriter) run() {
	defer close(w.done)
	for s := range w.queue {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := w.store.Save(ctx, s); err != nil {
			w.logger.Error("session save failed", "session_id", s.ID, "error", err)
			w.metrics.ObserveSessionStoreError("save")
		}
		cancel()
	}
}

// Close stops accepting snapshots and waits for queued ones to be written.
func (w *AsyncWriter) Close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
