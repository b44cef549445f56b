package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Closer flushes and stops a handler.
type Closer interface {
	Close()
}

type nopCloser struct{}

func (nopCloser) Close() {}

// asyncQueue is shared by an AsyncHandler and every handler derived from it.
type asyncQueue struct {
	records chan queued
	workers sync.WaitGroup
	dropped atomic.Int64

	mu     sync.RWMutex
	closed bool
	once   sync.Once
}

type queued struct {
	handler slog.Handler
	record  slog.Record
}

// AsyncHandler hands records to a pool of workers. Records below error level
// are dropped when the buffer is full; error records wait for room.
type AsyncHandler struct {
	inner slog.Handler
	q     *asyncQueue
}

// NewAsyncHandler starts workers draining a buffer of size records into inner.
func NewAsyncHandler(inner slog.Handler, size, workers int) *AsyncHandler {
	q := &asyncQueue{records: make(chan queued, size)}
	for range max(workers, 1) {
		q.workers.Add(1)
		go q.drain()
	}
	return &AsyncHandler{inner: inner, q: q}
}

func (q *asyncQueue) drain() {
	defer q.workers.Done()
	for item := range q.records {
		_ = item.handler.Handle(context.Background(), item.record)
	}
}

// Enabled delegates to the inner handler.
func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle enqueues a copy of rec. After Close records are counted as dropped.
func (h *AsyncHandler) Handle(_ context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	h.q.mu.RLock()
	defer h.q.mu.RUnlock()
	if h.q.closed {
		h.q.dropped.Add(1)
		return nil
	}

	item := queued{handler: h.inner, record: rec.Clone()}
	if rec.Level >= slog.LevelError {
		h.q.records <- item
		return nil
	}
	select {
	case h.q.records <- item:
	default:
		h.q.dropped.Add(1)
	}
	return nil
}

// WithAttrs returns a handler on the same queue.
func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{inner: h.inner.WithAttrs(attrs), q: h.q}
}

// WithGroup returns a handler on the same queue.
func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{inner: h.inner.WithGroup(name), q: h.q}
}

// DroppedCount returns the number of records that were discarded.
func (h *AsyncHandler) DroppedCount() int64 {
	return h.q.dropped.Load()
}

// Close waits for queued records to be written. If any were dropped a
// warning saying how many is written last. Close is idempotent.
func (h *AsyncHandler) Close() {
	h.q.once.Do(func() {
		h.q.mu.Lock()
		h.q.closed = true
		close(h.q.records)
		h.q.mu.Unlock()
		h.q.workers.Wait()

		if n := h.q.dropped.Load(); n > 0 {
			rec := slog.NewRecord(time.Now(), slog.LevelWarn, "async log records dropped", 0)
			rec.AddAttrs(slog.Int64("dropped", n))
			_ = h.inner.Handle(context.Background(), rec)
		}
	})
}
