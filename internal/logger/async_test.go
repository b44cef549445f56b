package logger

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// captureHandler keeps the messages it receives.
type captureHandler struct {
	mu    sync.Mutex
	msgs  []string
	delay time.Duration
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	if h.delay > 0 {
		time.Sleep(h.delay)
	}
	h.mu.Lock()
	h.msgs = append(h.msgs, rec.Message)
	h.mu.Unlock()
	return nil
}

func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *captureHandler) WithGroup(string) slog.Handler      { return h }

func (h *captureHandler) messages() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.msgs...)
}

func record(level slog.Level, msg string) slog.Record {
	return slog.NewRecord(time.Now(), level, msg, 0)
}

func TestAsyncHandlerFlushesOnClose(t *testing.T) {
	inner := &captureHandler{}
	ah := NewAsyncHandler(inner, 512, 3)

	for range 300 {
		_ = ah.Handle(context.Background(), record(slog.LevelInfo, "toggle"))
	}
	ah.Close()

	if got := len(inner.messages()); got != 300 {
		t.Fatalf("records written = %d, want 300", got)
	}
	if ah.DroppedCount() != 0 {
		t.Fatalf("dropped = %d, want 0", ah.DroppedCount())
	}
}

func TestAsyncHandlerConcurrentWriters(t *testing.T) {
	inner := &captureHandler{}
	ah := NewAsyncHandler(inner, 5000, 4)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 80 {
				_ = ah.Handle(context.Background(), record(slog.LevelDebug, "load"))
			}
		}()
	}
	wg.Wait()
	ah.Close()

	if got := len(inner.messages()); got != 4000 {
		t.Fatalf("records written = %d, want 4000", got)
	}
}

func TestAsyncHandlerDropsWhenFullAndReports(t *testing.T) {
	inner := &captureHandler{delay: 5 * time.Millisecond}
	ah := NewAsyncHandler(inner, 1, 1)

	for range 40 {
		_ = ah.Handle(context.Background(), record(slog.LevelInfo, "flood"))
	}
	ah.Close()

	if ah.DroppedCount() == 0 {
		t.Fatal("expected dropped records")
	}
	msgs := inner.messages()
	if last := msgs[len(msgs)-1]; last != "async log records dropped" {
		t.Fatalf("last message = %q, want drop report", last)
	}
}

func TestAsyncHandlerKeepsErrors(t *testing.T) {
	inner := &captureHandler{delay: 2 * time.Millisecond}
	ah := NewAsyncHandler(inner, 1, 1)

	for range 20 {
		_ = ah.Handle(context.Background(), record(slog.LevelError, "audit append failed"))
	}
	ah.Close()

	if got := len(inner.messages()); got != 20 {
		t.Fatalf("error records written = %d, want 20", got)
	}
	if ah.DroppedCount() != 0 {
		t.Fatalf("dropped = %d, want 0", ah.DroppedCount())
	}
}

func TestAsyncHandlerAfterClose(t *testing.T) {
	inner := &captureHandler{}
	ah := NewAsyncHandler(inner, 4, 1)
	ah.Close()
	ah.Close()

	if err := ah.Handle(context.Background(), record(slog.LevelInfo, "late")); err != nil {
		t.Fatalf("Handle after close: %v", err)
	}
	if ah.DroppedCount() != 1 {
		t.Fatalf("dropped = %d, want 1", ah.DroppedCount())
	}
}

func TestAsyncHandlerDerivedShareQueue(t *testing.T) {
	inner := &captureHandler{}
	ah := NewAsyncHandler(inner, 16, 1)
	child := ah.WithAttrs([]slog.Attr{slog.String("system", "slack")}).WithGroup("req")

	_ = child.Handle(context.Background(), record(slog.LevelInfo, "child"))
	ah.Close()

	if got := inner.messages(); len(got) != 1 || got[0] != "child" {
		t.Fatalf("messages = %v, want [child]", got)
	}
}
