package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel/codes"

	cfotel "github.com/Strob0t/AccessDesk/internal/adapter/otel"
	"github.com/Strob0t/AccessDesk/internal/domain/audit"
	"github.com/Strob0t/AccessDesk/internal/port/kvslot"
)

// ErrCorruptHistory is returned when the stored history cannot be decoded.
// Appends refuse to write over it so no prior entry is lost.
var ErrCorruptHistory = errors.New("audit history is corrupt")

// AuditRecorder appends access change entries to a JSON array held in one
// slot. Appends never fail the caller: slot errors are logged and the entry
// is lost.
type AuditRecorder struct {
	slots   kvslot.Store
	key     string
	mu      sync.Mutex
	now     func() time.Time
	metrics *cfotel.Metrics
}

// NewAuditRecorder creates a recorder writing to slot key in slots.
func NewAuditRecorder(slots kvslot.Store, key string) *AuditRecorder {
	return &AuditRecorder{slots: slots, key: key, now: time.Now}
}

// SetMetrics attaches metric instruments. Nil disables metrics.
func (r *AuditRecorder) SetMetrics(m *cfotel.Metrics) { r.metrics = m }

// Append stamps e with the current time if it has none and appends it.
// Appends within this process are serialized so none is lost to a
// concurrent read-modify-write, and stamped under the same lock so stored
// order matches timestamp order. A corrupt slot is left untouched and the
// entry is dropped.
func (r *AuditRecorder) Append(ctx context.Context, e audit.Entry) {
	ctx, span := cfotel.StartAuditSpan(ctx, r.key)
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	if e.Timestamp == "" {
		e.Timestamp = audit.FormatTimestamp(r.now())
	}

	if err := r.append(ctx, e); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "append failed")
		if r.metrics != nil {
			r.metrics.AuditFailures.Add(ctx, 1)
		}
		slog.WarnContext(ctx, "audit append failed",
			"key", r.key,
			"employee", e.EmployeeName,
			"system", e.System,
			"error", err,
		)
		return
	}
	if r.metrics != nil {
		r.metrics.AuditAppends.Add(ctx, 1)
	}
}

func (r *AuditRecorder) append(ctx context.Context, e audit.Entry) error {
	entries, err := r.load(ctx)
	if err != nil {
		return err
	}
	entries = append(entries, e)

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := r.slots.Put(ctx, r.key, data); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return nil
}

// load returns the stored entries oldest first. An undecodable slot yields
// ErrCorruptHistory.
func (r *AuditRecorder) load(ctx context.Context) ([]audit.Entry, error) {
	data, found, err := r.slots.Get(ctx, r.key)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	if !found || len(data) == 0 {
		return nil, nil
	}
	var entries []audit.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptHistory, err)
	}
	return entries, nil
}

// ReadAll returns every entry, newest first. A corrupt slot reads as empty;
// its bytes stay in place.
func (r *AuditRecorder) ReadAll(ctx context.Context) ([]audit.Entry, error) {
	r.mu.Lock()
	entries, err := r.load(ctx)
	r.mu.Unlock()
	if errors.Is(err, ErrCorruptHistory) {
		slog.WarnContext(ctx, "audit history is corrupt, showing no entries", "key", r.key, "error", err)
		return []audit.Entry{}, nil
	}
	if err != nil {
		return nil, err
	}
	slices.Reverse(entries)
	if entries == nil {
		entries = []audit.Entry{}
	}
	return entries, nil
}
