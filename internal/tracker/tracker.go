// Package tracker applies access toggles optimistically: the directory is
// updated before the remote call and reverted if the call fails.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	cfotel "github.com/Strob0t/AccessDesk/internal/adapter/otel"
	"github.com/Strob0t/AccessDesk/internal/domain"
	"github.com/Strob0t/AccessDesk/internal/domain/employee"
	"github.com/Strob0t/AccessDesk/internal/port/accessapi"
)

// ErrToggleTransport wraps every remote failure that caused a rollback.
var ErrToggleTransport = errors.New("toggle transport failure")

// Outcome is how a toggle request settled.
type Outcome string

const (
	// OutcomeApplied means the remote accepted the change and it was kept.
	OutcomeApplied Outcome = "applied"
	// OutcomeRolledBack means the remote failed and the prior status was restored.
	OutcomeRolledBack Outcome = "rolled_back"
	// OutcomeRejected means nothing was dispatched: the cell was already
	// updating or does not exist.
	OutcomeRejected Outcome = "rejected"
)

// Dispatched reports whether a remote call was made.
func (o Outcome) Dispatched() bool {
	return o == OutcomeApplied || o == OutcomeRolledBack
}

// Store is the directory the tracker mutates.
type Store interface {
	MutateSystemStatus(id string, sys employee.System, status bool) (prior bool, ok bool)
	RestoreSystemStatus(id string, sys employee.System, status bool) bool
}

// Remote performs the authoritative status update.
type Remote interface {
	UpdateSystemStatus(ctx context.Context, req accessapi.UpdateRequest) (accessapi.UpdateResult, error)
}

// Result describes a settled toggle.
type Result struct {
	Outcome Outcome
	// Prior is the status before the optimistic apply. Only set when dispatched.
	Prior  bool
	Remote accessapi.UpdateResult
}

// Tracker coordinates optimistic toggles. One toggle per access cell may be
// in flight; toggles on different cells run independently.
type Tracker struct {
	store    Store
	remote   Remote
	inflight *InFlight
	timeout  time.Duration
	metrics  *cfotel.Metrics
	now      func() time.Time
}

// New creates a Tracker. A zero timeout waits for the remote indefinitely.
func New(store Store, remote Remote, timeout time.Duration) *Tracker {
	return &Tracker{
		store:    store,
		remote:   remote,
		inflight: NewInFlight(),
		timeout:  timeout,
		now:      time.Now,
	}
}

// SetMetrics attaches metric instruments. Nil disables metrics.
func (t *Tracker) SetMetrics(m *cfotel.Metrics) { t.metrics = m }

// InFlight reports whether a toggle for the cell is unsettled.
func (t *Tracker) InFlight(employeeID string, sys employee.System) bool {
	return t.inflight.Contains(employee.UpdateKey{EmployeeID: employeeID, System: sys})
}

// Pending returns every unsettled cell.
func (t *Tracker) Pending() []employee.UpdateKey {
	return t.inflight.Keys()
}

// RequestToggle sets the cell to newStatus immediately and confirms it with
// the remote. On remote failure the exact prior status is restored and the
// error wraps ErrToggleTransport. A cell that is already updating yields
// OutcomeRejected with a nil error; an unknown cell yields OutcomeRejected
// with domain.ErrNotFound. The call blocks until the remote settles.
//
// Cancelling ctx does not abort a dispatched update; only the configured
// timeout bounds the remote call.
func (t *Tracker) RequestToggle(ctx context.Context, employeeID string, sys employee.System, newStatus bool) (Result, error) {
	key := employee.UpdateKey{EmployeeID: employeeID, System: sys}
	attrs := metric.WithAttributes(attribute.String("system", string(sys)))

	release, ok := t.inflight.TryAcquire(key)
	if !ok {
		slog.DebugContext(ctx, "toggle ignored, cell already updating", "key", key.String())
		t.count(ctx, OutcomeRejected, attrs)
		return Result{Outcome: OutcomeRejected}, nil
	}
	defer release()

	prior, ok := t.store.MutateSystemStatus(employeeID, sys, newStatus)
	if !ok {
		t.count(ctx, OutcomeRejected, attrs)
		return Result{Outcome: OutcomeRejected}, fmt.Errorf("toggle %s: %w", key, domain.ErrNotFound)
	}

	ctx, span := cfotel.StartToggleSpan(ctx, employeeID, string(sys), newStatus)
	defer span.End()
	if t.metrics != nil {
		t.metrics.TogglesStarted.Add(ctx, 1, attrs)
	}

	settled := false
	defer func() {
		// Reached without settling only when the remote panicked.
		if !settled {
			t.store.RestoreSystemStatus(employeeID, sys, prior)
		}
	}()

	callCtx := context.WithoutCancel(ctx)
	if t.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(callCtx, t.timeout)
		defer cancel()
	}

	start := t.now()
	res, err := t.remote.UpdateSystemStatus(callCtx, accessapi.UpdateRequest{
		EmployeeID: employeeID,
		System:     sys,
		NewStatus:  newStatus,
	})
	if t.metrics != nil {
		t.metrics.ToggleDuration.Record(ctx, t.now().Sub(start).Seconds(), attrs)
	}

	if err != nil {
		t.store.RestoreSystemStatus(employeeID, sys, prior)
		settled = true
		span.RecordError(err)
		span.SetStatus(codes.Error, "rolled back")
		t.count(ctx, OutcomeRolledBack, attrs)
		slog.WarnContext(ctx, "toggle rolled back", "key", key.String(), "restored", prior, "error", err)
		return Result{Outcome: OutcomeRolledBack, Prior: prior}, fmt.Errorf("toggle %s: %w: %w", key, ErrToggleTransport, err)
	}

	settled = true
	t.count(ctx, OutcomeApplied, attrs)
	slog.InfoContext(ctx, "toggle applied", "key", key.String(), "status", newStatus)
	return Result{Outcome: OutcomeApplied, Prior: prior, Remote: res}, nil
}

func (t *Tracker) count(ctx context.Context, o Outcome, attrs metric.AddOption) {
	if t.metrics == nil {
		return
	}
	switch o {
	case OutcomeApplied:
		t.metrics.TogglesApplied.Add(ctx, 1, attrs)
	case OutcomeRolledBack:
		t.metrics.TogglesRolledBack.Add(ctx, 1, attrs)
	case OutcomeRejected:
		t.metrics.TogglesRejected.Add(ctx, 1, attrs)
	}
}
