package tracker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	cfotel "github.com/Strob0t/AccessDesk/internal/adapter/otel"
	"github.com/Strob0t/AccessDesk/internal/directory"
	"github.com/Strob0t/AccessDesk/internal/domain"
	"github.com/Strob0t/AccessDesk/internal/domain/employee"
	"github.com/Strob0t/AccessDesk/internal/port/accessapi"
)

var errBoom = errors.New("boom")

// mockRemote blocks each call until release is closed (when set) and then
// answers with err.
type mockRemote struct {
	calls   atomic.Int32
	started chan accessapi.UpdateRequest
	release chan struct{}
	err     error
	panics  bool
}

func (m *mockRemote) UpdateSystemStatus(ctx context.Context, req accessapi.UpdateRequest) (accessapi.UpdateResult, error) {
	m.calls.Add(1)
	if m.started != nil {
		m.started <- req
	}
	if m.release != nil {
		select {
		case <-m.release:
		case <-ctx.Done():
			return accessapi.UpdateResult{}, ctx.Err()
		}
	}
	if m.panics {
		panic("remote exploded")
	}
	if m.err != nil {
		return accessapi.UpdateResult{}, m.err
	}
	return accessapi.UpdateResult{EmployeeID: req.EmployeeID, System: req.System, NewStatus: req.NewStatus}, nil
}

var _ Remote = (*mockRemote)(nil)
var _ Store = (*directory.Store)(nil)

func newStore(t *testing.T) *directory.Store {
	t.Helper()
	s := directory.New()
	err := s.Load([]employee.Employee{
		{ID: "emp-1", Name: "Ana Silva", Systems: []employee.SystemAccess{
			{System: employee.SystemERP, Status: true},
			{System: employee.SystemCRM, Status: false},
		}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func status(t *testing.T, s *directory.Store, sys employee.System) bool {
	t.Helper()
	e, err := s.Get("emp-1")
	if err != nil {
		t.Fatal(err)
	}
	a, ok := e.Access(sys)
	if !ok {
		t.Fatalf("system %s missing", sys)
	}
	return a.Status
}

func TestRequestToggleApplied(t *testing.T) {
	s := newStore(t)
	remote := &mockRemote{}
	tr := New(s, remote, 0)

	res, err := tr.RequestToggle(context.Background(), "emp-1", employee.SystemERP, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != OutcomeApplied || !res.Prior {
		t.Errorf("unexpected result %+v", res)
	}
	if status(t, s, employee.SystemERP) {
		t.Error("applied status was not kept")
	}
	if tr.InFlight("emp-1", employee.SystemERP) {
		t.Error("key still in flight after settlement")
	}
}

func TestOptimisticApplyVisibleBeforeSettlement(t *testing.T) {
	s := newStore(t)
	remote := &mockRemote{started: make(chan accessapi.UpdateRequest, 1), release: make(chan struct{})}
	tr := New(s, remote, 0)

	done := make(chan Result, 1)
	go func() {
		res, _ := tr.RequestToggle(context.Background(), "emp-1", employee.SystemCRM, true)
		done <- res
	}()

	<-remote.started
	if !status(t, s, employee.SystemCRM) {
		t.Error("new status not visible while remote is pending")
	}
	if !tr.InFlight("emp-1", employee.SystemCRM) {
		t.Error("cell should be in flight while remote is pending")
	}
	if keys := tr.Pending(); len(keys) != 1 || keys[0].System != employee.SystemCRM {
		t.Errorf("Pending() = %v", keys)
	}

	close(remote.release)
	if res := <-done; res.Outcome != OutcomeApplied {
		t.Errorf("expected applied, got %s", res.Outcome)
	}
}

func TestRollbackRestoresExactPriorValue(t *testing.T) {
	for _, prior := range []bool{true, false} {
		s := newStore(t)
		sys := employee.SystemERP
		if !prior {
			sys = employee.SystemCRM
		}
		tr := New(s, &mockRemote{err: errBoom}, 0)

		// Request the value the cell already holds: a naive !newStatus
		// rollback would flip it.
		res, err := tr.RequestToggle(context.Background(), "emp-1", sys, prior)
		if !errors.Is(err, ErrToggleTransport) || !errors.Is(err, errBoom) {
			t.Fatalf("expected ErrToggleTransport wrapping cause, got %v", err)
		}
		if res.Outcome != OutcomeRolledBack || res.Prior != prior {
			t.Errorf("unexpected result %+v", res)
		}
		if got := status(t, s, sys); got != prior {
			t.Errorf("status after rollback = %v, want %v", got, prior)
		}
		if tr.InFlight("emp-1", sys) {
			t.Error("key not released after failure")
		}
	}
}

func TestReentrantToggleIsRejected(t *testing.T) {
	s := newStore(t)
	remote := &mockRemote{started: make(chan accessapi.UpdateRequest, 1), release: make(chan struct{})}
	tr := New(s, remote, 0)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = tr.RequestToggle(context.Background(), "emp-1", employee.SystemERP, false)
	}()
	<-remote.started

	res, err := tr.RequestToggle(context.Background(), "emp-1", employee.SystemERP, true)
	if err != nil || res.Outcome != OutcomeRejected {
		t.Fatalf("expected rejected with nil error, got %+v %v", res, err)
	}
	if res.Outcome.Dispatched() {
		t.Error("rejected toggle reports a dispatch")
	}
	if status(t, s, employee.SystemERP) {
		t.Error("reentrant request changed the store")
	}

	close(remote.release)
	<-done
	if n := remote.calls.Load(); n != 1 {
		t.Errorf("expected exactly 1 remote call, got %d", n)
	}
}

func TestDistinctCellsRunConcurrently(t *testing.T) {
	s := newStore(t)
	remote := &mockRemote{started: make(chan accessapi.UpdateRequest, 2), release: make(chan struct{})}
	tr := New(s, remote, 0)

	var wg sync.WaitGroup
	for _, sys := range []employee.System{employee.SystemERP, employee.SystemCRM} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = tr.RequestToggle(context.Background(), "emp-1", sys, true)
		}()
	}
	<-remote.started
	<-remote.started
	if len(tr.Pending()) != 2 {
		t.Errorf("expected 2 cells in flight, got %v", tr.Pending())
	}
	close(remote.release)
	wg.Wait()
}

func TestUnknownCellIsRejected(t *testing.T) {
	s := newStore(t)
	remote := &mockRemote{}
	tr := New(s, remote, 0)

	res, err := tr.RequestToggle(context.Background(), "emp-404", employee.SystemERP, true)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if res.Outcome != OutcomeRejected {
		t.Errorf("expected rejected, got %s", res.Outcome)
	}
	if remote.calls.Load() != 0 {
		t.Error("remote called for unknown cell")
	}
	if tr.InFlight("emp-404", employee.SystemERP) {
		t.Error("key leaked for unknown cell")
	}
}

func TestTimeoutRollsBack(t *testing.T) {
	s := newStore(t)
	remote := &mockRemote{release: make(chan struct{})}
	defer close(remote.release)
	tr := New(s, remote, 20*time.Millisecond)

	res, err := tr.RequestToggle(context.Background(), "emp-1", employee.SystemERP, false)
	if !errors.Is(err, context.DeadlineExceeded) || !errors.Is(err, ErrToggleTransport) {
		t.Fatalf("expected deadline exceeded transport error, got %v", err)
	}
	if res.Outcome != OutcomeRolledBack || !status(t, s, employee.SystemERP) {
		t.Error("timeout should roll back to the prior status")
	}
}

func TestCallerCancellationDoesNotAbortDispatch(t *testing.T) {
	s := newStore(t)
	remote := &mockRemote{started: make(chan accessapi.UpdateRequest, 1), release: make(chan struct{})}
	tr := New(s, remote, 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Result, 1)
	go func() {
		res, _ := tr.RequestToggle(ctx, "emp-1", employee.SystemERP, false)
		done <- res
	}()
	<-remote.started
	cancel()
	close(remote.release)

	if res := <-done; res.Outcome != OutcomeApplied {
		t.Errorf("expected applied despite caller cancel, got %s", res.Outcome)
	}
}

func TestPanickingRemoteReleasesKeyAndRestores(t *testing.T) {
	s := newStore(t)
	tr := New(s, &mockRemote{panics: true}, 0)

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected panic to propagate")
			}
		}()
		_, _ = tr.RequestToggle(context.Background(), "emp-1", employee.SystemERP, false)
	}()

	if tr.InFlight("emp-1", employee.SystemERP) {
		t.Error("key leaked after panic")
	}
	if !status(t, s, employee.SystemERP) {
		t.Error("status not restored after panic")
	}
}

func TestMetricsRecorded(t *testing.T) {
	m, err := cfotel.NewMetrics()
	if err != nil {
		t.Fatal(err)
	}
	tr := New(newStore(t), &mockRemote{}, 0)
	tr.SetMetrics(m)

	if _, err := tr.RequestToggle(context.Background(), "emp-1", employee.SystemERP, false); err != nil {
		t.Fatal(err)
	}
}

func TestInFlightReleaseIsIdempotent(t *testing.T) {
	f := NewInFlight()
	k := employee.UpdateKey{EmployeeID: "emp-1", System: employee.SystemERP}

	release, ok := f.TryAcquire(k)
	if !ok {
		t.Fatal("first acquire failed")
	}
	if _, ok := f.TryAcquire(k); ok {
		t.Fatal("second acquire should fail")
	}
	release()
	release2, ok := f.TryAcquire(k)
	if !ok {
		t.Fatal("acquire after release failed")
	}
	release()
	if !f.Contains(k) {
		t.Error("stale release removed a newer acquisition")
	}
	release2()
	if f.Len() != 0 {
		t.Errorf("expected empty set, got %d", f.Len())
	}
}
