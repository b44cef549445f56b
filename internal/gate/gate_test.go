package gate

import (
	"context"
	"errors"
	"testing"

	"github.com/Strob0t/AccessDesk/internal/domain/employee"
)

func action(id string, sys employee.System, current bool) PendingAction {
	return PendingAction{
		Employee:  employee.Employee{ID: id, Name: "Ana Silva", Systems: []employee.SystemAccess{{System: sys, Status: current}}},
		Access:    employee.SystemAccess{System: sys, Status: current},
		NewStatus: !current,
	}
}

func TestConfirmCommitsSnapshot(t *testing.T) {
	g := New()
	a := action("emp-1", employee.SystemERP, true)
	g.Stage(a)

	// Later changes to the caller's copy do not affect the snapshot.
	a.Employee.Systems[0].Status = false

	if g.State() != StateStaged {
		t.Fatalf("state = %s, want staged", g.State())
	}

	var got PendingAction
	err := g.Confirm(context.Background(), func(_ context.Context, p PendingAction) error {
		if g.State() != StateCommitted {
			t.Errorf("state during commit = %s, want committed", g.State())
		}
		got = p
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.Key() != (employee.UpdateKey{EmployeeID: "emp-1", System: employee.SystemERP}) {
		t.Errorf("unexpected key %v", got.Key())
	}
	if !got.Employee.Systems[0].Status || got.NewStatus {
		t.Errorf("snapshot changed: %+v", got)
	}
	if g.State() != StateIdle {
		t.Errorf("state after commit = %s, want idle", g.State())
	}
}

func TestStageReplacesPending(t *testing.T) {
	g := New()
	g.Stage(action("emp-1", employee.SystemERP, true))
	g.Stage(action("emp-2", employee.SystemCRM, false))

	p, ok := g.Pending()
	if !ok || p.Employee.ID != "emp-2" {
		t.Fatalf("expected last staged action, got %+v %v", p, ok)
	}
}

func TestConfirmWithoutStage(t *testing.T) {
	g := New()
	called := false
	err := g.Confirm(context.Background(), func(context.Context, PendingAction) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrNothingStaged) {
		t.Fatalf("expected ErrNothingStaged, got %v", err)
	}
	if called {
		t.Error("commit ran without a staged action")
	}
}

func TestCancelDiscards(t *testing.T) {
	g := New()
	g.Stage(action("emp-1", employee.SystemERP, true))
	g.Cancel()

	if _, ok := g.Pending(); ok {
		t.Error("pending action survived cancel")
	}
	if g.State() != StateIdle {
		t.Errorf("state = %s, want idle", g.State())
	}
	if err := g.Confirm(context.Background(), func(context.Context, PendingAction) error { return nil }); !errors.Is(err, ErrNothingStaged) {
		t.Errorf("confirm after cancel: %v", err)
	}
}

func TestConfirmPropagatesCommitError(t *testing.T) {
	g := New()
	g.Stage(action("emp-1", employee.SystemERP, true))
	boom := errors.New("boom")

	if err := g.Confirm(context.Background(), func(context.Context, PendingAction) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected commit error, got %v", err)
	}
	if g.State() != StateIdle {
		t.Errorf("gate should be idle after a failed commit, got %s", g.State())
	}
}

func TestStageDuringCommitStaysPending(t *testing.T) {
	g := New()
	g.Stage(action("emp-1", employee.SystemERP, true))

	err := g.Confirm(context.Background(), func(context.Context, PendingAction) error {
		g.Stage(action("emp-2", employee.SystemCRM, false))
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	p, ok := g.Pending()
	if !ok || p.Employee.ID != "emp-2" {
		t.Fatalf("action staged during commit was lost: %+v %v", p, ok)
	}
	if g.State() != StateStaged {
		t.Errorf("state = %s, want staged", g.State())
	}
}
