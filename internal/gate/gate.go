// Package gate holds a single pending access change until the operator
// confirms or cancels it.
package gate

import (
	"context"
	"errors"
	"sync"

	"github.com/Strob0t/AccessDesk/internal/domain/employee"
)

// ErrNothingStaged is returned by Confirm when no action is pending.
var ErrNothingStaged = errors.New("no pending action")

// State is the gate's lifecycle state.
type State string

const (
	StateIdle      State = "idle"
	StateStaged    State = "staged"
	StateCommitted State = "committed"
)

// PendingAction is a snapshot of the clicked cell taken at staging time.
type PendingAction struct {
	Employee  employee.Employee     `json:"employee"`
	Access    employee.SystemAccess `json:"access"`
	NewStatus bool                  `json:"newStatus"`
}

// Key returns the access cell the action targets.
func (a PendingAction) Key() employee.UpdateKey {
	return employee.UpdateKey{EmployeeID: a.Employee.ID, System: a.Access.System}
}

// Gate holds at most one pending action. Staging again replaces it.
type Gate struct {
	mu      sync.Mutex
	state   State
	pending *PendingAction
	// generation increments on every Stage so Confirm can tell whether a
	// new action arrived while committing.
	generation uint64
}

// New creates an idle Gate.
func New() *Gate {
	return &Gate{state: StateIdle}
}

// Stage records action as the pending action, replacing any previous one.
func (g *Gate) Stage(action PendingAction) {
	g.mu.Lock()
	defer g.mu.Unlock()

	a := action
	a.Employee = action.Employee.Clone()
	g.pending = &a
	g.state = StateStaged
	g.generation++
}

// Pending returns the staged action, if any.
func (g *Gate) Pending() (PendingAction, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != StateStaged || g.pending == nil {
		return PendingAction{}, false
	}
	return *g.pending, true
}

// State returns the current state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Confirm takes the staged action and runs commit with it. The gate returns
// to idle when commit finishes unless another action was staged meanwhile,
// which stays pending.
func (g *Gate) Confirm(ctx context.Context, commit func(context.Context, PendingAction) error) error {
	g.mu.Lock()
	if g.state != StateStaged || g.pending == nil {
		g.mu.Unlock()
		return ErrNothingStaged
	}
	action := *g.pending
	g.pending = nil
	g.state = StateCommitted
	gen := g.generation
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		if g.generation == gen {
			g.state = StateIdle
		}
		g.mu.Unlock()
	}()

	return commit(ctx, action)
}

// Cancel discards the staged action without side effects.
func (g *Gate) Cancel() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.pending = nil
	if g.state == StateStaged {
		g.state = StateIdle
	}
}
