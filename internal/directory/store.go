// Package directory holds the in-memory employee directory that the console
// reads from and the toggle tracker mutates.
package directory

import (
	"fmt"
	"sync"
	"time"

	"github.com/Strob0t/AccessDesk/internal/domain"
	"github.com/Strob0t/AccessDesk/internal/domain/employee"
)

// ChangeKind classifies a directory mutation.
type ChangeKind string

const (
	ChangeLoaded   ChangeKind = "loaded"
	ChangeStatus   ChangeKind = "status"
	ChangeRestored ChangeKind = "restored"
	ChangeProfile  ChangeKind = "profile"
)

// Change describes one mutation. EmployeeID and System are empty for loads.
type Change struct {
	Kind       ChangeKind      `json:"kind"`
	EmployeeID string          `json:"employeeId,omitempty"`
	System     employee.System `json:"system,omitempty"`
	Status     *bool           `json:"status,omitempty"`
}

// Store is the authoritative in-memory employee collection. It is safe for
// concurrent use; readers always receive copies.
type Store struct {
	mu        sync.RWMutex
	employees []employee.Employee
	index     map[string]int

	subMu  sync.Mutex
	subs   map[int]func(Change)
	nextID int

	now func() time.Time
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		index: make(map[string]int),
		subs:  make(map[int]func(Change)),
		now:   time.Now,
	}
}

// Load replaces the whole collection. Records are validated and copied;
// on error the previous contents are kept.
func (s *Store) Load(records []employee.Employee) error {
	next := make([]employee.Employee, 0, len(records))
	index := make(map[string]int, len(records))
	for i := range records {
		if err := records[i].Validate(); err != nil {
			return fmt.Errorf("load directory: %w", err)
		}
		if _, dup := index[records[i].ID]; dup {
			return fmt.Errorf("load directory: duplicate employee %s: %w", records[i].ID, domain.ErrValidation)
		}
		index[records[i].ID] = len(next)
		next = append(next, records[i].Clone())
	}

	s.mu.Lock()
	s.employees = next
	s.index = index
	s.mu.Unlock()

	s.emit(Change{Kind: ChangeLoaded})
	return nil
}

// List returns a copy of every employee in load order.
func (s *Store) List() []employee.Employee {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]employee.Employee, len(s.employees))
	for i := range s.employees {
		out[i] = s.employees[i].Clone()
	}
	return out
}

// Len returns the number of employees.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.employees)
}

// Get returns a copy of one employee.
func (s *Store) Get(id string) (employee.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return employee.Employee{}, fmt.Errorf("employee %s: %w", id, domain.ErrNotFound)
	}
	return s.employees[i].Clone(), nil
}

// MutateSystemStatus sets the status of one system and bumps LastUpdated.
// It returns the previous status. Unknown employees or systems leave the
// store untouched and report ok=false.
func (s *Store) MutateSystemStatus(id string, sys employee.System, status bool) (prior bool, ok bool) {
	prior, ok = s.setStatus(id, sys, status, true)
	if ok {
		s.emit(Change{Kind: ChangeStatus, EmployeeID: id, System: sys, Status: &status})
	}
	return prior, ok
}

// RestoreSystemStatus writes back a previous status after a failed remote
// update. LastUpdated is not touched.
func (s *Store) RestoreSystemStatus(id string, sys employee.System, status bool) bool {
	_, ok := s.setStatus(id, sys, status, false)
	if ok {
		s.emit(Change{Kind: ChangeRestored, EmployeeID: id, System: sys, Status: &status})
	}
	return ok
}

func (s *Store) setStatus(id string, sys employee.System, status, touch bool) (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, found := s.index[id]
	if !found {
		return false, false
	}
	e := &s.employees[i]
	for j := range e.Systems {
		if e.Systems[j].System != sys {
			continue
		}
		prior := e.Systems[j].Status
		e.Systems[j].Status = status
		if touch {
			e.LastUpdated = s.now().UTC()
		}
		return prior, true
	}
	return false, false
}

// EditProfile replaces name and email. The edit is not audited.
func (s *Store) EditProfile(id, name, email string) error {
	s.mu.Lock()
	i, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("employee %s: %w", id, domain.ErrNotFound)
	}
	s.employees[i].Name = name
	s.employees[i].Email = email
	s.mu.Unlock()

	s.emit(Change{Kind: ChangeProfile, EmployeeID: id})
	return nil
}

// Subscribe registers fn to be called after every mutation. Callbacks run
// synchronously on the mutating goroutine, outside the store lock. The
// returned func removes the subscription.
func (s *Store) Subscribe(fn func(Change)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) emit(c Change) {
	s.subMu.Lock()
	fns := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}
