package tracker

import (
	"slices"
	"sync"

	"github.com/Strob0t/AccessDesk/internal/domain/employee"
)

// InFlight is the set of access cells with an unsettled remote update.
type InFlight struct {
	mu   sync.Mutex
	keys map[employee.UpdateKey]struct{}
}

// NewInFlight creates an empty set.
func NewInFlight() *InFlight {
	return &InFlight{keys: make(map[employee.UpdateKey]struct{})}
}

// TryAcquire adds k to the set. It returns ok=false if k is already present.
// The release func removes k and may be called more than once.
func (f *InFlight) TryAcquire(k employee.UpdateKey) (release func(), ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, busy := f.keys[k]; busy {
		return nil, false
	}
	f.keys[k] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.keys, k)
			f.mu.Unlock()
		})
	}, true
}

// Contains reports whether k is in flight.
func (f *InFlight) Contains(k employee.UpdateKey) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.keys[k]
	return ok
}

// Keys returns the in-flight keys ordered by employee then system.
func (f *InFlight) Keys() []employee.UpdateKey {
	f.mu.Lock()
	out := make([]employee.UpdateKey, 0, len(f.keys))
	for k := range f.keys {
		out = append(out, k)
	}
	f.mu.Unlock()

	slices.SortFunc(out, func(a, b employee.UpdateKey) int {
		if a.EmployeeID != b.EmployeeID {
			if a.EmployeeID < b.EmployeeID {
				return -1
			}
			return 1
		}
		switch {
		case a.System < b.System:
			return -1
		case a.System > b.System:
			return 1
		}
		return 0
	})
	return out
}

// Len returns the number of keys in flight.
func (f *InFlight) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.keys)
}
