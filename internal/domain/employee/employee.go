// Package employee defines the employee directory domain model: employees,
// their per-system access status and the values derived from them.
package employee

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Strob0t/AccessDesk/internal/domain"
)

// SystemAccess is an employee's access status on one system.
type SystemAccess struct {
	System     System     `json:"system"`
	Status     bool       `json:"status"`
	OriginalID OriginalID `json:"originalId"`
}

// OriginalID is the identifier of the account in the external system.
// The access API sends it either as a string or as a number.
type OriginalID string

// UnmarshalJSON accepts both JSON strings and numbers.
func (o *OriginalID) UnmarshalJSON(data []byte) error {
	if bytes.HasPrefix(data, []byte(`"`)) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*o = OriginalID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("originalId: %w", err)
	}
	*o = OriginalID(n.String())
	return nil
}

// Employee is a directory record with the access status for each system
// the employee holds an account on.
type Employee struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Email       string         `json:"email"`
	Systems     []SystemAccess `json:"systems"`
	CreatedAt   time.Time      `json:"createdAt"`
	LastUpdated time.Time      `json:"lastUpdated"`
}

// Clone returns a deep copy of e.
func (e *Employee) Clone() Employee {
	c := *e
	c.Systems = make([]SystemAccess, len(e.Systems))
	copy(c.Systems, e.Systems)
	return c
}

// Access returns the access entry for sys.
func (e *Employee) Access(sys System) (SystemAccess, bool) {
	for _, a := range e.Systems {
		if a.System == sys {
			return a, true
		}
	}
	return SystemAccess{}, false
}

// HasSystem reports whether the employee holds an account on sys.
func (e *Employee) HasSystem(sys System) bool {
	_, ok := e.Access(sys)
	return ok
}

// HasStatus reports whether any of the employee's systems has the given status.
func (e *Employee) HasStatus(status bool) bool {
	for _, a := range e.Systems {
		if a.Status == status {
			return true
		}
	}
	return false
}

// Validate checks identity and that each system appears at most once.
func (e *Employee) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("employee id is required: %w", domain.ErrValidation)
	}
	seen := make(map[System]bool, len(e.Systems))
	for _, a := range e.Systems {
		if !a.System.Valid() {
			return fmt.Errorf("employee %s: unknown system %q: %w", e.ID, a.System, domain.ErrValidation)
		}
		if seen[a.System] {
			return fmt.Errorf("employee %s: duplicate system %q: %w", e.ID, a.System, domain.ErrValidation)
		}
		seen[a.System] = true
	}
	return nil
}

// UpdateKey identifies a single access cell: one system of one employee.
type UpdateKey struct {
	EmployeeID string `json:"employeeId"`
	System     System `json:"system"`
}

func (k UpdateKey) String() string {
	return k.EmployeeID + "/" + k.System.Slug()
}
