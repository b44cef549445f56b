// Package filter implements the compound employee query: free text, system,
// status, department and role, combined with logical AND.
package filter

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/text/cases"

	"github.com/Strob0t/AccessDesk/internal/domain"
	"github.com/Strob0t/AccessDesk/internal/domain/employee"
)

// All is the selector value that disables a sub-filter.
const All = "all"

// Status selector values.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Query is a compound employee filter. Empty selectors behave like All.
type Query struct {
	Text       string `json:"text"`
	System     string `json:"system"`
	Status     string `json:"status"`
	Department string `json:"department"`
	Role       string `json:"role"`
}

// Engine evaluates queries. Role and department come from the Deriver.
type Engine struct {
	deriver employee.Deriver
}

// New creates an Engine. A nil deriver uses employee.NameHashDeriver.
func New(d employee.Deriver) *Engine {
	if d == nil {
		d = employee.NameHashDeriver{}
	}
	return &Engine{deriver: d}
}

// Matches reports whether e satisfies every sub-filter of q.
func (f *Engine) Matches(e *employee.Employee, q Query) bool {
	return f.matchText(e, q.Text) &&
		matchSystem(e, q.System) &&
		matchStatus(e, q.Status) &&
		matchSelector(f.deriver.Department(e.Name), q.Department) &&
		matchSelector(f.deriver.Role(e.Name), q.Role)
}

// Apply returns the employees matching q in their original order.
func (f *Engine) Apply(list []employee.Employee, q Query) []employee.Employee {
	out := make([]employee.Employee, 0, len(list))
	for i := range list {
		if f.Matches(&list[i], q) {
			out = append(out, list[i])
		}
	}
	return out
}

func (f *Engine) matchText(e *employee.Employee, text string) bool {
	if text == "" {
		return true
	}
	fold := cases.Fold()
	needle := fold.String(text)
	for _, field := range []string{
		e.Name,
		e.Email,
		employee.Login(e.Email),
		f.deriver.Role(e.Name),
		f.deriver.Department(e.Name),
	} {
		if strings.Contains(fold.String(field), needle) {
			return true
		}
	}
	return false
}

// matchSystem uses existence semantics: the status on that system is irrelevant.
func matchSystem(e *employee.Employee, sel string) bool {
	if isAll(sel) {
		return true
	}
	sys, err := employee.ParseSystem(sel)
	if err != nil {
		return false
	}
	return e.HasSystem(sys)
}

// matchStatus is any-of across systems: an employee active on one system and
// inactive on another matches both "active" and "inactive".
func matchStatus(e *employee.Employee, sel string) bool {
	switch sel {
	case "", All:
		return true
	case StatusActive:
		return e.HasStatus(true)
	case StatusInactive:
		return e.HasStatus(false)
	default:
		return false
	}
}

func matchSelector(derived, sel string) bool {
	return isAll(sel) || derived == sel
}

func isAll(sel string) bool {
	return sel == "" || sel == All
}

// Validate rejects selector values no employee could ever match.
func (q Query) Validate() error {
	if !isAll(q.System) {
		if _, err := employee.ParseSystem(q.System); err != nil {
			return fmt.Errorf("system: %w", err)
		}
	}
	switch q.Status {
	case "", All, StatusActive, StatusInactive:
	default:
		return fmt.Errorf("status %q must be all, active or inactive: %w", q.Status, domain.ErrValidation)
	}
	return nil
}

// ParseQuery reads a Query from URL parameters q, system, status, department
// and role.
func ParseQuery(v url.Values) (Query, error) {
	q := Query{
		Text:       strings.TrimSpace(v.Get("q")),
		System:     v.Get("system"),
		Status:     v.Get("status"),
		Department: v.Get("department"),
		Role:       v.Get("role"),
	}
	if err := q.Validate(); err != nil {
		return Query{}, err
	}
	return q, nil
}
