package filter

import (
	"errors"
	"net/url"
	"testing"

	"github.com/Strob0t/AccessDesk/internal/domain"
	"github.com/Strob0t/AccessDesk/internal/domain/employee"
)

// fixedDeriver returns preset role and department values per name.
type fixedDeriver map[string][2]string

func (d fixedDeriver) Role(name string) string       { return d[name][0] }
func (d fixedDeriver) Department(name string) string { return d[name][1] }

var _ employee.Deriver = fixedDeriver(nil)

func sampleDirectory() []employee.Employee {
	return []employee.Employee{
		{ID: "emp-1", Name: "Ana Silva", Email: "ana.silva0@company.com", Systems: []employee.SystemAccess{
			{System: employee.SystemERP, Status: true},
			{System: employee.SystemCRM, Status: false},
		}},
		{ID: "emp-2", Name: "Bruno Costa", Email: "bruno.costa1@company.com", Systems: []employee.SystemAccess{
			{System: employee.SystemHR, Status: true},
		}},
		{ID: "emp-3", Name: "Ólafur Dias", Email: "olafur.dias2@company.com", Systems: []employee.SystemAccess{
			{System: employee.SystemERP, Status: false},
			{System: employee.SystemClientPortal, Status: false},
		}},
		{ID: "emp-4", Name: "Carla Martins", Email: "carla@company.com"},
	}
}

func testDeriver() fixedDeriver {
	return fixedDeriver{
		"Ana Silva":     {"Manager", "IT"},
		"Bruno Costa":   {"Analyst", "HR"},
		"Ólafur Dias":   {"Manager", "Finance"},
		"Carla Martins": {"Director", "IT"},
	}
}

func ids(list []employee.Employee) []string {
	out := make([]string, len(list))
	for i := range list {
		out[i] = list[i].ID
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestApply(t *testing.T) {
	f := New(testDeriver())
	dir := sampleDirectory()

	tests := []struct {
		name string
		q    Query
		want []string
	}{
		{"zero query matches all", Query{}, []string{"emp-1", "emp-2", "emp-3", "emp-4"}},
		{"explicit all", Query{System: All, Status: All, Department: All, Role: All}, []string{"emp-1", "emp-2", "emp-3", "emp-4"}},
		{"text in name, case insensitive", Query{Text: "SILVA"}, []string{"emp-1"}},
		{"text in email domain", Query{Text: "company.com"}, []string{"emp-1", "emp-2", "emp-3", "emp-4"}},
		{"text in login", Query{Text: "costa1"}, []string{"emp-2"}},
		{"text in derived role", Query{Text: "manag"}, []string{"emp-1", "emp-3"}},
		{"text in derived department", Query{Text: "finance"}, []string{"emp-3"}},
		{"text folds accents case", Query{Text: "ólafur"}, []string{"emp-3"}},
		{"system existence", Query{System: "ERP"}, []string{"emp-1", "emp-3"}},
		{"system by slug", Query{System: "client-portal"}, []string{"emp-3"}},
		{"unknown system matches none", Query{System: "Mainframe"}, []string{}},
		{"status active any-of", Query{Status: StatusActive}, []string{"emp-1", "emp-2"}},
		{"status inactive any-of", Query{Status: StatusInactive}, []string{"emp-1", "emp-3"}},
		{"department", Query{Department: "IT"}, []string{"emp-1", "emp-4"}},
		{"role", Query{Role: "Manager"}, []string{"emp-1", "emp-3"}},
		{"and across filters", Query{System: "ERP", Status: StatusActive}, []string{"emp-1"}},
		{"system matched but status on another system", Query{System: "CRM", Status: StatusActive}, []string{"emp-1"}},
		{"no results", Query{Text: "zzz"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(f.Apply(dir, tt.q))
			if !equal(got, tt.want) {
				t.Errorf("Apply(%+v) = %v, want %v", tt.q, got, tt.want)
			}
		})
	}
}

func TestMatchesIsConjunction(t *testing.T) {
	f := New(testDeriver())
	queries := []Query{
		{Text: "a", System: "ERP", Status: StatusInactive, Department: "IT", Role: "Manager"},
		{Text: "dias", System: "client-portal", Status: StatusActive},
		{System: "HR System", Role: "Analyst", Department: "HR"},
	}
	for _, q := range queries {
		for _, e := range sampleDirectory() {
			parts := []Query{
				{Text: q.Text},
				{System: q.System},
				{Status: q.Status},
				{Department: q.Department},
				{Role: q.Role},
			}
			want := true
			for _, p := range parts {
				want = want && f.Matches(&e, p)
			}
			if got := f.Matches(&e, q); got != want {
				t.Errorf("Matches(%s, %+v) = %v, conjunction of parts = %v", e.ID, q, got, want)
			}
		}
	}
}

func TestWideningSelectorNeverShrinks(t *testing.T) {
	f := New(testDeriver())
	dir := sampleDirectory()
	narrow := Query{Text: "a", System: "ERP", Status: StatusActive, Department: "IT", Role: "Manager"}
	narrowCount := len(f.Apply(dir, narrow))

	widen := []func(Query) Query{
		func(q Query) Query { q.Text = ""; return q },
		func(q Query) Query { q.System = All; return q },
		func(q Query) Query { q.Status = All; return q },
		func(q Query) Query { q.Department = All; return q },
		func(q Query) Query { q.Role = All; return q },
	}
	for i, w := range widen {
		if got := len(f.Apply(dir, w(narrow))); got < narrowCount {
			t.Errorf("widening %d shrank result from %d to %d", i, narrowCount, got)
		}
	}
}

func TestApplyDoesNotReorder(t *testing.T) {
	f := New(nil)
	dir := sampleDirectory()
	dir[0], dir[3] = dir[3], dir[0]

	got := ids(f.Apply(dir, Query{}))
	want := []string{"emp-4", "emp-2", "emp-3", "emp-1"}
	if !equal(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestDefaultDeriverIsUsed(t *testing.T) {
	f := New(nil)
	e := sampleDirectory()[0]
	role := employee.NameHashDeriver{}.Role(e.Name)
	if !f.Matches(&e, Query{Role: role}) {
		t.Errorf("expected %s to match its derived role %q", e.ID, role)
	}
}

func TestParseQuery(t *testing.T) {
	q, err := ParseQuery(url.Values{
		"q":      {"  ana "},
		"system": {"sales-portal"},
		"status": {"inactive"},
		"role":   {"Manager"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Text != "ana" || q.System != "sales-portal" || q.Status != StatusInactive || q.Role != "Manager" {
		t.Errorf("unexpected query %+v", q)
	}
	if q.Department != "" {
		t.Errorf("missing department should be empty, got %q", q.Department)
	}
}

func TestParseQueryRejectsUnknownSelectors(t *testing.T) {
	for _, v := range []url.Values{
		{"system": {"Mainframe"}},
		{"status": {"suspended"}},
	} {
		if _, err := ParseQuery(v); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("ParseQuery(%v): expected ErrValidation, got %v", v, err)
		}
	}
}
