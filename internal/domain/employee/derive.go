package employee

import (
	"strings"
	"unicode/utf16"
)

var roles = []string{"Analyst", "Coordinator", "Manager", "Assistant", "Director"}

var departments = []string{"HR", "IT", "Finance", "Commercial", "Operations"}

// Roles lists every role the default deriver can produce.
func Roles() []string { return append([]string(nil), roles...) }

// Departments lists every department the default deriver can produce.
func Departments() []string { return append([]string(nil), departments...) }

// Deriver computes role and department for an employee name.
type Deriver interface {
	Role(name string) string
	Department(name string) string
}

// NameHashDeriver derives role and department from the UTF-16 code units and
// UTF-16 length of the name. The values are stable for a given name.
type NameHashDeriver struct{}

// Role picks a role from the first code unit. Empty names have no role.
func (NameHashDeriver) Role(name string) string {
	return pick(roles, name, 0)
}

// Department picks a department from the second code unit. Names shorter
// than two code units have no department.
func (NameHashDeriver) Department(name string) string {
	return pick(departments, name, 1)
}

func pick(values []string, name string, at int) string {
	units := utf16.Encode([]rune(name))
	if len(units) <= at {
		return ""
	}
	return values[(int(units[at])+len(units))%len(values)]
}

// Login returns the local part of an email address, or the whole value when
// it has no '@'.
func Login(email string) string {
	login, _, _ := strings.Cut(email, "@")
	return login
}
