package employee

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Strob0t/AccessDesk/internal/domain"
)

// System is one of the enterprise systems whose access is managed.
type System string

const (
	SystemERP          System = "ERP"
	SystemCRM          System = "CRM"
	SystemSalesPortal  System = "Sales Portal"
	SystemHR           System = "HR System"
	SystemClientPortal System = "Client Portal"
)

// Systems lists every managed system in display order.
var Systems = []System{SystemERP, SystemCRM, SystemSalesPortal, SystemHR, SystemClientPortal}

// Slug returns the URL form of the system name, e.g. "sales-portal".
func (s System) Slug() string {
	return strings.ReplaceAll(strings.ToLower(string(s)), " ", "-")
}

// Valid reports whether s is one of the managed systems.
func (s System) Valid() bool {
	for _, known := range Systems {
		if s == known {
			return true
		}
	}
	return false
}

// ParseSystem accepts a display name ("Sales Portal") or a slug ("sales-portal").
func ParseSystem(v string) (System, error) {
	for _, s := range Systems {
		if v == string(s) || v == s.Slug() {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown system %q: %w", v, domain.ErrValidation)
}

// UnmarshalJSON rejects system names outside the managed set.
func (s *System) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseSystem(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
