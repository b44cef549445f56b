package employee

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Strob0t/AccessDesk/internal/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// EditRequest is the input for a direct profile edit. Role and department
// are derived from the name and cannot be set.
type EditRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"required,email,max=254"`
}

// Normalize trims surrounding whitespace from every field.
func (r *EditRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
}

// Validate checks the request and reports the first failing field.
func (r *EditRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s: failed %q check: %w", strings.ToLower(fe.Field()), fe.Tag(), domain.ErrValidation)
		}
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}
