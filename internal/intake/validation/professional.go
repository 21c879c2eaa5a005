package validation

import (
	"fmt"
	"strings"

	"recruit-intake/internal/intake/domain"
)

// MaxExtraRoles caps the additional roles list.
const MaxExtraRoles = 5

// ProfessionalInput is the raw optional professional step.
type ProfessionalInput struct {
	PrimaryRole string
	ExtraRoles  []string
}

// ValidateProfessional requires a primary role. Blank extra roles are dropped before the cap applies.
func ValidateProfessional(in ProfessionalInput) (*domain.Professional, error) {
	primary := strings.Join(strings.Fields(in.PrimaryRole), " ")
	if err := validate.Var(primary, "required"); err != nil {
		return nil, fieldErr("primary_role", CodeRequired, "primary role is required")
	}
	if err := validate.Var(primary, "max=120"); err != nil {
		return nil, fieldErr("primary_role", CodeTooLong, "primary role must be at most 120 characters")
	}

	extra := make([]string, 0, len(in.ExtraRoles))
	for _, r := range in.ExtraRoles {
		if r = strings.Join(strings.Fields(r), " "); r != "" {
			extra = append(extra, r)
		}
	}
	if len(extra) > MaxExtraRoles {
		return nil, fieldErr("extra_roles", CodeTooManyRoles, fmt.Sprintf("at most %d additional roles", MaxExtraRoles))
	}
	for i, r := range extra {
		if validate.Var(r, "max=120") != nil {
			return nil, fieldErr(fmt.Sprintf("extra_roles[%d]", i), CodeTooLong, "role must be at most 120 characters")
		}
	}
	return &domain.Professional{PrimaryRole: primary, ExtraRoles: extra}, nil
}
