// Package validation gates each intake step. Every function is pure: it either returns the normalized
// step value or the first violated field as a *FieldError.
package validation

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Field error codes.
const (
	CodeRequired           = "required"
	CodeInvalidPhone       = "invalid_phone"
	CodeInvalidEmail       = "invalid_email"
	CodeAttachmentMissing  = "attachment_missing"
	CodeAttachmentTooLarge = "attachment_too_large"
	CodeAttachmentType     = "attachment_type"
	CodeInvalidRegion      = "invalid_region"
	CodeInvalidCity        = "invalid_city"
	CodeInvalidSex         = "invalid_sex"
	CodeInvalidDate        = "invalid_date"
	CodeFutureDate         = "future_date"
	CodeUnderage           = "underage"
	CodeTooManyRoles       = "too_many_roles"
	CodeTooLong            = "too_long"
)

// FieldError is a field-tagged validation failure.
type FieldError struct {
	Field   string
	Code    string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// AsFieldError unwraps err into a *FieldError.
func AsFieldError(err error) (*FieldError, bool) {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func fieldErr(field, code, msg string) *FieldError {
	return &FieldError{Field: field, Code: code, Message: msg}
}
