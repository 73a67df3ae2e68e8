package authflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator checks credential records before they reach the Controller.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a Validator backed by go-playground/validator.
func NewValidator() *Validator {
	return &Validator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate checks record for the given intent. The name field is required
// only when registering.
func (v *Validator) Validate(intent Intent, record CredentialRecord) error {
	if err := v.validate.Struct(record); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fieldErrors(verrs)
		}
		return err
	}

	if intent == IntentRegister && strings.TrimSpace(record.Name) == "" {
		return ErrNameRequired
	}
	return nil
}

// Struct validates an arbitrary struct with the shared validator. It lets
// the HTTP layer reuse one validator instance for request DTOs.
func (v *Validator) Struct(i interface{}) error {
	return v.validate.Struct(i)
}

// Collect normalizes raw field values and validates them for intent. This
// is the form-data collector's contract: one validated record per submission.
func (v *Validator) Collect(intent Intent, name, email, password string) (CredentialRecord, error) {
	record := CredentialRecord{
		Email:    strings.TrimSpace(email),
		Password: password,
	}
	if intent == IntentRegister {
		record.Name = strings.TrimSpace(name)
	}

	if err := v.Validate(intent, record); err != nil {
		return CredentialRecord{}, err
	}
	return record, nil
}

// FieldError describes one invalid field.
type FieldError struct {
	Field string
	Rule  string
}

// FieldErrors is returned when one or more fields fail validation.
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	parts := make([]string, 0, len(fe))
	for _, f := range fe {
		parts = append(parts, fmt.Sprintf("%s failed %q", f.Field, f.Rule))
	}
	return "invalid credentials record: " + strings.Join(parts, ", ")
}

func fieldErrors(verrs validator.ValidationErrors) FieldErrors {
	out := make(FieldErrors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: strings.ToLower(fe.Field()), Rule: fe.Tag()})
	}
	return out
}
