package handlers

import (
	"github.com/nfrund/goby-messenger/internal/authflow"
)

// CustomValidator adapts authflow.Validator to Echo's Validator interface.
type CustomValidator struct {
	validator *authflow.Validator
}

// NewValidator creates a new CustomValidator sharing v.
func NewValidator(v *authflow.Validator) *CustomValidator {
	return &CustomValidator{validator: v}
}

// Validate implements the echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// RegisterRequest is the body of POST /api/register.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=72"`
}

// Record converts the request into a credential record.
func (r RegisterRequest) Record() authflow.CredentialRecord {
	return authflow.CredentialRecord{Name: r.Name, Email: r.Email, Password: r.Password}
}

// SignInRequest is the body of POST /api/auth/signin/:provider. Credential
// fields are ignored for social providers.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Redirect bool   `json:"redirect"`
}

// Record converts the request into a credential record.
func (r SignInRequest) Record() authflow.CredentialRecord {
	return authflow.CredentialRecord{Email: r.Email, Password: r.Password}
}
