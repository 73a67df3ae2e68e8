package authflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/nfrund/goby-messenger/internal/navigation"
)

// Intent is the user's declared goal on the auth screen.
type Intent string

const (
	IntentLogin    Intent = "LOGIN"
	IntentRegister Intent = "REGISTER"
)

// ParseIntent converts a case-insensitive string into an Intent.
func ParseIntent(s string) (Intent, error) {
	switch Intent(strings.ToUpper(strings.TrimSpace(s))) {
	case IntentLogin:
		return IntentLogin, nil
	case IntentRegister:
		return IntentRegister, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidIntent, s)
	}
}

// Toggled returns the opposite intent.
func (i Intent) Toggled() Intent {
	if i == IntentRegister {
		return IntentLogin
	}
	return IntentRegister
}

// CredentialRecord is the validated set of form values for one submission.
// Name is only meaningful (and only required) when registering.
type CredentialRecord struct {
	Name     string `json:"name,omitempty" form:"name" validate:"omitempty,max=100"`
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required,max=72"`
}

// Outcome is the normalized result of an identity-provider interaction.
// Error and OK are independent; success is OK with an empty Error.
type Outcome struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Succeeded reports whether the outcome is a success: OK and no error.
func (o Outcome) Succeeded() bool {
	return o.OK && o.Error == ""
}

// SignInOptions tunes a sign-in call.
type SignInOptions struct {
	// Redirect lets the identity provider navigate on its own. The
	// controller suppresses it whenever it decides navigation itself.
	Redirect bool `json:"redirect"`
}

// RegistrationGateway creates accounts.
type RegistrationGateway interface {
	Register(ctx context.Context, record CredentialRecord) error
}

// SignInGateway is the boundary to an identity provider.
type SignInGateway interface {
	SignInWithCredentials(ctx context.Context, record CredentialRecord, opts SignInOptions) (Outcome, error)
	SignInWithProvider(ctx context.Context, provider string, opts SignInOptions) (Outcome, error)
}

// NotificationSink emits user-visible messages. Implementations never fail.
type NotificationSink interface {
	Success(message string)
	Error(message string)
}

// Navigator redirects the user and exposes the current route parameters.
type Navigator interface {
	Navigate(path string)
	CurrentParameters() navigation.RouteParameters
}
