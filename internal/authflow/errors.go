package authflow

import "errors"

var (
	// ErrSubmissionInFlight is returned when Submit or SocialSubmit is called
	// while another submission has not resolved yet. The call has no effect.
	ErrSubmissionInFlight = errors.New("a submission is already in flight")

	// ErrIntentChanged is returned by SubmitFor when the intent was toggled
	// after the record was validated. The call has no effect.
	ErrIntentChanged = errors.New("intent changed since the form was validated")

	// ErrInvalidIntent indicates an unknown intent string.
	ErrInvalidIntent = errors.New("invalid intent")

	// ErrNameRequired indicates a registration record without a name.
	ErrNameRequired = errors.New("name is required to register")
)

// User-facing notification messages.
const (
	MsgLoggedIn           = "Logged in!"
	MsgInvalidCredentials = "Invalid Credentials"
	MsgSomethingWentWrong = "Something went wrong"
)
