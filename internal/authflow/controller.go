package authflow

import (
	"context"
	"log/slog"
	"sync"
)

// DefaultRedirectPath is where a successful credential login navigates.
const DefaultRedirectPath = "/users"

// State is the controller's submission state.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateResolved   State = "resolved"
)

// Snapshot is a consistent read of the controller's observable state.
type Snapshot struct {
	Intent  Intent `json:"intent"`
	Loading bool   `json:"loading"`
	State   State  `json:"state"`
}

// Controller drives the login/register screen: it owns the intent and the
// loading flag and orchestrates submit, gateway call, outcome handling and
// cleanup. At most one submission is in flight at any time.
type Controller struct {
	mu      sync.Mutex
	intent  Intent
	state   State
	loading bool

	registrar    RegistrationGateway
	signIn       SignInGateway
	notifier     NotificationSink
	navigator    Navigator
	redirectPath string
	logger       *slog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithRedirectPath overrides the destination of a successful credential login.
func WithRedirectPath(path string) Option {
	return func(c *Controller) {
		if path != "" {
			c.redirectPath = path
		}
	}
}

// WithLogger sets the logger used for gateway failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithIntent sets the initial intent. The default is IntentLogin.
func WithIntent(intent Intent) Option {
	return func(c *Controller) {
		if intent == IntentLogin || intent == IntentRegister {
			c.intent = intent
		}
	}
}

// NewController creates a controller in the Idle state with IntentLogin.
func NewController(registrar RegistrationGateway, signIn SignInGateway, notifier NotificationSink, navigator Navigator, opts ...Option) *Controller {
	c := &Controller{
		intent:       IntentLogin,
		state:        StateIdle,
		registrar:    registrar,
		signIn:       signIn,
		notifier:     notifier,
		navigator:    navigator,
		redirectPath: DefaultRedirectPath,
		logger:       slog.Default().With("component", "authflow"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Intent returns the current intent.
func (c *Controller) Intent() Intent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.intent
}

// Loading reports whether a submission is in flight.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Snapshot returns intent, loading flag and state read under one lock.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{Intent: c.intent, Loading: c.loading, State: c.state}
}

// ToggleIntent flips LOGIN and REGISTER and returns the resulting intent.
// It is ignored while a submission is in flight. Field values are not reset.
func (c *Controller) ToggleIntent() Intent {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle {
		return c.intent
	}
	c.intent = c.intent.Toggled()
	return c.intent
}

// Submit sends record according to the current intent. It blocks until the
// gateway calls resolve. Gateway failures are turned into notifications and
// never returned; the only error is ErrSubmissionInFlight.
func (c *Controller) Submit(ctx context.Context, record CredentialRecord) error {
	return c.submit(ctx, "", record)
}

// SubmitFor is Submit for a record that was validated against intent. If the
// intent was toggled since, nothing is sent and ErrIntentChanged is returned.
func (c *Controller) SubmitFor(ctx context.Context, intent Intent, record CredentialRecord) error {
	return c.submit(ctx, intent, record)
}

func (c *Controller) submit(ctx context.Context, expected Intent, record CredentialRecord) error {
	intent, err := c.begin(expected)
	if err != nil {
		return err
	}
	defer c.finish()

	if intent == IntentRegister {
		c.register(ctx, record)
		return nil
	}
	c.login(ctx, record)
	return nil
}

// SocialSubmit signs in through the named identity provider. Navigation on
// success is left to the session watcher.
func (c *Controller) SocialSubmit(ctx context.Context, provider string) error {
	if _, err := c.begin(""); err != nil {
		return err
	}
	defer c.finish()

	outcome, err := c.signIn.SignInWithProvider(ctx, provider, SignInOptions{Redirect: false})
	if err != nil {
		c.logger.Warn("Social sign-in failed", "provider", provider, "error", err)
		c.notifier.Error(MsgSomethingWentWrong)
		return nil
	}

	if outcome.Error != "" {
		c.logger.Info("Social sign-in rejected", "provider", provider, "reason", outcome.Error)
		c.notifier.Error(MsgSomethingWentWrong)
		return nil
	}
	if outcome.Succeeded() {
		c.notifier.Success(MsgLoggedIn)
	}
	return nil
}

func (c *Controller) register(ctx context.Context, record CredentialRecord) {
	if err := c.registrar.Register(ctx, record); err != nil {
		c.logger.Warn("Registration failed", "email", record.Email, "error", err)
		c.notifier.Error(MsgSomethingWentWrong)
		return
	}

	// Auto-login after registration. The identity provider handles the
	// redirect itself, so the outcome is not inspected here.
	if _, err := c.signIn.SignInWithCredentials(ctx, record, SignInOptions{Redirect: true}); err != nil {
		c.logger.Warn("Sign-in after registration failed", "email", record.Email, "error", err)
	}
}

func (c *Controller) login(ctx context.Context, record CredentialRecord) {
	outcome, err := c.signIn.SignInWithCredentials(ctx, record, SignInOptions{Redirect: false})
	if err != nil {
		c.logger.Warn("Credential sign-in failed", "email", record.Email, "error", err)
		c.notifier.Error(MsgSomethingWentWrong)
		return
	}

	if outcome.Error != "" {
		c.logger.Info("Credential sign-in rejected", "email", record.Email, "reason", outcome.Error)
		c.notifier.Error(MsgInvalidCredentials)
		return
	}
	if outcome.Succeeded() {
		c.notifier.Success(MsgLoggedIn)
		c.navigator.Navigate(c.redirectPath)
	}
}

// begin moves Idle to Submitting and raises the loading flag. It returns
// the intent captured for this submission. A non-empty expected intent must
// match the current one.
func (c *Controller) begin(expected Intent) (Intent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle {
		return c.intent, ErrSubmissionInFlight
	}
	if expected != "" && expected != c.intent {
		return c.intent, ErrIntentChanged
	}
	c.transition(StateSubmitting)
	c.loading = true
	return c.intent, nil
}

// finish runs on every exit path of a submission, panics included.
func (c *Controller) finish() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.loading = false
	c.transition(StateResolved)
	c.transition(StateIdle)
}

// transition must be called with mu held.
func (c *Controller) transition(to State) {
	c.logger.Debug("State transition", "from", c.state, "to", to)
	c.state = to
}
