package sessionwatch

import (
	"context"
	"log/slog"
	"sync"

	"github.com/nfrund/goby-messenger/internal/authflow"
	"github.com/nfrund/goby-messenger/internal/pubsub"
)

// Watcher navigates to the redirect path whenever the session status
// becomes authenticated. Repeated authenticated signals navigate again.
type Watcher struct {
	navigator authflow.Navigator
	clientID  string
	path      string
	logger    *slog.Logger

	mu   sync.Mutex
	last Status
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithRedirectPath overrides the destination, authflow.DefaultRedirectPath by default.
func WithRedirectPath(path string) Option {
	return func(w *Watcher) {
		if path != "" {
			w.path = path
		}
	}
}

// New creates a watcher for the screen identified by clientID.
func New(navigator authflow.Navigator, clientID string, opts ...Option) *Watcher {
	w := &Watcher{
		navigator: navigator,
		clientID:  clientID,
		path:      authflow.DefaultRedirectPath,
		logger:    slog.Default().With("component", "sessionwatch", "client_id", clientID),
		last:      StatusUnauthenticated,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Observe applies the rule to one status value.
func (w *Watcher) Observe(status Status) {
	w.mu.Lock()
	prev := w.last
	w.last = status
	w.mu.Unlock()

	w.logger.Debug("Session status observed", "from", prev, "to", status)
	if status == StatusAuthenticated {
		w.navigator.Navigate(w.path)
	}
}

// Status returns the last observed status.
func (w *Watcher) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

// Start subscribes to TopicStatus and feeds changes addressed to this
// watcher's client into Observe until ctx is canceled.
func (w *Watcher) Start(ctx context.Context, sub pubsub.Subscriber) error {
	return pubsub.Subscribe(ctx, sub, TopicStatus, func(ctx context.Context, clientID string, change StatusChanged) error {
		if clientID != w.clientID {
			return nil
		}
		w.Observe(change.Status)
		return nil
	})
}
