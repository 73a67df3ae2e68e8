// Package screen keeps one auth screen per client: the flow controller and
// the collaborators it is wired to.
package screen

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nfrund/goby-messenger/internal/authflow"
	"github.com/nfrund/goby-messenger/internal/conversation"
	"github.com/nfrund/goby-messenger/internal/navigation"
	"github.com/nfrund/goby-messenger/internal/notify"
	"github.com/nfrund/goby-messenger/internal/pubsub"
	"github.com/nfrund/goby-messenger/internal/sessionwatch"
)

// ErrNotFound is returned for unknown screen ids.
var ErrNotFound = errors.New("screen not found")

// Dependencies holds the services shared by every screen.
type Dependencies struct {
	Registrar    authflow.RegistrationGateway
	SignIn       authflow.SignInGateway
	Publisher    pubsub.Publisher
	Subscriber   pubsub.Subscriber
	RedirectPath string
	Providers    []string
	// OnClose is called with the id of every closed or swept screen.
	OnClose func(id string)
}

// Screen is one client's auth screen.
type Screen struct {
	ID           string
	Controller   *authflow.Controller
	Navigator    *navigation.Screen
	Mailbox      *notify.Mailbox
	Watcher      *sessionwatch.Watcher
	Conversation *conversation.Resolver

	providers []string
	cancel    context.CancelFunc

	mu       sync.Mutex
	lastSeen time.Time
}

// State is the JSON view of a screen served to the UI.
type State struct {
	ID            string                `json:"id"`
	Intent        authflow.Intent       `json:"intent"`
	Loading       bool                  `json:"loading"`
	Disabled      bool                  `json:"disabled"`
	Labels        authflow.Labels       `json:"labels"`
	Providers     []string              `json:"providers"`
	Session       sessionwatch.Status   `json:"session"`
	Conversation  conversation.Context  `json:"conversation"`
	Redirect      string                `json:"redirect,omitempty"`
	Notifications []notify.Notification `json:"notifications,omitempty"`
}

// Context returns ctx tagged with the screen's client id.
func (s *Screen) Context(ctx context.Context) context.Context {
	return sessionwatch.WithClientID(ctx, s.ID)
}

// Touch records activity on the screen.
func (s *Screen) Touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *Screen) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// State builds the current view. It does not consume the pending redirect
// or the queued notifications; callers pass them in after draining.
func (s *Screen) State(redirect string, notifications []notify.Notification) State {
	snap := s.Controller.Snapshot()
	return State{
		ID:            s.ID,
		Intent:        snap.Intent,
		Loading:       snap.Loading,
		Disabled:      snap.Loading,
		Labels:        authflow.LabelsFor(snap.Intent),
		Providers:     s.providers,
		Session:       s.Watcher.Status(),
		Conversation:  s.Conversation.Resolve(s.Navigator.CurrentParameters()),
		Redirect:      redirect,
		Notifications: notifications,
	}
}

// Registry owns the live screens.
type Registry struct {
	mu      sync.Mutex
	screens map[string]*Screen
	deps    Dependencies
	logger  *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(deps Dependencies) *Registry {
	if deps.RedirectPath == "" {
		deps.RedirectPath = authflow.DefaultRedirectPath
	}
	return &Registry{
		screens: make(map[string]*Screen),
		deps:    deps,
		logger:  slog.Default().With("component", "screen"),
	}
}

// Open creates a screen with a fresh id and starts its session watcher.
func (r *Registry) Open() (*Screen, error) {
	id := uuid.NewString()

	nav := navigation.NewScreen()
	mailbox := notify.NewMailbox()

	sinks := notify.Multi{mailbox, notify.NewLogSink(r.logger.With("client_id", id))}
	if r.deps.Publisher != nil {
		sinks = append(sinks, notify.NewBusSink(r.deps.Publisher, id))
	}

	ctrl := authflow.NewController(r.deps.Registrar, r.deps.SignIn, sinks, nav,
		authflow.WithRedirectPath(r.deps.RedirectPath),
		authflow.WithLogger(r.logger.With("client_id", id)),
	)
	watcher := sessionwatch.New(nav, id, sessionwatch.WithRedirectPath(r.deps.RedirectPath))

	ctx, cancel := context.WithCancel(context.Background())
	if r.deps.Subscriber != nil {
		if err := watcher.Start(ctx, r.deps.Subscriber); err != nil {
			cancel()
			return nil, err
		}
	}

	s := &Screen{
		ID:           id,
		Controller:   ctrl,
		Navigator:    nav,
		Mailbox:      mailbox,
		Watcher:      watcher,
		Conversation: &conversation.Resolver{},
		providers:    r.deps.Providers,
		cancel:       cancel,
		lastSeen:     time.Now(),
	}

	r.mu.Lock()
	r.screens[id] = s
	r.mu.Unlock()

	r.logger.Debug("Screen opened", "client_id", id)
	return s, nil
}

// Get returns the screen with id.
func (r *Registry) Get(id string) (*Screen, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.screens[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// GetOrOpen returns the screen with id, or opens a new one when id is
// empty or unknown.
func (r *Registry) GetOrOpen(id string) (*Screen, error) {
	if id != "" {
		if s, err := r.Get(id); err == nil {
			s.Touch()
			return s, nil
		}
	}
	return r.Open()
}

// Close stops the screen's watcher and forgets it.
func (r *Registry) Close(id string) {
	r.mu.Lock()
	s, ok := r.screens[id]
	delete(r.screens, id)
	r.mu.Unlock()

	if ok {
		r.release(s)
	}
}

func (r *Registry) release(s *Screen) {
	s.cancel()
	if r.deps.OnClose != nil {
		r.deps.OnClose(s.ID)
	}
}

// Sweep closes screens idle for longer than maxIdle that are not loading,
// and returns how many were closed.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	now := time.Now()

	r.mu.Lock()
	var stale []*Screen
	for id, s := range r.screens {
		if s.idleSince(now) > maxIdle && !s.Controller.Loading() {
			stale = append(stale, s)
			delete(r.screens, id)
		}
	}
	r.mu.Unlock()

	for _, s := range stale {
		r.release(s)
	}
	if len(stale) > 0 {
		r.logger.Info("Swept idle screens", "count", len(stale))
	}
	return len(stale)
}

// Len returns the number of live screens.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.screens)
}

// CloseAll stops every screen.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	screens := r.screens
	r.screens = make(map[string]*Screen)
	r.mu.Unlock()

	for _, s := range screens {
		r.release(s)
	}
}
