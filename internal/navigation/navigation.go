package navigation

import (
	"sync"

	"github.com/labstack/echo/v4"
)

// RouteParameters is the read-only view of the current route's named
// parameters (e.g. "conversationId").
type RouteParameters map[string]string

// Get returns the value stored under key, or "" when it is absent.
func (p RouteParameters) Get(key string) string {
	if p == nil {
		return ""
	}
	return p[key]
}

// FromEcho copies the matched path parameters of an Echo request into a
// RouteParameters map.
func FromEcho(c echo.Context) RouteParameters {
	names := c.ParamNames()
	values := c.ParamValues()

	params := make(RouteParameters, len(names))
	for i, name := range names {
		if i < len(values) {
			params[name] = values[i]
		}
	}
	return params
}

// Screen is a Navigator bound to a single auth screen. Redirects are not
// performed directly; they are recorded and handed to whichever transport
// serves the screen next (a 303 response, an HX-Redirect header, a CLI print).
type Screen struct {
	mu      sync.Mutex
	params  RouteParameters
	pending string
	history []string
	limit   int
	onNav   func(path string)
}

// DefaultHistoryLimit is how many navigations a Screen remembers.
const DefaultHistoryLimit = 32

// Option configures a Screen.
type Option func(*Screen)

// WithListener registers a callback invoked synchronously on every Navigate.
func WithListener(fn func(path string)) Option {
	return func(s *Screen) {
		s.onNav = fn
	}
}

// WithHistoryLimit caps History to the last n navigations. Zero turns
// recording off.
func WithHistoryLimit(n int) Option {
	return func(s *Screen) {
		if n >= 0 {
			s.limit = n
		}
	}
}

// NewScreen creates a navigator with empty route parameters.
func NewScreen(opts ...Option) *Screen {
	s := &Screen{params: RouteParameters{}, limit: DefaultHistoryLimit}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Navigate records a redirect to path. The latest call wins.
func (s *Screen) Navigate(path string) {
	s.mu.Lock()
	s.pending = path
	if s.limit > 0 {
		if len(s.history) >= s.limit {
			s.history = append(s.history[:0], s.history[len(s.history)-s.limit+1:]...)
		}
		s.history = append(s.history, path)
	}
	onNav := s.onNav
	s.mu.Unlock()

	if onNav != nil {
		onNav(path)
	}
}

// CurrentParameters returns a copy of the current route parameters.
func (s *Screen) CurrentParameters() RouteParameters {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(RouteParameters, len(s.params))
	for k, v := range s.params {
		out[k] = v
	}
	return out
}

// SetParameters replaces the current route parameters.
func (s *Screen) SetParameters(params RouteParameters) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.params = make(RouteParameters, len(params))
	for k, v := range params {
		s.params[k] = v
	}
}

// TakeRedirect returns and clears the pending redirect, if any.
func (s *Screen) TakeRedirect() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == "" {
		return "", false
	}
	path := s.pending
	s.pending = ""
	return path, true
}

// History returns the most recent paths passed to Navigate, oldest first.
func (s *Screen) History() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.history))
	copy(out, s.history)
	return out
}
