package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/nfrund/goby-messenger/internal/authflow"
	"github.com/nfrund/goby-messenger/internal/middleware"
	"github.com/nfrund/goby-messenger/internal/notify"
	"github.com/nfrund/goby-messenger/internal/screen"
)

const (
	screenSessionName = "auth-session"
	screenSessionKey  = "screen_id"

	// AuthPath is the auth screen's own route; form posts land back here.
	AuthPath = "/auth"
)

// OnlineUsers lists the signed-in subjects.
type OnlineUsers interface {
	GetOnlineUsers() []string
}

// EventStream pushes bus events for one screen to the browser.
type EventStream interface {
	Serve(c echo.Context, clientID string) error
}

// AuthHandler serves the auth screen. Each browser gets its own screen,
// found through an id kept in the auth session cookie.
type AuthHandler struct {
	screens   *screen.Registry
	validator *authflow.Validator
	online    OnlineUsers
	events    EventStream
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(screens *screen.Registry, validator *authflow.Validator, online OnlineUsers, events EventStream) *AuthHandler {
	return &AuthHandler{
		screens:   screens,
		validator: validator,
		online:    online,
		events:    events,
	}
}

// State returns the screen state as JSON (GET /auth).
func (h *AuthHandler) State(c echo.Context) error {
	s, err := h.screenFor(c)
	if err != nil {
		return err
	}
	redirect, _ := s.Navigator.TakeRedirect()
	return c.JSON(http.StatusOK, s.State(redirect, s.Mailbox.Drain()))
}

// Events streams the screen's notifications and presence updates over a
// WebSocket (GET /auth/events).
func (h *AuthHandler) Events(c echo.Context) error {
	s, err := h.screenFor(c)
	if err != nil {
		return err
	}
	return h.events.Serve(c, s.ID)
}

// Toggle flips between login and register (POST /auth/toggle).
func (h *AuthHandler) Toggle(c echo.Context) error {
	s, err := h.screenFor(c)
	if err != nil {
		return err
	}
	s.Controller.ToggleIntent()
	return h.respond(c, s)
}

// Submit validates the form and runs one submission for the current intent,
// or for the form's intent field when present (POST /auth/submit).
func (h *AuthHandler) Submit(c echo.Context) error {
	s, err := h.screenFor(c)
	if err != nil {
		return err
	}

	// The form may name the intent it was rendered for; it must still hold
	// when the controller picks the submission up.
	intent := s.Controller.Intent()
	if raw := c.FormValue("intent"); raw != "" {
		if intent, err = authflow.ParseIntent(raw); err != nil {
			return h.rejectForm(c, s.ID, err)
		}
	}

	record, err := h.validator.Collect(intent,
		c.FormValue("name"), c.FormValue("email"), c.FormValue("password"))
	if err != nil {
		return h.rejectForm(c, s.ID, err)
	}

	if err := s.Controller.SubmitFor(s.Context(c.Request().Context()), intent, record); err != nil {
		return h.inFlight(c, err)
	}
	return h.respond(c, s)
}

func (h *AuthHandler) rejectForm(c echo.Context, clientID string, err error) error {
	logger := middleware.FromContext(c.Request().Context())
	logger.Info("Rejected auth form", "client_id", clientID, "error", err)
	if wantsJSON(c) {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Code:    "validation_failed",
			Message: err.Error(),
		})
	}
	notify.Flash(c).Error(err.Error())
	return c.Redirect(http.StatusSeeOther, AuthPath)
}

// Social starts a sign-in through an identity provider
// (POST /auth/social/:provider).
func (h *AuthHandler) Social(c echo.Context) error {
	s, err := h.screenFor(c)
	if err != nil {
		return err
	}

	provider := strings.ToLower(c.Param("provider"))
	if err := s.Controller.SocialSubmit(s.Context(c.Request().Context()), provider); err != nil {
		return h.inFlight(c, err)
	}
	return h.respond(c, s)
}

// Users is the landing page reached after a successful sign-in (GET /users).
func (h *AuthHandler) Users(c echo.Context) error {
	s, err := h.screenFor(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"session": s.Watcher.Status(),
		"online":  h.online.GetOnlineUsers(),
		"flashes": notify.GetFlashData(c),
	})
}

func (h *AuthHandler) inFlight(c echo.Context, err error) error {
	switch {
	case errors.Is(err, authflow.ErrSubmissionInFlight):
		return c.JSON(http.StatusConflict, ErrorResponse{
			Code:    "submission_in_flight",
			Message: err.Error(),
		})
	case errors.Is(err, authflow.ErrIntentChanged):
		return c.JSON(http.StatusConflict, ErrorResponse{
			Code:    "intent_changed",
			Message: err.Error(),
		})
	}
	return err
}

// respond answers a screen action. JSON clients get the full state; form
// and htmx clients get flashes and a redirect.
func (h *AuthHandler) respond(c echo.Context, s *screen.Screen) error {
	redirect, hasRedirect := s.Navigator.TakeRedirect()
	notifications := s.Mailbox.Drain()

	if wantsJSON(c) {
		return c.JSON(http.StatusOK, s.State(redirect, notifications))
	}

	notify.Flash(c).Deliver(notifications)

	target := AuthPath
	if hasRedirect {
		target = redirect
	}
	if c.Request().Header.Get("HX-Request") == "true" {
		c.Response().Header().Set("HX-Redirect", target)
		return c.NoContent(http.StatusOK)
	}
	return c.Redirect(http.StatusSeeOther, target)
}

// screenFor returns the caller's screen, opening one and storing its id in
// the session on first use or after the old one was swept.
func (h *AuthHandler) screenFor(c echo.Context) (*screen.Screen, error) {
	sess, err := session.Get(screenSessionName, c)
	if sess == nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "session unavailable").SetInternal(err)
	}

	id, _ := sess.Values[screenSessionKey].(string)
	s, err := h.screens.GetOrOpen(id)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "could not open auth screen").SetInternal(err)
	}

	if s.ID != id {
		sess.Options = &sessions.Options{
			Path:     "/",
			MaxAge:   86400,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		}
		sess.Values[screenSessionKey] = s.ID
		if err := sess.Save(c.Request(), c.Response()); err != nil {
			return nil, echo.NewHTTPError(http.StatusInternalServerError, "could not save session").SetInternal(err)
		}
	}
	return s, nil
}

func wantsJSON(c echo.Context) bool {
	return strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)
}
