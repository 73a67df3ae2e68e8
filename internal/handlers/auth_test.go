package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/nfrund/goby-messenger/internal/authflow"
	"github.com/nfrund/goby-messenger/internal/notify"
	"github.com/nfrund/goby-messenger/internal/push"
	"github.com/nfrund/goby-messenger/internal/sessionwatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func credentials(name, email, password string) url.Values {
	return url.Values{"name": {name}, "email": {email}, "password": {password}}
}

func TestAuthHandler_State(t *testing.T) {
	app := newTestApp(t)
	b := app.browser()

	rec := b.getJSON("/auth")
	require.Equal(t, http.StatusOK, rec.Code)

	state := decodeState(t, rec)
	assert.Equal(t, authflow.IntentLogin, state.Intent)
	assert.False(t, state.Loading)
	assert.False(t, state.Disabled)
	assert.Equal(t, "Sign in", state.Labels.Submit)
	assert.Equal(t, []string{"github", "google"}, state.Providers)
	assert.Equal(t, sessionwatch.StatusUnauthenticated, state.Session)
	assert.Empty(t, state.Redirect)

	again := decodeState(t, b.getJSON("/auth"))
	assert.Equal(t, state.ID, again.ID, "the screen is kept across requests")
	assert.Equal(t, 1, app.screens.Len())

	other := decodeState(t, app.browser().getJSON("/auth"))
	assert.NotEqual(t, state.ID, other.ID, "each browser gets its own screen")
}

func TestAuthHandler_Toggle(t *testing.T) {
	b := newTestApp(t).browser()

	state := decodeState(t, b.postFormJSON("/auth/toggle", nil))
	assert.Equal(t, authflow.IntentRegister, state.Intent)
	assert.Equal(t, "Already have an account?", state.Labels.Prompt)

	state = decodeState(t, b.postFormJSON("/auth/toggle", nil))
	assert.Equal(t, authflow.IntentLogin, state.Intent)
}

func TestAuthHandler_SubmitLogin(t *testing.T) {
	app := newTestApp(t)
	require.NoError(t, app.accounts.Register(context.Background(), authflow.CredentialRecord{
		Name: "Ada", Email: "ada@example.com", Password: "secret",
	}))

	t.Run("wrong password notifies and stays", func(t *testing.T) {
		b := app.browser()
		rec := b.postFormJSON("/auth/submit", credentials("", "ada@example.com", "nope"))
		require.Equal(t, http.StatusOK, rec.Code)

		state := decodeState(t, rec)
		assert.Empty(t, state.Redirect)
		require.Len(t, state.Notifications, 1)
		assert.Equal(t, notify.LevelError, state.Notifications[0].Level)
		assert.Equal(t, authflow.MsgInvalidCredentials, state.Notifications[0].Message)
		assert.False(t, state.Loading)
	})

	t.Run("success redirects to /users", func(t *testing.T) {
		b := app.browser()
		state := decodeState(t, b.postFormJSON("/auth/submit", credentials("", "ada@example.com", "secret")))

		assert.Equal(t, "/users", state.Redirect)
		require.Len(t, state.Notifications, 1)
		assert.Equal(t, authflow.MsgLoggedIn, state.Notifications[0].Message)

		// Redirects and notifications are handed out once.
		state = decodeState(t, b.getJSON("/auth"))
		assert.Empty(t, state.Notifications)
	})

	t.Run("form post answers with 303 and a flash", func(t *testing.T) {
		b := app.browser()
		rec := b.postForm("/auth/submit", credentials("", "ada@example.com", "secret"), nil)

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/users", rec.Header().Get("Location"))

		rec = b.getJSON("/users")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), authflow.MsgLoggedIn)
	})

	t.Run("htmx post answers with HX-Redirect", func(t *testing.T) {
		b := app.browser()
		rec := b.postForm("/auth/submit", credentials("", "ada@example.com", "secret"), map[string]string{"HX-Request": "true"})

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "/users", rec.Header().Get("HX-Redirect"))
	})

	t.Run("failed form post goes back to the screen", func(t *testing.T) {
		b := app.browser()
		rec := b.postForm("/auth/submit", credentials("", "ada@example.com", "nope"), nil)

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, AuthPath, rec.Header().Get("Location"))
	})
}

func TestAuthHandler_SubmitValidation(t *testing.T) {
	b := newTestApp(t).browser()

	rec := b.postFormJSON("/auth/submit", credentials("", "not-an-email", "secret"))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation_failed")

	b.postFormJSON("/auth/toggle", nil)
	rec = b.postFormJSON("/auth/submit", credentials(" ", "new@example.com", "secret"))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "registering requires a name")
}

func TestAuthHandler_SubmitRegister(t *testing.T) {
	app := newTestApp(t)
	b := app.browser()

	b.postFormJSON("/auth/toggle", nil)
	state := decodeState(t, b.postFormJSON("/auth/submit", credentials("Grace", "grace@example.com", "secret")))
	assert.Empty(t, state.Notifications)
	assert.False(t, state.Loading)

	_, ok := app.accounts.FindByEmail("grace@example.com")
	assert.True(t, ok)

	// The session signal arrives over the bus and the watcher navigates.
	var redirect string
	assert.Eventually(t, func() bool {
		s := decodeState(t, b.getJSON("/auth"))
		if s.Redirect != "" {
			redirect = s.Redirect
		}
		return redirect != ""
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "/users", redirect)

	t.Run("duplicate registration notifies", func(t *testing.T) {
		other := app.browser()
		other.postFormJSON("/auth/toggle", nil)
		state := decodeState(t, other.postFormJSON("/auth/submit", credentials("Grace", "grace@example.com", "secret")))
		require.Len(t, state.Notifications, 1)
		assert.Equal(t, authflow.MsgSomethingWentWrong, state.Notifications[0].Message)
	})
}

func TestAuthHandler_SubmitStaleIntent(t *testing.T) {
	app := newTestApp(t)
	b := app.browser()

	// The form was rendered for LOGIN, then another tab toggled to REGISTER.
	form := credentials("Ada", "ada@example.com", "secret")
	form.Set("intent", "login")
	b.postFormJSON("/auth/toggle", nil)

	rec := b.postFormJSON("/auth/submit", form)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "intent_changed")

	_, ok := app.accounts.FindByEmail("ada@example.com")
	assert.False(t, ok, "no account is created from a record validated for login")

	state := decodeState(t, b.getJSON("/auth"))
	assert.Equal(t, authflow.IntentRegister, state.Intent)
	assert.Empty(t, state.Notifications)

	t.Run("unknown intent is a validation failure", func(t *testing.T) {
		form.Set("intent", "logout")
		rec := b.postFormJSON("/auth/submit", form)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid intent")
	})

	t.Run("matching intent registers", func(t *testing.T) {
		form.Set("intent", "REGISTER")
		state := decodeState(t, b.postFormJSON("/auth/submit", form))
		assert.Empty(t, state.Notifications)

		user, ok := app.accounts.FindByEmail("ada@example.com")
		require.True(t, ok)
		assert.Equal(t, "Ada", user.Name)
	})
}

func TestAuthHandler_Social(t *testing.T) {
	app := newTestApp(t)

	t.Run("known provider succeeds without an immediate redirect", func(t *testing.T) {
		b := app.browser()
		state := decodeState(t, b.postFormJSON("/auth/social/GitHub", nil))
		require.Len(t, state.Notifications, 1)
		assert.Equal(t, authflow.MsgLoggedIn, state.Notifications[0].Message)

		assert.Eventually(t, func() bool {
			return decodeState(t, b.getJSON("/auth")).Session == sessionwatch.StatusAuthenticated
		}, 2*time.Second, 10*time.Millisecond)
	})

	t.Run("unknown provider notifies", func(t *testing.T) {
		b := app.browser()
		state := decodeState(t, b.postFormJSON("/auth/social/myspace", nil))
		require.Len(t, state.Notifications, 1)
		assert.Equal(t, authflow.MsgSomethingWentWrong, state.Notifications[0].Message)
	})
}

func TestAuthHandler_EventsPushesNotifications(t *testing.T) {
	app := newTestApp(t)
	b := app.browser()
	require.Equal(t, http.StatusOK, b.getJSON("/auth").Code, "opens the screen and sets the session cookie")

	srv := httptest.NewServer(app.e)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/auth/events", &websocket.DialOptions{
		HTTPHeader: b.cookieHeader(),
	})
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	b.postFormJSON("/auth/submit", credentials("", "nobody@example.com", "secret"))

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)

	var frame push.Frame
	require.NoError(t, json.Unmarshal(data, &frame))
	assert.Equal(t, notify.TopicNotification.Name(), frame.Topic)

	var n notify.Notification
	require.NoError(t, json.Unmarshal(frame.Payload, &n))
	assert.Equal(t, notify.LevelError, n.Level)
	assert.Equal(t, authflow.MsgInvalidCredentials, n.Message)
}

func TestAuthHandler_Conversation(t *testing.T) {
	b := newTestApp(t).browser()

	rec := b.getJSON("/conversations/c-42")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"conversationId":"c-42","isOpen":true}`, rec.Body.String())

	rec = b.getJSON("/conversations")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"conversationId":"","isOpen":false}`, rec.Body.String())

	state := decodeState(t, b.getJSON("/auth"))
	assert.False(t, state.Conversation.IsOpen)
}

func TestAuthHandler_UsersListsSignedIn(t *testing.T) {
	app := newTestApp(t)
	require.NoError(t, app.accounts.Register(context.Background(), authflow.CredentialRecord{
		Name: "Ada", Email: "ada@example.com", Password: "secret",
	}))

	b := app.browser()
	b.postFormJSON("/auth/submit", credentials("", "ada@example.com", "secret"))

	assert.Eventually(t, func() bool {
		body := b.getJSON("/users").Body.String()
		return strings.Contains(body, `"online":["ada@example.com"]`) &&
			strings.Contains(body, `"session":"authenticated"`)
	}, 2*time.Second, 10*time.Millisecond)

	// Closing the screen signs its client out of the presence list.
	state := decodeState(t, b.getJSON("/auth"))
	app.screens.Close(state.ID)
	assert.Empty(t, app.online.GetOnlineUsers())
}
