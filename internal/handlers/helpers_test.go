package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/nfrund/goby-messenger/internal/accounts"
	"github.com/nfrund/goby-messenger/internal/authflow"
	"github.com/nfrund/goby-messenger/internal/middleware"
	"github.com/nfrund/goby-messenger/internal/presence"
	"github.com/nfrund/goby-messenger/internal/pubsub"
	"github.com/nfrund/goby-messenger/internal/push"
	"github.com/nfrund/goby-messenger/internal/screen"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testApp struct {
	e        *echo.Echo
	accounts *accounts.Service
	screens  *screen.Registry
	online   *presence.Service
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	bus := pubsub.NewWatermillBridge()
	t.Cleanup(func() { _ = bus.Close() })

	svc := accounts.NewService(accounts.WithHashCost(bcrypt.MinCost), accounts.WithPublisher(bus))

	online := presence.NewService(nil)
	t.Cleanup(online.Shutdown)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, online.Start(ctx, bus))

	events := push.NewBridge(nil)
	require.NoError(t, events.Start(ctx, bus))

	screens := screen.NewRegistry(screen.Dependencies{
		Registrar:  svc,
		SignIn:     svc,
		Publisher:  bus,
		Subscriber: bus,
		Providers:  []string{"github", "google"},
		OnClose:    online.RemoveClient,
	})
	t.Cleanup(screens.CloseAll)

	v := authflow.NewValidator()
	e := echo.New()
	e.Validator = NewValidator(v)
	e.Use(session.Middleware(sessions.NewCookieStore([]byte("a-very-secret-key-for-testing"))))
	e.Use(middleware.Logger)

	auth := NewAuthHandler(screens, v, online, events)
	e.GET("/auth", auth.State)
	e.GET("/auth/events", auth.Events)
	e.POST("/auth/toggle", auth.Toggle)
	e.POST("/auth/submit", auth.Submit)
	e.POST("/auth/social/:provider", auth.Social)
	e.GET("/users", auth.Users)
	e.GET("/conversations", auth.Conversation)
	e.GET("/conversations/:conversationId", auth.Conversation)

	identity := NewIdentityHandler(svc)
	api := e.Group("/api", middleware.ClientID)
	api.POST("/register", identity.Register)
	api.POST("/auth/signin/:provider", identity.SignIn)

	return &testApp{e: e, accounts: svc, screens: screens, online: online}
}

// browser keeps cookies between requests like a real client would.
type browser struct {
	app     *testApp
	cookies map[string]*http.Cookie
}

func (a *testApp) browser() *browser {
	return &browser{app: a, cookies: make(map[string]*http.Cookie)}
}

func (b *browser) do(method, path string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	for _, c := range b.cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	b.app.e.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		b.cookies[c.Name] = c
	}
	return rec
}

// cookieHeader renders the stored cookies for a hand-built request.
func (b *browser) cookieHeader() http.Header {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	return http.Header{"Cookie": req.Header.Values("Cookie")}
}

func (b *browser) getJSON(path string) *httptest.ResponseRecorder {
	return b.do(http.MethodGet, path, nil, map[string]string{echo.HeaderAccept: echo.MIMEApplicationJSON})
}

func (b *browser) postForm(path string, form url.Values, headers map[string]string) *httptest.ResponseRecorder {
	h := map[string]string{echo.HeaderContentType: echo.MIMEApplicationForm}
	for k, v := range headers {
		h[k] = v
	}
	return b.do(http.MethodPost, path, strings.NewReader(form.Encode()), h)
}

func (b *browser) postFormJSON(path string, form url.Values) *httptest.ResponseRecorder {
	return b.postForm(path, form, map[string]string{echo.HeaderAccept: echo.MIMEApplicationJSON})
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) screen.State {
	t.Helper()
	var state screen.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	return state
}
