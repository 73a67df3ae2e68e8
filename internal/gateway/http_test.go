package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/goby-messenger/internal/authflow"
	"github.com/nfrund/goby-messenger/internal/navigation"
	"github.com/nfrund/goby-messenger/internal/notify"
	"github.com/nfrund/goby-messenger/internal/sessionwatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPGateway_Register(t *testing.T) {
	var got authflow.CredentialRecord
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/register", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		if got.Email == "taken@example.com" {
			w.WriteHeader(http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	gw := New(srv.URL + "/")

	record := authflow.CredentialRecord{Name: "A", Email: "a@b.com", Password: "x"}
	require.NoError(t, gw.Register(context.Background(), record))
	assert.Equal(t, record, got)

	err := gw.Register(context.Background(), authflow.CredentialRecord{Email: "taken@example.com", Password: "x"})
	assert.ErrorIs(t, err, ErrRequestFailed)
}

func TestHTTPGateway_SignIn(t *testing.T) {
	type request struct {
		path     string
		clientID string
		body     map[string]interface{}
	}
	var last request

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		last = request{path: r.URL.Path, clientID: r.Header.Get(HeaderClientID)}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&last.body))

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/auth/signin/credentials":
			if last.body["password"] != "right" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"ok":false,"error":"CredentialsSignin"}`))
				return
			}
			_, _ = w.Write([]byte(`{"ok":true}`))
		case "/api/auth/signin/github":
			_, _ = w.Write([]byte(`{"ok":true}`))
		case "/api/auth/signin/gitea":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code":"bad_request","message":"invalid sign-in payload"}`))
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	gw := New(srv.URL)
	ctx := sessionwatch.WithClientID(context.Background(), "screen-7")

	t.Run("accepted credentials", func(t *testing.T) {
		outcome, err := gw.SignInWithCredentials(ctx, authflow.CredentialRecord{Email: "a@b.com", Password: "right"}, authflow.SignInOptions{Redirect: false})
		require.NoError(t, err)
		assert.True(t, outcome.Succeeded())
		assert.Equal(t, "screen-7", last.clientID)
		assert.Equal(t, false, last.body["redirect"])
		assert.Equal(t, "a@b.com", last.body["email"])
	})

	t.Run("rejected credentials decode the outcome", func(t *testing.T) {
		outcome, err := gw.SignInWithCredentials(ctx, authflow.CredentialRecord{Email: "a@b.com", Password: "wrong"}, authflow.SignInOptions{})
		require.NoError(t, err)
		assert.Equal(t, authflow.Outcome{Error: "CredentialsSignin"}, outcome)
	})

	t.Run("provider sign-in", func(t *testing.T) {
		outcome, err := gw.SignInWithProvider(ctx, "github", authflow.SignInOptions{})
		require.NoError(t, err)
		assert.True(t, outcome.Succeeded())
		assert.Equal(t, "/api/auth/signin/github", last.path)
		assert.NotContains(t, last.body, "email")
	})

	t.Run("bodyless failure is a transport error", func(t *testing.T) {
		_, err := gw.SignInWithProvider(ctx, "gitlab", authflow.SignInOptions{})
		assert.ErrorIs(t, err, ErrRequestFailed)
	})

	t.Run("client error without an error code is a transport error", func(t *testing.T) {
		_, err := gw.SignInWithProvider(ctx, "gitea", authflow.SignInOptions{})
		assert.ErrorIs(t, err, ErrRequestFailed)
	})
}

func TestHTTPGateway_SignInMissingRoute(t *testing.T) {
	// echo answers unknown routes with 404 {"message":"Not Found"}.
	srv := httptest.NewServer(echo.New())
	defer srv.Close()

	gw := New(srv.URL)

	_, err := gw.SignInWithCredentials(context.Background(), authflow.CredentialRecord{Email: "a@b.com", Password: "x"}, authflow.SignInOptions{})
	assert.ErrorIs(t, err, ErrRequestFailed)

	t.Run("login reports something went wrong", func(t *testing.T) {
		mailbox := notify.NewMailbox()
		nav := navigation.NewScreen()
		controller := authflow.NewController(gw, gw, mailbox, nav)

		require.NoError(t, controller.Submit(context.Background(), authflow.CredentialRecord{Email: "a@b.com", Password: "x"}))

		got := mailbox.Drain()
		require.Len(t, got, 1)
		assert.Equal(t, notify.LevelError, got[0].Level)
		assert.Equal(t, authflow.MsgSomethingWentWrong, got[0].Message)
		_, redirected := nav.TakeRedirect()
		assert.False(t, redirected)
		assert.False(t, controller.Loading())
	})
}

func TestHTTPGateway_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url).SignInWithProvider(context.Background(), "github", authflow.SignInOptions{})
	assert.ErrorIs(t, err, ErrRequestFailed)
}
