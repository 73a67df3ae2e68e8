package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/nfrund/goby-messenger/internal/accounts"
	"github.com/nfrund/goby-messenger/internal/authflow"
	"github.com/nfrund/goby-messenger/internal/config"
	"github.com/nfrund/goby-messenger/internal/gateway"
	"github.com/nfrund/goby-messenger/internal/handlers"
	appmiddleware "github.com/nfrund/goby-messenger/internal/middleware"
	"github.com/nfrund/goby-messenger/internal/presence"
	"github.com/nfrund/goby-messenger/internal/pubsub"
	"github.com/nfrund/goby-messenger/internal/push"
	"github.com/nfrund/goby-messenger/internal/screen"
)

// Server holds the dependencies for the HTTP server.
type Server struct {
	E        *echo.Echo
	Cfg      config.Provider
	Bus      *pubsub.WatermillBridge
	Accounts *accounts.Service
	Screens  *screen.Registry
	Presence *presence.Service
	Push     *push.Bridge

	validator         *authflow.Validator
	stopSubscriptions context.CancelFunc
	shutdownTracing   func(context.Context) error
}

// New wires the bus, the identity backend and the auth screens behind an
// Echo instance. Routes are registered by RegisterRoutes.
func New(ctx context.Context, cfg config.Provider) (*Server, error) {
	tracer, shutdownTracing, err := pubsub.SetupTracing(ctx, pubsub.TracingConfig{
		Enabled:     cfg.GetTracingEnabled(),
		ServiceName: "goby-messenger",
		ZipkinURL:   cfg.GetTracingZipkinURL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}

	busOpts := []pubsub.BridgeOption{
		pubsub.WithTracer(tracer),
		pubsub.WithBufferSize(cfg.GetPubSubBufferSize()),
	}
	if cfg.GetPubSubDebug() {
		busOpts = append(busOpts, pubsub.WithDebugLogging())
	}
	bus := pubsub.NewWatermillBridge(busOpts...)
	accountService := accounts.NewService(
		accounts.WithProviders(cfg.GetSocialProviders()...),
		accounts.WithPublisher(bus),
	)

	// Screens talk to the local backend unless a remote one is configured.
	var (
		registrar authflow.RegistrationGateway = accountService
		signIn    authflow.SignInGateway       = accountService
	)
	if url := cfg.GetAuthBackendURL(); url != "" {
		remote := gateway.New(url)
		registrar, signIn = remote, remote
		slog.Info("Using remote identity backend", "url", url)
	}

	online := presence.NewService(bus)
	subsCtx, stopSubscriptions := context.WithCancel(context.Background())
	if err := online.Start(subsCtx, bus); err != nil {
		stopSubscriptions()
		return nil, fmt.Errorf("failed to start presence tracking: %w", err)
	}

	bridge := push.NewBridge(nil)
	if err := bridge.Start(subsCtx, bus); err != nil {
		stopSubscriptions()
		return nil, fmt.Errorf("failed to start push bridge: %w", err)
	}

	screens := screen.NewRegistry(screen.Dependencies{
		Registrar:    registrar,
		SignIn:       signIn,
		Publisher:    bus,
		Subscriber:   bus,
		RedirectPath: cfg.GetRedirectPath(),
		Providers:    cfg.GetSocialProviders(),
		OnClose:      online.RemoveClient,
	})

	validator := authflow.NewValidator()

	e := echo.New()
	e.HideBanner = true
	e.Validator = handlers.NewValidator(validator)
	e.Use(middleware.RequestID())
	e.Use(appmiddleware.Logger)
	e.Use(middleware.Recover())

	store := sessions.NewCookieStore([]byte(cfg.GetSessionSecret()))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	e.Use(session.Middleware(store))

	setupErrorHandling(e)

	return &Server{
		E:                 e,
		Cfg:               cfg,
		Bus:               bus,
		Accounts:          accountService,
		Screens:           screens,
		Presence:          online,
		Push:              bridge,
		validator:         validator,
		stopSubscriptions: stopSubscriptions,
		shutdownTracing:   shutdownTracing,
	}, nil
}

// setupErrorHandling logs unhandled errors with a stack trace before
// delegating to Echo's default handler.
func setupErrorHandling(e *echo.Echo) {
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		var he *echo.HTTPError
		if !errors.As(err, &he) {
			appmiddleware.FromContext(c.Request().Context()).Error("Internal Server Error (Unhandled)",
				"error", err,
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"stack_trace", string(debug.Stack()),
			)
		} else if he.Internal != nil {
			appmiddleware.FromContext(c.Request().Context()).Error("Request failed",
				"status", he.Code,
				"error", he.Internal,
			)
		}
		e.DefaultHTTPErrorHandler(err, c)
	}
}
