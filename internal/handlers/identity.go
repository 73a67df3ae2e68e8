package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/goby-messenger/internal/accounts"
	"github.com/nfrund/goby-messenger/internal/authflow"
	"github.com/nfrund/goby-messenger/internal/gateway"
	"github.com/nfrund/goby-messenger/internal/middleware"
)

// IdentityBackend is what the identity API exposes over HTTP.
type IdentityBackend interface {
	authflow.RegistrationGateway
	authflow.SignInGateway
}

// IdentityHandler serves the identity backend API that HTTPGateway talks to.
type IdentityHandler struct {
	backend IdentityBackend
}

// NewIdentityHandler creates a new IdentityHandler.
func NewIdentityHandler(backend IdentityBackend) *IdentityHandler {
	return &IdentityHandler{backend: backend}
}

// Register creates an account (POST /api/register).
func (h *IdentityHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Code: "bad_request", Message: "Invalid request body."})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Code: "validation_failed", Message: err.Error()})
	}

	err := h.backend.Register(c.Request().Context(), req.Record())
	if err != nil {
		if errors.Is(err, accounts.ErrUserAlreadyExists) {
			return c.JSON(http.StatusConflict, ErrorResponse{Code: "user_exists", Message: "A user with this email already exists."})
		}
		middleware.FromContext(c.Request().Context()).Error("Error creating user", "error", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Code: "internal", Message: "Could not create the account."})
	}
	return c.JSON(http.StatusCreated, authflow.Outcome{OK: true})
}

// SignIn signs in with credentials or through a provider
// (POST /api/auth/signin/:provider). Rejections answer 401 with the outcome.
func (h *IdentityHandler) SignIn(c echo.Context) error {
	var req SignInRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Code: "bad_request", Message: "Invalid request body."})
	}

	ctx := c.Request().Context()
	opts := authflow.SignInOptions{Redirect: req.Redirect}
	provider := c.Param("provider")

	var (
		outcome authflow.Outcome
		err     error
	)
	if provider == gateway.CredentialsProvider {
		outcome, err = h.backend.SignInWithCredentials(ctx, req.Record(), opts)
	} else {
		outcome, err = h.backend.SignInWithProvider(ctx, provider, opts)
	}
	if err != nil {
		middleware.FromContext(ctx).Error("Sign-in failed", "provider", provider, "error", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Code: "internal", Message: "Sign-in failed."})
	}

	if !outcome.Succeeded() {
		return c.JSON(http.StatusUnauthorized, outcome)
	}
	return c.JSON(http.StatusOK, outcome)
}
