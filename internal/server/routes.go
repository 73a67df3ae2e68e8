package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/goby-messenger/internal/handlers"
	"github.com/nfrund/goby-messenger/internal/middleware"
)

// RegisterRoutes sets up all the application routes.
func (s *Server) RegisterRoutes() {
	authHandler := handlers.NewAuthHandler(s.Screens, s.validator, s.Presence, s.Push)
	identityHandler := handlers.NewIdentityHandler(s.Accounts)
	rateLimiter := middleware.RateLimiter(s.Cfg.GetRateLimit())

	s.E.GET(handlers.AuthPath, authHandler.State)
	s.E.GET("/auth/events", authHandler.Events)
	s.E.POST("/auth/toggle", authHandler.Toggle)
	s.E.POST("/auth/submit", authHandler.Submit, rateLimiter)
	s.E.POST("/auth/social/:provider", authHandler.Social, rateLimiter)

	s.E.GET("/conversations", authHandler.Conversation)
	s.E.GET("/conversations/:conversationId", authHandler.Conversation)
	s.E.GET("/users", authHandler.Users)

	api := s.E.Group("/api", middleware.ClientID, rateLimiter)
	api.POST("/register", identityHandler.Register)
	api.POST("/auth/signin/:provider", identityHandler.SignIn)

	s.E.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})
}
