package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nfrund/goby-messenger/internal/navigation"
)

// Conversation reports which conversation the route selects
// (GET /conversations and GET /conversations/:conversationId).
func (h *AuthHandler) Conversation(c echo.Context) error {
	s, err := h.screenFor(c)
	if err != nil {
		return err
	}
	s.Navigator.SetParameters(navigation.FromEcho(c))
	return c.JSON(http.StatusOK, s.Conversation.Resolve(s.Navigator.CurrentParameters()))
}
