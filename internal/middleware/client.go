package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/nfrund/goby-messenger/internal/sessionwatch"
)

// HeaderClientID carries the id of the screen a request acts for.
const HeaderClientID = "X-Client-ID"

// ClientID copies the X-Client-ID header into the request context so the
// identity backend can address session-status changes to that screen.
func ClientID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if id := c.Request().Header.Get(HeaderClientID); id != "" {
			ctx := sessionwatch.WithClientID(c.Request().Context(), id)
			c.SetRequest(c.Request().WithContext(ctx))
		}
		return next(c)
	}
}
