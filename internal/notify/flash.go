package notify

import (
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
)

const (
	flashSessionName = "flash-session"
	flashKeySuccess  = "success"
	flashKeyError    = "error"
)

// FlashData holds the flash messages read for one render.
type FlashData struct {
	Success []string `json:"success,omitempty"`
	Error   []string `json:"error,omitempty"`
}

// FlashSink stores notifications as session flashes on an Echo request.
type FlashSink struct {
	c echo.Context
}

// Flash returns a sink bound to the request c.
func Flash(c echo.Context) FlashSink {
	return FlashSink{c: c}
}

func (f FlashSink) Success(message string) { setFlash(f.c, flashKeySuccess, message) }
func (f FlashSink) Error(message string)   { setFlash(f.c, flashKeyError, message) }

// Deliver moves notifications into the request's flash session.
func (f FlashSink) Deliver(items []Notification) {
	for _, n := range items {
		if n.Level == LevelError {
			f.Error(n.Message)
			continue
		}
		f.Success(n.Message)
	}
}

// setFlash sets a flash message in the session.
func setFlash(c echo.Context, key, message string) {
	sess, err := session.Get(flashSessionName, c)
	if err != nil {
		return
	}
	sess.AddFlash(message, key)
	_ = sess.Save(c.Request(), c.Response())
}

// GetFlashData retrieves and clears flash messages from the session.
func GetFlashData(c echo.Context) FlashData {
	var data FlashData

	sess, err := session.Get(flashSessionName, c)
	if err != nil {
		return data
	}

	// Flashes() retrieves and then clears the flashes from the session.
	successFlashes := sess.Flashes(flashKeySuccess)
	errorFlashes := sess.Flashes(flashKeyError)

	for _, f := range successFlashes {
		if s, ok := f.(string); ok {
			data.Success = append(data.Success, s)
		}
	}
	for _, f := range errorFlashes {
		if s, ok := f.(string); ok {
			data.Error = append(data.Error, s)
		}
	}

	if len(successFlashes) > 0 || len(errorFlashes) > 0 {
		_ = sess.Save(c.Request(), c.Response())
	}
	return data
}
