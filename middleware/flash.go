package middleware

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const flashCookieName = "flash"

// Flash levels
const (
	FlashSuccess = "success"
	FlashError   = "error"
)

// Flash is a one-shot notice shown on the page after a redirect
type Flash struct {
	Level   string
	Message string
}

// SetFlash queues a notice for the next page render
func SetFlash(c *gin.Context, level, message string) {
	value := base64.RawURLEncoding.EncodeToString([]byte(level + "\n" + message))
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     flashCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// PopFlash returns the queued notice, if any, and clears it
func PopFlash(c *gin.Context) *Flash {
	cookie, err := c.Request.Cookie(flashCookieName)
	if err != nil {
		return nil
	}

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     flashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	raw, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil
	}
	level, message, ok := strings.Cut(string(raw), "\n")
	if !ok || message == "" {
		return nil
	}
	return &Flash{Level: level, Message: message}
}
