package middleware

import (
	"net/http"
	"time"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/kendall-kelly/marketplace/config"
)

// SessionCookieName is the cookie carrying the session token
const SessionCookieName = "session"

// IssueSessionToken signs an HS256 token for subject that
// NewSessionValidator accepts
func IssueSessionToken(cfg *config.Config, subject string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(cfg.SessionTTL)

	claims := jwt.RegisteredClaims{
		Issuer:    cfg.AppURL,
		Subject:   subject,
		Audience:  jwt.ClaimStrings{cfg.SessionAudience},
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// StartSession logs subject in by setting the session cookie
func StartSession(c *gin.Context, cfg *config.Config, subject string) error {
	token, expiresAt, err := IssueSessionToken(cfg, subject)
	if err != nil {
		return err
	}

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// EndSession logs the user out
func EndSession(c *gin.Context) {
	clearSessionCookie(c.Writer, c.Request)
}

func clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	if _, err := r.Cookie(SessionCookieName); err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// sessionTokenExtractor reads the session cookie, then the Authorization header
func sessionTokenExtractor(r *http.Request) (string, error) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}
	return jwtmiddleware.AuthHeaderTokenExtractor(r)
}
