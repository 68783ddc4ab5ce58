package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueSessionToken_Validates(t *testing.T) {
	cfg := testConfig()

	token, expiresAt, err := IssueSessionToken(cfg, "local|alice")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	jwtValidator, err := NewSessionValidator(cfg)
	require.NoError(t, err)

	claims, err := jwtValidator.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.NotNil(t, claims)
}

func TestIssueSessionToken_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *configOverrides)
	}{
		{name: "Different secret", mutate: func(o *configOverrides) { o.secret = "another-secret-0123456789abcdefghij" }},
		{name: "Different audience", mutate: func(o *configOverrides) { o.audience = "someone-else" }},
		{name: "Different issuer", mutate: func(o *configOverrides) { o.issuer = "https://evil.example.com/" }},
		{name: "Expired", mutate: func(o *configOverrides) { o.ttl = -2 * time.Hour }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issuing := testConfig()
			overrides := configOverrides{
				secret:   issuing.JWTSecret,
				audience: issuing.SessionAudience,
				issuer:   issuing.AppURL,
				ttl:      issuing.SessionTTL,
			}
			tt.mutate(&overrides)
			issuing.JWTSecret = overrides.secret
			issuing.SessionAudience = overrides.audience
			issuing.AppURL = overrides.issuer
			issuing.SessionTTL = overrides.ttl

			token, _, err := IssueSessionToken(issuing, "local|alice")
			require.NoError(t, err)

			jwtValidator, err := NewSessionValidator(testConfig())
			require.NoError(t, err)

			_, err = jwtValidator.ValidateToken(context.Background(), token)
			assert.Error(t, err)
		})
	}
}

type configOverrides struct {
	secret   string
	audience string
	issuer   string
	ttl      time.Duration
}

func TestStartAndEndSession(t *testing.T) {
	cfg := testConfig()
	router := gin.New()
	router.POST("/login", func(c *gin.Context) {
		require.NoError(t, StartSession(c, cfg, "local|alice"))
		c.Status(http.StatusNoContent)
	})
	router.POST("/logout", func(c *gin.Context) {
		EndSession(c)
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	session := cookies[0]
	assert.Equal(t, SessionCookieName, session.Name)
	assert.NotEmpty(t, session.Value)
	assert.True(t, session.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, session.SameSite)
	assert.False(t, session.Secure, "cookies are only marked Secure in production")

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(session)
	router.ServeHTTP(w, req)

	cookies = w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookieName, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestSessionTokenExtractor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	token, err := sessionTokenExtractor(req)
	require.NoError(t, err)
	assert.Empty(t, token)

	req.Header.Set("Authorization", "Bearer from-header")
	token, err = sessionTokenExtractor(req)
	require.NoError(t, err)
	assert.Equal(t, "from-header", token)

	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "from-cookie"})
	token, err = sessionTokenExtractor(req)
	require.NoError(t, err)
	assert.Equal(t, "from-cookie", token, "the cookie takes precedence")
}
