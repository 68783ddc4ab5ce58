package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// whoAmI echoes the subject the auth middleware put in the context
func whoAmI(c *gin.Context) {
	userID, err := GetUserID(c)
	if err != nil {
		c.String(http.StatusOK, "anonymous")
		return
	}
	c.String(http.StatusOK, userID)
}

func sessionCookie(t *testing.T, token string) *http.Cookie {
	t.Helper()
	return &http.Cookie{Name: SessionCookieName, Value: token}
}

func TestRequireLogin(t *testing.T) {
	cfg := testConfig()
	router := gin.New()
	router.GET("/inbox", RequireLogin(cfg), whoAmI)
	router.POST("/item/:id/message", RequireLogin(cfg), whoAmI)

	token, _, err := IssueSessionToken(cfg, "local|alice")
	require.NoError(t, err)

	t.Run("Anonymous GET redirects with next", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/inbox", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/login?next=%2Finbox", w.Header().Get("Location"))
	})

	t.Run("Anonymous POST redirects to login", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/item/1/message", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, LoginPath, w.Header().Get("Location"))
	})

	t.Run("Session cookie is accepted", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/inbox", nil)
		req.AddCookie(sessionCookie(t, token))
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "local|alice", w.Body.String())
	})

	t.Run("Tampered cookie is cleared", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/inbox", nil)
		req.AddCookie(sessionCookie(t, token+"x"))
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Contains(t, w.Header().Get("Set-Cookie"), SessionCookieName+"=;")
	})
}

func TestOptionalLogin(t *testing.T) {
	cfg := testConfig()
	router := gin.New()
	router.GET("/", OptionalLogin(cfg), whoAmI)

	token, _, err := IssueSessionToken(cfg, "local|bob")
	require.NoError(t, err)

	tests := []struct {
		name     string
		cookie   string
		wantBody string
	}{
		{name: "Anonymous", wantBody: "anonymous"},
		{name: "Logged in", cookie: token, wantBody: "local|bob"},
		{name: "Invalid token continues anonymously", cookie: "not-a-jwt", wantBody: "anonymous"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != "" {
				req.AddCookie(sessionCookie(t, tt.cookie))
			}
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestEnsureValidToken(t *testing.T) {
	cfg := testConfig()
	router := gin.New()
	router.GET("/api/v1/inbox", EnsureValidToken(cfg), whoAmI)

	token, _, err := IssueSessionToken(cfg, "local|carol")
	require.NoError(t, err)

	t.Run("Missing token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/inbox", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.False(t, response["success"].(bool))
		assert.Equal(t, "INVALID_TOKEN", response["error"].(map[string]interface{})["code"])
	})

	t.Run("Bearer token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/inbox", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "local|carol", w.Body.String())
	})

	t.Run("Session cookie is not an API credential", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/inbox", nil)
		req.AddCookie(sessionCookie(t, token))
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestLoginURL(t *testing.T) {
	get := httptest.NewRequest(http.MethodGet, "/item/3?ref=home", nil)
	assert.Equal(t, "/login?next=%2Fitem%2F3%3Fref%3Dhome", LoginURL(get))

	post := httptest.NewRequest(http.MethodPost, "/profile/edit", nil)
	assert.Equal(t, "/login", LoginURL(post))
}

func TestGetUserID(t *testing.T) {
	tests := []struct {
		name         string
		setupContext func(*gin.Context)
		expectedID   string
		expectError  bool
		errorCode    string
	}{
		{
			name: "valid user ID",
			setupContext: func(c *gin.Context) {
				c.Set(userIDKey, "local|123")
			},
			expectedID: "local|123",
		},
		{
			name:         "missing user ID",
			setupContext: func(c *gin.Context) {},
			expectError:  true,
			errorCode:    "MISSING_USER_ID",
		},
		{
			name: "user ID is not a string",
			setupContext: func(c *gin.Context) {
				c.Set(userIDKey, 12345)
			},
			expectError: true,
			errorCode:   "INVALID_USER_ID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			tt.setupContext(c)

			userID, err := GetUserID(c)

			if tt.expectError {
				require.Error(t, err)
				var authErr *AuthError
				require.ErrorAs(t, err, &authErr)
				assert.Equal(t, tt.errorCode, authErr.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedID, userID)
		})
	}
}

func TestGetClaims(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, err := GetClaims(c)
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "MISSING_CLAIMS", authErr.Code)

	c.Set(claimsKey, "not claims")
	_, err = GetClaims(c)
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "INVALID_CLAIMS", authErr.Code)

	claims := &validator.ValidatedClaims{RegisteredClaims: validator.RegisteredClaims{Subject: "local|1"}}
	c.Set(claimsKey, claims)
	got, err := GetClaims(c)
	require.NoError(t, err)
	assert.Equal(t, "local|1", got.RegisteredClaims.Subject)
}

func TestGetAccessToken(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/users", nil)

	_, err := GetAccessToken(c)
	assert.Error(t, err)

	c.Request.Header.Set("Authorization", "Bearer abc.def.ghi")
	token, err := GetAccessToken(c)
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)
}
