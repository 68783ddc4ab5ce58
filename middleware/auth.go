package middleware

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"time"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/marketplace/config"
)

const (
	userIDKey = "user_id"
	claimsKey = "validated_claims"

	// LoginPath is where unauthenticated page requests are sent
	LoginPath = "/login"
)

// EnsureValidToken protects JSON API routes. Tokens are validated against
// Auth0 when it is configured, otherwise against the local session key.
// Failures get a 401 JSON response.
func EnsureValidToken(cfg *config.Config) gin.HandlerFunc {
	var (
		jwtValidator *validator.Validator
		err          error
	)
	if cfg.UsesAuth0() {
		jwtValidator, err = newAuth0Validator(cfg)
	} else {
		jwtValidator, err = NewSessionValidator(cfg)
	}
	if err != nil {
		log.Fatalf("Failed to set up the jwt validator: %v", err)
	}

	errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		log.Printf("Encountered error while validating JWT: %v", err)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		if _, writeErr := w.Write([]byte(`{"success":false,"error":{"code":"INVALID_TOKEN","message":"Failed to validate JWT."}}`)); writeErr != nil {
			log.Printf("Failed to write error response: %v", writeErr)
		}
	}

	return checkJWT(jwtValidator, jwtmiddleware.AuthHeaderTokenExtractor, false, errorHandler)
}

// RequireLogin protects HTML pages: requests without a valid session are
// redirected to the login page
func RequireLogin(cfg *config.Config) gin.HandlerFunc {
	jwtValidator, err := NewSessionValidator(cfg)
	if err != nil {
		log.Fatalf("Failed to set up the session validator: %v", err)
	}

	errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		clearSessionCookie(w, r)
		http.Redirect(w, r, LoginURL(r), http.StatusFound)
	}

	return checkJWT(jwtValidator, sessionTokenExtractor, false, errorHandler)
}

// OptionalLogin identifies the session user when there is one and lets
// anonymous requests through
func OptionalLogin(cfg *config.Config) gin.HandlerFunc {
	jwtValidator, err := NewSessionValidator(cfg)
	if err != nil {
		log.Fatalf("Failed to set up the session validator: %v", err)
	}

	errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		clearSessionCookie(w, r)
	}

	return checkJWT(jwtValidator, sessionTokenExtractor, true, errorHandler)
}

// LoginURL builds the login redirect for r, remembering GET targets
func LoginURL(r *http.Request) string {
	if r.Method != http.MethodGet {
		return LoginPath
	}
	return LoginPath + "?next=" + url.QueryEscape(r.URL.RequestURI())
}

func checkJWT(jwtValidator *validator.Validator, extractor jwtmiddleware.TokenExtractor, optional bool, errorHandler jwtmiddleware.ErrorHandler) gin.HandlerFunc {
	middleware := jwtmiddleware.New(
		jwtValidator.ValidateToken,
		jwtmiddleware.WithErrorHandler(errorHandler),
		jwtmiddleware.WithTokenExtractor(extractor),
		jwtmiddleware.WithCredentialsOptional(optional),
	)

	return func(c *gin.Context) {
		reached := false
		var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
			reached = true

			if token, ok := r.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims); ok {
				c.Set(userIDKey, token.RegisteredClaims.Subject)
				c.Set(claimsKey, token)
			}

			c.Next()
		}

		middleware.CheckJWT(handler).ServeHTTP(c.Writer, c.Request)

		if !reached {
			if optional {
				// invalid credentials on a public page: continue anonymously
				c.Next()
				return
			}
			c.Abort()
		}
	}
}

func newAuth0Validator(cfg *config.Config) (*validator.Validator, error) {
	issuerURL, err := url.Parse("https://" + cfg.Auth0Domain + "/")
	if err != nil {
		return nil, err
	}

	provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)

	return validator.New(
		provider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		[]string{cfg.Auth0Audience},
		validator.WithAllowedClockSkew(time.Minute),
	)
}

// NewSessionValidator validates the HS256 session tokens this app issues
func NewSessionValidator(cfg *config.Config) (*validator.Validator, error) {
	secret := []byte(cfg.JWTSecret)
	keyFunc := func(context.Context) (interface{}, error) {
		return secret, nil
	}

	return validator.New(
		keyFunc,
		validator.HS256,
		cfg.AppURL,
		[]string{cfg.SessionAudience},
		validator.WithAllowedClockSkew(time.Minute),
	)
}

// GetUserID extracts the token subject from the Gin context
func GetUserID(c *gin.Context) (string, error) {
	userID, exists := c.Get(userIDKey)
	if !exists {
		return "", &AuthError{Code: "MISSING_USER_ID", Message: "User ID not found in context"}
	}

	userIDStr, ok := userID.(string)
	if !ok || userIDStr == "" {
		return "", &AuthError{Code: "INVALID_USER_ID", Message: "User ID is not a string"}
	}

	return userIDStr, nil
}

// GetClaims extracts the validated JWT claims from the Gin context
func GetClaims(c *gin.Context) (*validator.ValidatedClaims, error) {
	claims, exists := c.Get(claimsKey)
	if !exists {
		return nil, &AuthError{Code: "MISSING_CLAIMS", Message: "Claims not found in context"}
	}

	validatedClaims, ok := claims.(*validator.ValidatedClaims)
	if !ok {
		return nil, &AuthError{Code: "INVALID_CLAIMS", Message: "Claims are not in the expected format"}
	}

	return validatedClaims, nil
}

// GetAccessToken returns the raw bearer token of the request
func GetAccessToken(c *gin.Context) (string, error) {
	token, err := jwtmiddleware.AuthHeaderTokenExtractor(c.Request)
	if err != nil || token == "" {
		return "", &AuthError{Code: "MISSING_TOKEN", Message: "Access token not found"}
	}
	return token, nil
}

// AuthError represents an authentication error
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}
