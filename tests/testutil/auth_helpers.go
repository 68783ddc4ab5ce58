package testutil

import (
	"context"
	"net/http"
	"testing"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/marketplace/config"
	"github.com/kendall-kelly/marketplace/middleware"
	"github.com/kendall-kelly/marketplace/models"
	"github.com/kendall-kelly/marketplace/services"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// TestPassword is the password of every user created by CreateUser
const TestPassword = "correct-horse-battery"

// CreateUser registers username with TestPassword, provisioning its profile
func CreateUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()

	user, err := services.NewAccountService(db, nil).Register(context.Background(), services.RegisterInput{
		Username:        username,
		Email:           username + "@example.com",
		Password:        TestPassword,
		PasswordConfirm: TestPassword,
	})
	require.NoError(t, err)
	return user
}

// CreateItem lists an item for seller; pass a nil seller for an orphaned listing
func CreateItem(t *testing.T, db *gorm.DB, seller *models.User, name string, available bool) *models.Item {
	t.Helper()

	item := &models.Item{
		Name:        name,
		Description: "A lovely " + name,
		Price:       25,
		Category:    models.CategoryOther,
		IsAvailable: available,
	}
	if seller != nil {
		item.SellerID = &seller.ID
	}
	require.NoError(t, db.Create(item).Error)
	return item
}

// SessionCookie logs user in for HTML requests
func SessionCookie(t *testing.T, cfg *config.Config, user *models.User) *http.Cookie {
	t.Helper()

	token, expiresAt, err := middleware.IssueSessionToken(cfg, user.Subject)
	require.NoError(t, err)
	return &http.Cookie{Name: middleware.SessionCookieName, Value: token, Path: "/", Expires: expiresAt}
}

// BearerToken returns an Authorization header value for API requests as subject
func BearerToken(t *testing.T, cfg *config.Config, subject string) string {
	t.Helper()

	token, _, err := middleware.IssueSessionToken(cfg, subject)
	require.NoError(t, err)
	return "Bearer " + token
}

// MockValidatedClaims creates a mock ValidatedClaims for testing
func MockValidatedClaims(subject, issuer string) *validator.ValidatedClaims {
	return &validator.ValidatedClaims{
		RegisteredClaims: validator.RegisteredClaims{
			Issuer:  issuer,
			Subject: subject,
		},
	}
}

// MockAuthMiddleware authenticates every request as subject without a token
func MockAuthMiddleware(subject string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", subject)
		c.Set("validated_claims", MockValidatedClaims(subject, "http://localhost:8080/"))
		c.Next()
	}
}
