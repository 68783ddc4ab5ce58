package testutil

import (
	"os"
	"testing"
	"time"

	"github.com/kendall-kelly/marketplace/config"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// TestJWTSecret signs session tokens in tests
const TestJWTSecret = "marketplace-test-secret-0123456789abcdef"

// RequireTestEnvironment ensures that tests are running in the test environment.
// This prevents accidental execution of tests against production or development databases.
// It will fail the test immediately if GO_ENV is not set to "test".
func RequireTestEnvironment(t *testing.T) {
	t.Helper()

	env := os.Getenv("GO_ENV")
	if env != "test" {
		t.Fatalf("SAFETY CHECK FAILED: Tests must run with GO_ENV=test to prevent data loss. Current GO_ENV=%q. Set GO_ENV=test before running tests.", env)
	}
}

// TestConfig returns a configuration for an in-memory database with local
// sessions and uploads under a temporary directory. It is also installed as
// the process configuration.
func TestConfig(t *testing.T) *config.Config {
	t.Helper()
	RequireTestEnvironment(t)

	cfg := &config.Config{
		DatabaseURL:        ":memory:",
		Port:               "8080",
		GoEnv:              "test",
		AppURL:             "http://localhost:8080/",
		JWTSecret:          TestJWTSecret,
		SessionAudience:    "marketplace",
		SessionTTL:         time.Hour,
		UploadDir:          t.TempDir(),
		RateLimitQPS:       5,
		CORSAllowedOrigins: []string{"*"},
		LogLevel:           "silent",
	}

	original := config.GetConfig()
	config.SetConfig(cfg)
	t.Cleanup(func() { config.SetConfig(original) })
	return cfg
}

// SetupTestDB opens a migrated in-memory SQLite database and installs it
// as config.DB for the duration of the test
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	RequireTestEnvironment(t)

	db, err := config.Open(":memory:", "silent")
	require.NoError(t, err, "Failed to connect to test database")
	require.NoError(t, config.Migrate(db), "Failed to migrate test database")

	original := config.GetDB()
	config.SetDB(db)
	t.Cleanup(func() {
		config.SetDB(original)
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}
