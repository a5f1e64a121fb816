package config

import (
	"crypto/subtle"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Config holds the core runtime configuration for the service.
// Values are sourced from environment variables (optionally via .env),
// with sensible defaults where appropriate. It is built once at startup
// and shared read-only by every component.
type Config struct {
	ListenAddr string

	// Env is "production" or anything else. Production switches logging
	// to JSON.
	Env      string
	LogLevel string

	// AdminSecret guards the key management routes (X-Login-Passwd).
	AdminSecret Secret

	// PublishSecret guards the shared-credential multi publish route
	// (X-Publish-Password).
	PublishSecret Secret

	// JWTSecret signs issued API keys.
	JWTSecret string

	// StoreDriver selects the hash store backend: redis, postgres or memory.
	StoreDriver string
	RedisURL    string
	DatabaseURL string

	// Shared platform credentials used by the multi publish route.
	DevToAPIKey  string
	MediumAPIKey string

	DevToBaseURL  string
	MediumBaseURL string
}

// Load reads configuration from environment variables and applies defaults.
func Load() *Config {
	return &Config{
		ListenAddr:    getenv("APP_LISTEN_ADDR", ":8080"),
		Env:           getenv("APP_ENV", "development"),
		LogLevel:      getenv("APP_LOG_LEVEL", "info"),
		AdminSecret:   Secret(os.Getenv("APP_LOGIN_PASSWD")),
		PublishSecret: Secret(os.Getenv("APP_PUBLISH_PASSWORD")),
		JWTSecret:     os.Getenv("APP_JWT_SECRET"),
		StoreDriver:   strings.ToLower(getenv("APP_STORE_DRIVER", "redis")),
		RedisURL:      getenv("APP_REDIS_URL", "redis://localhost:6379/0"),
		DatabaseURL:   os.Getenv("APP_DATABASE_URL"),
		DevToAPIKey:   os.Getenv("APP_DEVTO_API_KEY"),
		MediumAPIKey:  os.Getenv("APP_MEDIUM_API_KEY"),
		DevToBaseURL:  strings.TrimRight(getenv("APP_DEVTO_BASE_URL", "https://dev.to"), "/"),
		MediumBaseURL: strings.TrimRight(getenv("APP_MEDIUM_BASE_URL", "https://api.medium.com"), "/"),
	}
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Secret is a shared secret compared against a request header. It may hold
// the plaintext value or a bcrypt hash of it.
type Secret string

// IsSet reports whether a secret was configured at all.
func (s Secret) IsSet() bool {
	return s != ""
}

// Matches reports whether provided equals the configured secret. An unset
// secret never matches.
func (s Secret) Matches(provided string) bool {
	if !s.IsSet() || provided == "" {
		return false
	}
	if s.isBcrypt() {
		return bcrypt.CompareHashAndPassword([]byte(s), []byte(provided)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(s), []byte(provided)) == 1
}

func (s Secret) isBcrypt() bool {
	v := string(s)
	return strings.HasPrefix(v, "$2a$") || strings.HasPrefix(v, "$2b$") || strings.HasPrefix(v, "$2y$")
}
