package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"BIND_ADDR", "TRUST_PROXY", "JWT_ALGORITHM", "JWT_ACCESS_TOKEN_EXPIRE_MINUTES",
		"JWT_REFRESH_TOKEN_EXPIRE_DAYS", "STORE_TIMEOUT", "RATE_LIMIT_PER_MINUTE",
		"RATE_LIMIT_PER_HOUR", "LOG_LEVEL", "LOG_FORMAT", "CORS_ALLOWED_ORIGINS",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, ":8080", cfg.Server.BindAddr)
	assert.False(t, cfg.Server.TrustProxy)
	assert.Empty(t, cfg.Server.CORSAllowedOrigins)
	assert.Equal(t, "HS256", cfg.Auth.Algorithm)
	assert.Equal(t, 60*time.Minute, cfg.Auth.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTTL)
	assert.Equal(t, 2*time.Second, cfg.Auth.StoreTimeout)
	assert.Equal(t, 60, cfg.RateLimit.PerMinute)
	assert.Equal(t, 1000, cfg.RateLimit.PerHour)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TRUST_PROXY", "true")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "10")
	t.Setenv("RATE_LIMIT_PER_HOUR", "not-a-number")
	t.Setenv("JWT_ACCESS_TOKEN_EXPIRE_MINUTES", "15")
	t.Setenv("STORE_TIMEOUT", "500ms")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	cfg := Load()

	assert.True(t, cfg.Server.TrustProxy)
	assert.Equal(t, 10, cfg.RateLimit.PerMinute)
	assert.Equal(t, 1000, cfg.RateLimit.PerHour)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTTL)
	assert.Equal(t, 500*time.Millisecond, cfg.Auth.StoreTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSAllowedOrigins)
}
