package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Postgres  PostgresConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

type ServerConfig struct {
	BindAddr             string
	TrustProxy           bool
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
}

type PostgresConfig struct {
	DatabaseURL string
	Host        string
	Port        string
	User        string
	Password    string
	Database    string
	SSLMode     string
}

type AuthConfig struct {
	SecretKey     string
	Algorithm     string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	StoreTimeout  time.Duration
	AdminUsername string
	AdminPassword string
	AdminEmail    string
}

type RateLimitConfig struct {
	PerMinute int
	PerHour   int
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() Config {
	return Config{
		Server: ServerConfig{
			BindAddr:             getenv("BIND_ADDR", ":8080"),
			TrustProxy:           getenvBool("TRUST_PROXY", false),
			CORSAllowedOrigins:   splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
			CORSAllowCredentials: getenvBool("CORS_ALLOW_CREDENTIALS", true),
		},
		Postgres: PostgresConfig{
			DatabaseURL: os.Getenv("DATABASE_URL"),
			Host:        getenv("PGHOST", "localhost"),
			Port:        getenv("PGPORT", "5432"),
			User:        os.Getenv("PGUSER"),
			Password:    os.Getenv("PGPASSWORD"),
			Database:    os.Getenv("PGDATABASE"),
			SSLMode:     getenv("PGSSLMODE", "disable"),
		},
		Auth: AuthConfig{
			SecretKey:     os.Getenv("SECRET_KEY"),
			Algorithm:     getenv("JWT_ALGORITHM", "HS256"),
			AccessTTL:     time.Duration(getenvInt("JWT_ACCESS_TOKEN_EXPIRE_MINUTES", 60)) * time.Minute,
			RefreshTTL:    time.Duration(getenvInt("JWT_REFRESH_TOKEN_EXPIRE_DAYS", 7)) * 24 * time.Hour,
			StoreTimeout:  getenvDuration("STORE_TIMEOUT", 2*time.Second),
			AdminUsername: os.Getenv("ADMIN_USERNAME"),
			AdminPassword: os.Getenv("ADMIN_PASSWORD"),
			AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		},
		RateLimit: RateLimitConfig{
			PerMinute: getenvInt("RATE_LIMIT_PER_MINUTE", 60),
			PerHour:   getenvInt("RATE_LIMIT_PER_HOUR", 1000),
		},
		Log: LogConfig{
			Level:  getenv("LOG_LEVEL", "info"),
			Format: getenv("LOG_FORMAT", "json"),
		},
	}
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
