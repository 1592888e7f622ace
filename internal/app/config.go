package app

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/rosterhq/attendance/pkg/jwtx"
)

type Config struct {
	AccessSecret  string // Required: HS256 secret for access tokens
	RefreshSecret string // Required: HS256 secret for refresh tokens

	AccessTokenTTL  time.Duration // Optional: access token lifetime (default: 7 days)
	RefreshTokenTTL time.Duration // Optional: refresh token lifetime (default: 30 days)

	DatabaseFile         string        // Optional: path to SQLite database file (default: ./attendance.db)
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Expired-session sweep interval (default: 1h)
}

func LoadConfig() Config {
	return Config{
		AccessSecret:         os.Getenv("AUTH_ACCESS_SECRET"),
		RefreshSecret:        os.Getenv("AUTH_REFRESH_SECRET"),
		AccessTokenTTL:       getEnvDurationOrDefault("ACCESS_TOKEN_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTokenTTL:      getEnvDurationOrDefault("REFRESH_TOKEN_TTL", jwtx.DefaultRefreshTokenTTL),
		DatabaseFile:         getEnvOrDefault("DATABASE_FILE", "attendance.db"),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}
}

// Validate rejects configs that cannot produce a working service. The two
// signing secrets must be set and must differ, otherwise a refresh token
// would verify as an access token.
func (c Config) Validate() error {
	if c.AccessSecret == "" {
		return errors.New("AUTH_ACCESS_SECRET is required")
	}
	if c.RefreshSecret == "" {
		return errors.New("AUTH_REFRESH_SECRET is required")
	}
	if c.AccessSecret == c.RefreshSecret {
		return errors.New("AUTH_ACCESS_SECRET and AUTH_REFRESH_SECRET must differ")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Duration strings first (e.g. "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are taken as minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
