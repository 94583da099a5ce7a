package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration, read from the environment.
type Config struct {
	Port     string
	DBPath   string
	LogLevel string

	JWTSecret  string
	SessionTTL time.Duration

	// VAPID keys for web push. Push is disabled when empty.
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string
}

// Load reads configuration from the environment. A .env file is loaded
// first when present, but deployed environments may set variables directly.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:     getEnv("POCKETQUEST_PORT", "8080"),
		DBPath:   getEnv("POCKETQUEST_DB_PATH", "pocketquest.db"),
		LogLevel: getEnv("POCKETQUEST_LOG_LEVEL", "info"),

		JWTSecret: os.Getenv("POCKETQUEST_JWT_SECRET"),

		VAPIDPublicKey:  os.Getenv("POCKETQUEST_VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("POCKETQUEST_VAPID_PRIVATE_KEY"),
		VAPIDSubject:    getEnv("POCKETQUEST_VAPID_SUBJECT", "mailto:admin@localhost"),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("POCKETQUEST_JWT_SECRET is required")
	}

	ttl, err := time.ParseDuration(getEnv("POCKETQUEST_SESSION_TTL", "720h"))
	if err != nil {
		return nil, fmt.Errorf("invalid POCKETQUEST_SESSION_TTL: %w", err)
	}
	cfg.SessionTTL = ttl

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}
