package config

import (
	"os"
	"time"
)

type Config struct {
	BindAddr       string
	Port           string
	AllowedOrigins string        // comma-separated extra websocket/CORS origins
	SetupScript    string        // script run inside the isolated directory
	Sentinel       string        // stdout phrase that marks logical completion
	SessionTTL     time.Duration // fixed session lifetime, not slid by use
}

func Load() *Config {
	return &Config{
		BindAddr:       envOr("BIFROST_BIND", "0.0.0.0"),
		Port:           envOr("BIFROST_PORT", "8900"),
		AllowedOrigins: os.Getenv("BIFROST_ALLOWED_ORIGINS"),
		SetupScript:    envOr("BIFROST_SETUP_SCRIPT", "setup.sh"),
		Sentinel:       envOr("BIFROST_SENTINEL", "setup finished"),
		SessionTTL:     envDurationOr("BIFROST_SESSION_TTL", 30*24*time.Hour),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
