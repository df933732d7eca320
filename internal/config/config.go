package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	NatsURL        string
	JWTSecret      string
	TokenTTL       time.Duration
	RequestTimeout time.Duration
	Workers        int
	Debug          bool
}

// Load reads configuration from the environment, with an optional .env file
// for local development.
func Load() *Config {
	godotenv.Load()

	return &Config{
		NatsURL:        getString("NATS_URL", "nats://localhost:4222"),
		JWTSecret:      getString("JWT_SECRET", "dev-secret-do-not-ship"),
		TokenTTL:       getDuration("TOKEN_TTL", time.Hour),
		RequestTimeout: getDuration("REQUEST_TIMEOUT", time.Second*5),
		Workers:        getInt("WORKERS", 8),
		Debug:          getBool("DEBUG", false),
	}
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
