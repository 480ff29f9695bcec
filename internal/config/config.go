package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// ErrMissingAPIKey signals that the required Mistral credential is absent.
// Startup must not proceed without it.
var ErrMissingAPIKey = errors.New("config: MISTRAL_API_KEY is not set")

// Config holds runtime configuration values.
type Config struct {
	Port           string
	MistralAPIKey  string
	MistralModel   string
	TargetLang     string
	RequestTimeout time.Duration
	WebDir         string
}

// Load reads configuration from environment variables and applies defaults.
func Load() (Config, error) {
	cfg := Config{
		Port:           getenv("APP_PORT", "8080"),
		MistralAPIKey:  os.Getenv("MISTRAL_API_KEY"),
		MistralModel:   getenv("MISTRAL_MODEL", "pixtral-large-latest"),
		TargetLang:     getenv("TARGET_LANG", "kn"),
		RequestTimeout: time.Duration(getenvInt("REQUEST_TIMEOUT_SECONDS", 60)) * time.Second,
		WebDir:         getenv("WEB_DIR", "web"),
	}

	if cfg.MistralAPIKey == "" {
		return Config{}, ErrMissingAPIKey
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return fallback
}

func getenvInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return fallback
	}

	return parsed
}
