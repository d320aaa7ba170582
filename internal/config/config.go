package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config aggregates client configuration values loaded from environment
// variables, with the persisted config file (see file.go) as a fallback for
// values the environment does not set.
type Config struct {
	Env           string
	APIBaseURL    string
	HTTPTimeout   time.Duration
	PusherHost    string
	PusherKey     string
	PusherCluster string
	PusherTLS     bool
	AuthPath      string
	MaxMessageLen int
}

// Defaults mirror the mobile client's shipped configuration.
const (
	DefaultAPIBaseURL  = "http://asaancar.test"
	DefaultAuthPath    = "/broadcasting/auth"
	DefaultHTTPTimeout = 30 * time.Second
	DefaultMessageLen  = 500
)

// Load parses configuration from the current environment. Missing optional
// values fall back to defaults; the base URL is the only hard requirement.
func Load() (Config, error) {
	cfg := Config{
		Env:           getEnv("APP_ENV", "dev"),
		APIBaseURL:    getEnv("API_BASE_URL", DefaultAPIBaseURL),
		PusherHost:    os.Getenv("PUSHER_HOST"),
		PusherKey:     os.Getenv("PUSHER_KEY"),
		PusherCluster: getEnv("PUSHER_CLUSTER", "mt1"),
		AuthPath:      getEnv("BROADCAST_AUTH_PATH", DefaultAuthPath),
		MaxMessageLen: DefaultMessageLen,
	}
	timeout, err := parseDurationEnv("HTTP_TIMEOUT", DefaultHTTPTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.HTTPTimeout = timeout

	tls, err := parseBoolEnv("PUSHER_FORCE_TLS", true)
	if err != nil {
		return Config{}, err
	}
	cfg.PusherTLS = tls

	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	if cfg.APIBaseURL == "" {
		return Config{}, fmt.Errorf("API_BASE_URL is required")
	}
	if cfg.PusherHost == "" && cfg.PusherKey != "" {
		cfg.PusherHost = fmt.Sprintf("ws-%s.pusher.com", cfg.PusherCluster)
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "yes", "y", "on":
		return true, nil
	case "0", "f", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s boolean: %q", key, raw)
	}
}
