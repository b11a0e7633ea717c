package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the Privacy Sentry service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	// GatewayMode selects the chat transport: auto|telegram|webchat|mock.
	GatewayMode string
	BotToken    string
	TelegramAPI string
	PollTimeout time.Duration

	// WarningTTL is how long the "workflow already active" warning stays
	// on screen before its deferred self-delete fires.
	WarningTTL time.Duration

	// OutputDir is where rendered documents land before delivery.
	OutputDir string

	// DatabaseURL enables the postgres-backed generation audit log.
	// Empty means in-memory.
	DatabaseURL string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "sentry"),
		GatewayMode:      envOrDefault("GATEWAY_MODE", "auto"),
		BotToken:         trimmedEnv("BOT_TOKEN"),
		TelegramAPI:      envOrDefault("TELEGRAM_API_URL", "https://api.telegram.org"),
		OutputDir:        envOrDefault("OUTPUT_DIR", os.TempDir()),
		DatabaseURL:      trimmedEnv("DATABASE_URL"),
		ShutdownTimeout:  15 * time.Second,
		PollTimeout:      30 * time.Second,
		WarningTTL:       5 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.PollTimeout, err = durationFromEnv("POLL_TIMEOUT", cfg.PollTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.WarningTTL, err = durationFromEnv("WARNING_TTL", cfg.WarningTTL)
	if err != nil {
		return Config{}, err
	}

	mode := strings.ToLower(strings.TrimSpace(cfg.GatewayMode))
	switch mode {
	case "auto", "telegram", "webchat", "mock":
		cfg.GatewayMode = mode
	default:
		return Config{}, fmt.Errorf("invalid GATEWAY_MODE: %q (expected auto|telegram|webchat|mock)", cfg.GatewayMode)
	}
	if mode == "telegram" && cfg.BotToken == "" {
		return Config{}, fmt.Errorf("GATEWAY_MODE=telegram requires BOT_TOKEN")
	}
	if cfg.WarningTTL <= 0 {
		return Config{}, fmt.Errorf("WARNING_TTL must be positive")
	}
	if cfg.PollTimeout < time.Second {
		return Config{}, fmt.Errorf("POLL_TIMEOUT must be at least 1s")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		// Accept bare integers as seconds for operator convenience.
		if n, convErr := strconv.Atoi(v); convErr == nil {
			return time.Duration(n) * time.Second, nil
		}
		return 0, fmt.Errorf("invalid duration for %s: %q", key, v)
	}
	return d, nil
}
