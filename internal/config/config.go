package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Store backends understood by repository.New.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds everything the server reads from the environment.
type Config struct {
	HTTPAddr      string
	LogLevel      slog.Level
	StoreBackend  string
	RedisAddr     string
	SQLitePath    string
	SessionTTL    time.Duration
	BotThinkDelay time.Duration
	TokenSecret   string
	OTLPEndpoint  string
	StaticDir     string
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		HTTPAddr:     valueOr(getenv("HTTP_ADDR"), ":8080"),
		StoreBackend: strings.ToLower(valueOr(getenv("STORE_BACKEND"), BackendMemory)),
		RedisAddr:    valueOr(getenv("REDIS_CONNSTRING"), "localhost:6379"),
		SQLitePath:   valueOr(getenv("SQLITE_PATH"), "./sessions.db"),
		TokenSecret:  getenv("TOKEN_SECRET"),
		OTLPEndpoint: getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		StaticDir:    getenv("STATIC_DIR"),
	}

	level, err := ParseLevel(valueOr(getenv("LOG_LEVEL"), "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	if cfg.SessionTTL, err = durationOr(getenv, "SESSION_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.BotThinkDelay, err = durationOr(getenv, "BOT_THINK_DELAY", 500*time.Millisecond); err != nil {
		return nil, err
	}

	switch cfg.StoreBackend {
	case BackendMemory, BackendRedis, BackendSQLite:
	default:
		return nil, fmt.Errorf("%w: STORE_BACKEND %q", ErrInvalidConfig, cfg.StoreBackend)
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("%w: SESSION_TTL must be positive", ErrInvalidConfig)
	}
	if cfg.BotThinkDelay < 0 {
		return nil, fmt.Errorf("%w: BOT_THINK_DELAY must not be negative", ErrInvalidConfig)
	}
	return cfg, nil
}

// ParseLevel maps debug, info, warn and error onto slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("%w: LOG_LEVEL %q", ErrInvalidConfig, s)
	}
	return level, nil
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func durationOr(getenv func(string) string, key string, fallback time.Duration) (time.Duration, error) {
	v := getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q", ErrInvalidConfig, key, v)
	}
	return d, nil
}
