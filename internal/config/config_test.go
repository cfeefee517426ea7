package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(envOf(nil))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 500*time.Millisecond, cfg.BotThinkDelay)
	assert.Empty(t, cfg.TokenSecret)
	assert.Empty(t, cfg.OTLPEndpoint)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := load(envOf(map[string]string{
		"HTTP_ADDR":                   ":9090",
		"LOG_LEVEL":                   "DEBUG",
		"STORE_BACKEND":               "SQLite",
		"SQLITE_PATH":                 "/tmp/ttt.db",
		"SESSION_TTL":                 "1h",
		"BOT_THINK_DELAY":             "0s",
		"TOKEN_SECRET":                "s3cret",
		"OTEL_EXPORTER_OTLP_ENDPOINT": "collector:4317",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, BackendSQLite, cfg.StoreBackend)
	assert.Equal(t, "/tmp/ttt.db", cfg.SQLitePath)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.Zero(t, cfg.BotThinkDelay)
	assert.Equal(t, "s3cret", cfg.TokenSecret)
	assert.Equal(t, "collector:4317", cfg.OTLPEndpoint)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown backend", map[string]string{"STORE_BACKEND": "postgres"}},
		{"bad level", map[string]string{"LOG_LEVEL": "loud"}},
		{"bad ttl", map[string]string{"SESSION_TTL": "forever"}},
		{"zero ttl", map[string]string{"SESSION_TTL": "0s"}},
		{"negative delay", map[string]string{"BOT_THINK_DELAY": "-1s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(envOf(tt.env))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}
