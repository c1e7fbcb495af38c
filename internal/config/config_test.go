package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORAGE", "memory")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, TransportLog, cfg.NotifyTransport)
	assert.Equal(t, 4, cfg.NotifyWorkers)
	assert.Equal(t, 256, cfg.NotifyQueueSize)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.False(t, cfg.IsProduction())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("DB_DSN", "postgres://mentorbook@localhost/mentorbook")
	t.Setenv("NOTIFY_TRANSPORT", "redis")
	t.Setenv("NOTIFY_WORKERS", "8")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, StoragePostgres, cfg.Storage)
	assert.Equal(t, "postgres://mentorbook@localhost/mentorbook", cfg.DBDSN)
	assert.Equal(t, 8, cfg.NotifyWorkers)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"postgres without dsn", map[string]string{}, "DB_DSN is required"},
		{"unknown storage", map[string]string{"STORAGE": "mongo"}, "unknown STORAGE"},
		{"telegram without token", map[string]string{"STORAGE": "memory", "NOTIFY_TRANSPORT": "telegram"}, "TELEGRAM_TOKEN"},
		{"unknown transport", map[string]string{"STORAGE": "memory", "NOTIFY_TRANSPORT": "pigeon"}, "unknown NOTIFY_TRANSPORT"},
		{"no workers", map[string]string{"STORAGE": "memory", "NOTIFY_WORKERS": "0"}, "NOTIFY_WORKERS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
