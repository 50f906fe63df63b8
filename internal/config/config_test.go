package config

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "PROMETHEUS_PORT", "LOG_LEVEL", "LOG_FORMAT", "STORAGE_DRIVER", "DATABASE_URL",
		"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "SESSION_TTL", "COOKIE_SECURE",
		"CORS_ALLOWED_ORIGINS", "KAFKA_BROKERS", "KAFKA_TOPIC", "TELEGRAM_TOKEN", "TELEGRAM_CHAT_ID",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORAGE_DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "9090", cfg.PrometheusPort)
	assert.Equal(t, StorageMemory, cfg.StorageDriver)
	assert.Equal(t, 168*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "menurater.events", cfg.KafkaTopic)
	assert.False(t, cfg.CookieSecure)
	assert.False(t, cfg.TelegramEnabled())
	assert.True(t, cfg.MetricsEnabled())
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/menurater")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("TELEGRAM_TOKEN", "token")
	t.Setenv("TELEGRAM_CHAT_ID", "-1001")
	t.Setenv("PROMETHEUS_PORT", "0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, []string{"https://a.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.True(t, cfg.CookieSecure)
	assert.True(t, cfg.TelegramEnabled())
	assert.Equal(t, int64(-1001), cfg.TelegramChatID)
	assert.False(t, cfg.MetricsEnabled())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"postgres without url", map[string]string{"STORAGE_DRIVER": "postgres", "DATABASE_URL": ""}},
		{"unknown driver", map[string]string{"STORAGE_DRIVER": "mysql"}},
		{"bad ttl", map[string]string{"STORAGE_DRIVER": "memory", "SESSION_TTL": "forever"}},
		{"bad redis db", map[string]string{"STORAGE_DRIVER": "memory", "REDIS_DB": "one"}},
		{"bad chat id", map[string]string{"STORAGE_DRIVER": "memory", "TELEGRAM_CHAT_ID": "chat"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestNewRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	client, err := NewRedis(context.Background(), &Config{RedisAddr: mr.Addr()}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	_, err = NewRedis(context.Background(), &Config{RedisAddr: "127.0.0.1:1"}, logger)
	assert.Error(t, err)
}
