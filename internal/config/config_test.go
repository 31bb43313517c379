package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.TelegramBotToken)
	assert.Equal(t, "data/users.db", cfg.DatabasePath)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Zero(t, cfg.SpaceWeatherCacheTTL)
	assert.Equal(t, "* * * * *", cfg.NotifySchedule)
	assert.Equal(t, 8, cfg.MaxConcurrentDeliveries)
	assert.Equal(t, "08:00", cfg.DefaultNotificationTime)
	assert.Contains(t, cfg.OpenMeteoURL, "open-meteo.com")
	assert.Contains(t, cfg.NOAAKpURL, "k-index")
	assert.Contains(t, cfg.NOAAPlasmaURL, "plasma")
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("DATABASE_PATH", "/tmp/ache.db")
	t.Setenv("HTTP_TIMEOUT", "3s")
	t.Setenv("MAX_CONCURRENT_DELIVERIES", "2")
	t.Setenv("DEFAULT_NOTIFICATION_TIME", "07:30")
	t.Setenv("HTTP_ADDR", ":8080")
	t.Setenv("SPACE_WEATHER_CACHE_TTL", "15m")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/ache.db", cfg.DatabasePath)
	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 2, cfg.MaxConcurrentDeliveries)
	assert.Equal(t, "07:30", cfg.DefaultNotificationTime)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 15*time.Minute, cfg.SpaceWeatherCacheTTL)
}

func TestFromEnvInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"empty token", map[string]string{"TELEGRAM_BOT_TOKEN": ""}},
		{"bad notification time", map[string]string{"DEFAULT_NOTIFICATION_TIME": "25:00"}},
		{"no delivery workers", map[string]string{"MAX_CONCURRENT_DELIVERIES": "0"}},
		{"bad source url", map[string]string{"OPEN_METEO_URL": "not a url"}},
		{"bad timeout", map[string]string{"HTTP_TIMEOUT": "soon"}},
		{"negative cache ttl", map[string]string{"SPACE_WEATHER_CACHE_TTL": "-1m"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}
