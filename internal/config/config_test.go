package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"ENV", "PORT", "GEOJSON_PATH", "SLOT_CAPACITY", "REDIS_ADDR", "CACHE_TTL", "ALLOWED_ORIGINS", "GOOGLE_MAPS_API_KEY", "TRUSTED_PROXIES"} {
		t.Setenv(k, "")
	}
	t.Setenv("DATABASE_URL", "postgres://localhost/clientmap")

	cfg := LoadFromEnv()

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "5050", cfg.Port)
	assert.Equal(t, 2, cfg.SlotCapacity)
	assert.Equal(t, "./assets/combined.geojson", cfg.GeoJSONPath)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
	assert.Equal(t, DefaultAllowedOrigins, cfg.AllowedOrigins)
	assert.Empty(t, cfg.RedisAddr)
	assert.Empty(t, cfg.TrustedProxies)
	assert.False(t, cfg.IsProduction())
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db/clientmap")
	t.Setenv("ENV", "production")
	t.Setenv("SLOT_CAPACITY", "3")
	t.Setenv("CACHE_TTL", "90s")
	t.Setenv("ALLOWED_ORIGINS", "https://map.example.co.uk, https://dash.example.co.uk ,")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 127.0.0.1")

	cfg := LoadFromEnv()

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 3, cfg.SlotCapacity)
	assert.Equal(t, 90*time.Second, cfg.CacheTTL)
	assert.Equal(t, []string{"https://map.example.co.uk", "https://dash.example.co.uk"}, cfg.AllowedOrigins)
	assert.Equal(t, []string{"10.0.0.0/8", "127.0.0.1"}, cfg.TrustedProxies)
}

func TestValidateRejectsBadSettings(t *testing.T) {
	cfg := Config{Port: "5050", SlotCapacity: 2}
	assert.True(t, errors.Is(cfg.Validate(), ErrMissingDatabaseURL))

	cfg.DatabaseURL = "postgres://db"
	cfg.SlotCapacity = 0
	assert.True(t, errors.Is(cfg.Validate(), ErrInvalidCapacity))

	cfg.SlotCapacity = 2
	cfg.Port = "http"
	assert.True(t, errors.Is(cfg.Validate(), ErrInvalidPort))
}

func TestUnparseableCapacityFailsValidation(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db")
	t.Setenv("PORT", "")
	t.Setenv("SLOT_CAPACITY", "two")

	cfg := LoadFromEnv()

	assert.Equal(t, 0, cfg.SlotCapacity)
	assert.True(t, errors.Is(cfg.Validate(), ErrInvalidCapacity))
}
