package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Common errors
var (
	ErrMissingDatabaseURL = errors.New("DATABASE_URL environment variable is required")
	ErrInvalidCapacity    = errors.New("SLOT_CAPACITY must be a positive integer")
	ErrInvalidPort        = errors.New("PORT must be numeric")
)

// DefaultAllowedOrigins are accepted for credentialed CORS requests when
// ALLOWED_ORIGINS is not set.
var DefaultAllowedOrigins = []string{
	"http://localhost:5173",
	"http://localhost:5174",
}

// Config holds runtime configuration for the server and CLIs.
type Config struct {
	Env  string
	Port string

	DatabaseURL string

	// Map data
	GeoJSONPath      string
	RegionColorsPath string

	// Slot allocation
	SlotCapacity int

	// Optional collaborators. Empty values disable them.
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	CacheTTL         time.Duration
	GoogleMapsAPIKey string
	GeocodeRPS       float64

	AllowedOrigins []string
	RequestsPerMin int
	// Proxies whose X-Forwarded-For is believed by the rate limiter.
	TrustedProxies []string

	// First admin account, created at startup when no admin exists.
	AdminUsername string
	AdminPassword string
}

// LoadFromEnv loads configuration from environment variables.
//
// Environment variables:
//   - ENV: "production" or anything else for development (default: "development")
//   - PORT: HTTP port (default: 5050)
//   - DATABASE_URL: Postgres DSN (required by the server)
//   - GEOJSON_PATH: combined FeatureCollection (default: ./assets/combined.geojson)
//   - REGION_COLORS_PATH: YAML override for the region colour table (default: embedded table)
//   - SLOT_CAPACITY: concurrent providers per location and service (default: 2)
//   - REDIS_ADDR, REDIS_PASSWORD, REDIS_DB, CACHE_TTL: map cache (disabled without REDIS_ADDR)
//   - GOOGLE_MAPS_API_KEY, GEOCODE_RPS: geocoding of client addresses (disabled without key)
//   - ALLOWED_ORIGINS: comma separated CORS allow-list
//   - MAX_REQUESTS_PER_MIN: per-IP rate limit (default: 200)
//   - TRUSTED_PROXIES: comma separated IPs or CIDRs of reverse proxies (default: none)
//   - ADMIN_USERNAME, ADMIN_PASSWORD: bootstrap admin account (optional)
func LoadFromEnv() Config {
	cfg := Config{
		Env:              envOr("ENV", "development"),
		Port:             envOr("PORT", "5050"),
		DatabaseURL:      strings.TrimSpace(os.Getenv("DATABASE_URL")),
		GeoJSONPath:      envOr("GEOJSON_PATH", "./assets/combined.geojson"),
		RegionColorsPath: strings.TrimSpace(os.Getenv("REGION_COLORS_PATH")),
		SlotCapacity:     envInt("SLOT_CAPACITY", 2),
		RedisAddr:        strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          envInt("REDIS_DB", 0),
		CacheTTL:         envDuration("CACHE_TTL", 10*time.Minute),
		GoogleMapsAPIKey: strings.TrimSpace(os.Getenv("GOOGLE_MAPS_API_KEY")),
		GeocodeRPS:       envFloat("GEOCODE_RPS", 5),
		AllowedOrigins:   DefaultAllowedOrigins,
		RequestsPerMin:   envInt("MAX_REQUESTS_PER_MIN", 200),
		AdminUsername:    strings.TrimSpace(os.Getenv("ADMIN_USERNAME")),
		AdminPassword:    os.Getenv("ADMIN_PASSWORD"),
	}

	if origins := envList("ALLOWED_ORIGINS"); len(origins) > 0 {
		cfg.AllowedOrigins = origins
	}
	cfg.TrustedProxies = envList("TRUSTED_PROXIES")

	return cfg
}

// Validate checks the settings the server cannot start without.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return ErrMissingDatabaseURL
	}
	if c.SlotCapacity < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidCapacity, c.SlotCapacity)
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidPort, c.Port)
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// envInt returns def for unset values. Unparseable values become 0 so that
// Validate can reject them instead of silently using the default.
func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return def
	}
	return f
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
