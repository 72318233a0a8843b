package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "catalog-sync", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "FREE", cfg.Supplier.Tier)

	assert.Equal(t, 0.30, cfg.Sync.DefaultMargin)
	assert.Equal(t, 0.8, cfg.Sync.SimilarityThreshold)
	assert.Equal(t, 0.01, cfg.Sync.PriceTolerance)
	assert.Equal(t, 2500*time.Millisecond, cfg.Sync.FastAckTimeout)
	assert.Equal(t, 3, cfg.Sync.StockRetryAttempts)
	assert.Equal(t, 2*time.Second, cfg.Sync.StockRetryStep)

	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 5*time.Minute, cfg.Cache.SearchTTL)
	assert.Equal(t, 15*time.Minute, cfg.Cache.DetailsTTL)
	assert.Equal(t, 2*time.Minute, cfg.Cache.StockTTL)
	assert.Equal(t, 60*time.Minute, cfg.Cache.CategoryTTL)
	assert.False(t, cfg.Telemetry.LogsEnabled)
	assert.False(t, cfg.Swagger.Enabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CATSYNC_APP_PORT", "9000")
	t.Setenv("CATSYNC_SUPPLIER_TIER", "PRIME")
	t.Setenv("CATSYNC_SYNC_SIMILARITY_THRESHOLD", "0.9")
	t.Setenv("CATSYNC_CACHE_BACKEND", "redis")
	t.Setenv("CATSYNC_SYNC_FAST_ACK_TIMEOUT", "1s")
	t.Setenv("CATSYNC_TELEMETRY_LOGS_ENABLED", "true")
	t.Setenv("CATSYNC_SWAGGER_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.App.Port)
	assert.Equal(t, "PRIME", cfg.Supplier.Tier)
	assert.Equal(t, 0.9, cfg.Sync.SimilarityThreshold)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, time.Second, cfg.Sync.FastAckTimeout)
	assert.True(t, cfg.Telemetry.LogsEnabled)
	assert.True(t, cfg.Swagger.Enabled)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		applyDefaults(cfg)
		return cfg
	}

	t.Run("defaults are valid", func(t *testing.T) {
		assert.NoError(t, valid().validate())
	})

	t.Run("threshold must be a ratio", func(t *testing.T) {
		cfg := valid()
		cfg.Sync.SimilarityThreshold = 1.5
		assert.Error(t, cfg.validate())
	})

	t.Run("unknown cache backend", func(t *testing.T) {
		cfg := valid()
		cfg.Cache.Backend = "memcached"
		assert.Error(t, cfg.validate())
	})

	t.Run("webhook url must be https", func(t *testing.T) {
		cfg := valid()
		cfg.Supplier.WebhookURL = "http://example.com/hook"
		assert.Error(t, cfg.validate())
	})

	t.Run("production needs credentials", func(t *testing.T) {
		cfg := valid()
		cfg.App.Env = "production"
		cfg.Database.Password = "secret"
		cfg.Database.SSLMode = "require"
		assert.Error(t, cfg.validate())

		cfg.Supplier.BaseURL = "https://api.example.com"
		cfg.Supplier.APIKey = "key"
		assert.NoError(t, cfg.validate())

		cfg.Swagger.Enabled = true
		assert.Error(t, cfg.validate())

		cfg.Swagger.AllowedIPs = []string{"10.0.0.0/8"}
		assert.NoError(t, cfg.validate())
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p@ss", DBName: "catalogsync", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p%40ss@db:5432/catalogsync?sslmode=disable", d.DSN())
}
