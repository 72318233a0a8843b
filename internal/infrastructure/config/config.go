package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Supplier  SupplierConfig
	Sync      SyncConfig
	Cache     CacheConfig
	Scheduler SchedulerConfig
	Telemetry TelemetryConfig
	Swagger   SwaggerConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application configuration
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	TrustedProxies   []string
}

// SupplierConfig holds the supplier API account
type SupplierConfig struct {
	ID             string
	BaseURL        string
	Email          string
	APIKey         string
	Tier           string // FREE, PLUS, PRIME, ADVANCED
	Timeout        time.Duration
	TokenSkew      time.Duration
	WebhookURL     string // public https URL registered for push notifications
	DefaultCountry string
}

// SyncConfig holds the synchronization engine tunables
type SyncConfig struct {
	DefaultMargin       float64 // 0.30 prices imports at cost * 1.30
	SimilarityThreshold float64 // fuzzy name match must exceed this
	PriceTolerance      float64 // fuzzy match price window, currency units
	FastAckTimeout      time.Duration
	StockRetryAttempts  int
	StockRetryStep      time.Duration // linear backoff step between stock attempts
	ClaimTTL            time.Duration
}

// CacheConfig holds catalog cache configuration
type CacheConfig struct {
	Backend       string // memory or redis
	KeyPrefix     string
	SearchTTL     time.Duration
	DetailsTTL    time.Duration
	StockTTL      time.Duration
	CategoryTTL   time.Duration
	SweepInterval time.Duration
}

// SchedulerConfig holds background job configuration
type SchedulerConfig struct {
	Enabled             bool
	SourcingInterval    time.Duration
	MappingSyncInterval time.Duration // 0 disables periodic sync-all
	JobTimeout          time.Duration
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // 0.0-1.0
	ServiceName       string
	Insecure          bool // development only
	DBTraceEnabled    bool
	LogsEnabled       bool // also export zap entries over OTLP
	MetricsInterval   time.Duration
}

// SwaggerConfig holds API documentation endpoint configuration
type SwaggerConfig struct {
	Enabled    bool
	AllowedIPs []string // IPs or CIDRs, empty allows all
}

// Load loads configuration from config.toml and CATSYNC_ prefixed environment variables
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/catalogsync")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("CATSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		Supplier: SupplierConfig{
			ID:             v.GetString("supplier.id"),
			BaseURL:        v.GetString("supplier.base_url"),
			Email:          v.GetString("supplier.email"),
			APIKey:         v.GetString("supplier.api_key"),
			Tier:           v.GetString("supplier.tier"),
			Timeout:        v.GetDuration("supplier.timeout"),
			TokenSkew:      v.GetDuration("supplier.token_skew"),
			WebhookURL:     v.GetString("supplier.webhook_url"),
			DefaultCountry: v.GetString("supplier.default_country"),
		},
		Sync: SyncConfig{
			DefaultMargin:       v.GetFloat64("sync.default_margin"),
			SimilarityThreshold: v.GetFloat64("sync.similarity_threshold"),
			PriceTolerance:      v.GetFloat64("sync.price_tolerance"),
			FastAckTimeout:      v.GetDuration("sync.fast_ack_timeout"),
			StockRetryAttempts:  v.GetInt("sync.stock_retry_attempts"),
			StockRetryStep:      v.GetDuration("sync.stock_retry_step"),
			ClaimTTL:            v.GetDuration("sync.claim_ttl"),
		},
		Cache: CacheConfig{
			Backend:       v.GetString("cache.backend"),
			KeyPrefix:     v.GetString("cache.key_prefix"),
			SearchTTL:     v.GetDuration("cache.search_ttl"),
			DetailsTTL:    v.GetDuration("cache.details_ttl"),
			StockTTL:      v.GetDuration("cache.stock_ttl"),
			CategoryTTL:   v.GetDuration("cache.category_ttl"),
			SweepInterval: v.GetDuration("cache.sweep_interval"),
		},
		Scheduler: SchedulerConfig{
			Enabled:             v.GetBool("scheduler.enabled"),
			SourcingInterval:    v.GetDuration("scheduler.sourcing_interval"),
			MappingSyncInterval: v.GetDuration("scheduler.mapping_sync_interval"),
			JobTimeout:          v.GetDuration("scheduler.job_timeout"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
		},
		Swagger: SwaggerConfig{
			Enabled:    v.GetBool("swagger.enabled"),
			AllowedIPs: v.GetStringSlice("swagger.allowed_ips"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for missing configuration
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "catalog-sync"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "catalogsync"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		// sync-all progress streams outlive ordinary requests
		cfg.HTTP.WriteTimeout = 10 * time.Minute
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 2 << 20 // 2MB
	}
	if cfg.Supplier.ID == "" {
		cfg.Supplier.ID = "default"
	}
	if cfg.Supplier.Tier == "" {
		cfg.Supplier.Tier = "FREE"
	}
	if cfg.Supplier.Timeout == 0 {
		cfg.Supplier.Timeout = 30 * time.Second
	}
	if cfg.Supplier.TokenSkew == 0 {
		cfg.Supplier.TokenSkew = 5 * time.Minute
	}
	if cfg.Supplier.DefaultCountry == "" {
		cfg.Supplier.DefaultCountry = "US"
	}
	if cfg.Sync.DefaultMargin == 0 {
		cfg.Sync.DefaultMargin = 0.30
	}
	if cfg.Sync.SimilarityThreshold == 0 {
		cfg.Sync.SimilarityThreshold = 0.8
	}
	if cfg.Sync.PriceTolerance == 0 {
		cfg.Sync.PriceTolerance = 0.01
	}
	if cfg.Sync.FastAckTimeout == 0 {
		cfg.Sync.FastAckTimeout = 2500 * time.Millisecond
	}
	if cfg.Sync.StockRetryAttempts == 0 {
		cfg.Sync.StockRetryAttempts = 3
	}
	if cfg.Sync.StockRetryStep == 0 {
		cfg.Sync.StockRetryStep = 2 * time.Second
	}
	if cfg.Sync.ClaimTTL == 0 {
		cfg.Sync.ClaimTTL = 10 * time.Minute
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "memory"
	}
	if cfg.Cache.KeyPrefix == "" {
		cfg.Cache.KeyPrefix = "catsync:"
	}
	if cfg.Cache.SearchTTL == 0 {
		cfg.Cache.SearchTTL = 5 * time.Minute
	}
	if cfg.Cache.DetailsTTL == 0 {
		cfg.Cache.DetailsTTL = 15 * time.Minute
	}
	if cfg.Cache.StockTTL == 0 {
		cfg.Cache.StockTTL = 2 * time.Minute
	}
	if cfg.Cache.CategoryTTL == 0 {
		cfg.Cache.CategoryTTL = 60 * time.Minute
	}
	if cfg.Cache.SweepInterval == 0 {
		cfg.Cache.SweepInterval = time.Minute
	}
	if cfg.Scheduler.SourcingInterval == 0 {
		cfg.Scheduler.SourcingInterval = 15 * time.Minute
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 30 * time.Minute
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "catalog-sync"
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Sync.SimilarityThreshold <= 0 || c.Sync.SimilarityThreshold >= 1 {
		return fmt.Errorf("sync.similarity_threshold must be between 0 and 1, got %f", c.Sync.SimilarityThreshold)
	}
	if c.Sync.DefaultMargin < 0 {
		return fmt.Errorf("sync.default_margin cannot be negative")
	}
	if c.Sync.StockRetryAttempts < 1 {
		return fmt.Errorf("sync.stock_retry_attempts must be at least 1")
	}
	if c.Cache.Backend != "memory" && c.Cache.Backend != "redis" {
		return fmt.Errorf("cache.backend must be memory or redis, got %q", c.Cache.Backend)
	}
	if c.Supplier.WebhookURL != "" && !strings.HasPrefix(strings.ToLower(c.Supplier.WebhookURL), "https://") {
		return fmt.Errorf("supplier.webhook_url must use https")
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Supplier.BaseURL == "" || c.Supplier.APIKey == "" {
			return fmt.Errorf("supplier.base_url and supplier.api_key are required in production")
		}
		if c.Swagger.Enabled && len(c.Swagger.AllowedIPs) == 0 {
			return fmt.Errorf("swagger.allowed_ips is required when swagger is enabled in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// IsConfigured reports whether supplier credentials are present
func (s *SupplierConfig) IsConfigured() bool {
	return s.BaseURL != "" && s.Email != "" && s.APIKey != ""
}
