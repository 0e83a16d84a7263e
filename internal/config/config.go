// Package config loads and validates extractor configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Transport TransportConfig `mapstructure:"transport"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Parser    ParserConfig    `mapstructure:"parser"`
	Images    ImagesConfig    `mapstructure:"images"`
	Storage   StorageConfig   `mapstructure:"storage"`
	DB        DBConfig        `mapstructure:"db"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                  int `mapstructure:"port"`
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// TransportConfig governs the fetch coordinator.
type TransportConfig struct {
	UserAgent       string  `mapstructure:"user_agent"`
	TimeoutSeconds  int     `mapstructure:"timeout_seconds"`
	CacheTTLSeconds int     `mapstructure:"cache_ttl_seconds"`
	PerHostMax      int     `mapstructure:"per_host_max"`
	PerHostQPS      float64 `mapstructure:"per_host_qps"`
	MaxBodyBytes    int     `mapstructure:"max_body_bytes"`
}

// Timeout returns the per-attempt fetch timeout.
func (c TransportConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CacheTTL returns the response cache lifetime.
func (c TransportConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// CacheConfig selects the response cache backend.
type CacheConfig struct {
	Backend    string      `mapstructure:"backend"` // memory | redis
	MaxEntries int         `mapstructure:"max_entries"`
	Redis      RedisConfig `mapstructure:"redis"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ParserConfig tunes the semantic parser.
type ParserConfig struct {
	MaxImageCandidates int `mapstructure:"max_image_candidates"`
}

// ImagesConfig tunes the image pipeline.
type ImagesConfig struct {
	Concurrency int `mapstructure:"concurrency"`
	MaxImages   int `mapstructure:"max_images"`
	MaxEdge     int `mapstructure:"max_edge"`
	MaxBytes    int `mapstructure:"max_bytes"`
	WebPQuality int `mapstructure:"webp_quality"`
	JPEGQuality int `mapstructure:"jpeg_quality"`
}

// StorageConfig selects the image blob sink.
type StorageConfig struct {
	BlobBackend string `mapstructure:"blob_backend"` // memory | local | gcs
	GCSBucket   string `mapstructure:"gcs_bucket"`
	Prefix      string `mapstructure:"prefix"`
	LocalDir    string `mapstructure:"local_dir"`
}

// DBConfig controls the Postgres record sink.
type DBConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// PubSubConfig holds completion event publishing parameters.
type PubSubConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// LoggingConfig selects logger output and verbosity.
type LoggingConfig struct {
	Format string `mapstructure:"format"` // console | json
	Level  string `mapstructure:"level"`
}

// Load builds a Config from disk and environment. An empty path searches the
// default locations; a missing config file is not an error.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/extractor/")
		v.AddConfigPath("$HOME/.extractor")
	}

	v.SetEnvPrefix("EXTRACTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 60)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("transport.user_agent", "shoplens-extractor/1.0 (+https://github.com/shoplens/extractor)")
	v.SetDefault("transport.timeout_seconds", 10)
	v.SetDefault("transport.cache_ttl_seconds", 180)
	v.SetDefault("transport.per_host_max", 3)
	v.SetDefault("transport.per_host_qps", 0)
	v.SetDefault("transport.max_body_bytes", 10*1024*1024)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.max_entries", 512)
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("parser.max_image_candidates", 32)
	v.SetDefault("images.concurrency", 3)
	v.SetDefault("images.max_images", 8)
	v.SetDefault("images.max_edge", 1600)
	v.SetDefault("images.max_bytes", 10*1024*1024)
	v.SetDefault("images.webp_quality", 80)
	v.SetDefault("images.jpeg_quality", 85)
	v.SetDefault("storage.blob_backend", "memory")
	v.SetDefault("storage.prefix", "images")
	v.SetDefault("db.enabled", false)
	v.SetDefault("db.table", "product_records")
	v.SetDefault("pubsub.enabled", false)
	v.SetDefault("pubsub.topic", "product-records")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Transport.TimeoutSeconds <= 0 {
		return fmt.Errorf("transport.timeout_seconds must be > 0")
	}
	if c.Transport.PerHostMax <= 0 {
		return fmt.Errorf("transport.per_host_max must be > 0")
	}
	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("cache.backend must be memory or redis, got %q", c.Cache.Backend)
	}
	if c.Cache.Backend == "redis" && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("cache.redis.addr must be set for the redis backend")
	}
	if q := c.Images.WebPQuality; q < 1 || q > 100 {
		return fmt.Errorf("images.webp_quality must be in [1,100]")
	}
	if q := c.Images.JPEGQuality; q < 1 || q > 100 {
		return fmt.Errorf("images.jpeg_quality must be in [1,100]")
	}
	switch c.Storage.BlobBackend {
	case "memory", "local", "gcs":
	default:
		return fmt.Errorf("storage.blob_backend must be memory, local or gcs, got %q", c.Storage.BlobBackend)
	}
	if c.Storage.BlobBackend == "gcs" && c.Storage.GCSBucket == "" {
		return fmt.Errorf("storage.gcs_bucket must be set for the gcs backend")
	}
	if c.Storage.BlobBackend == "local" && c.Storage.LocalDir == "" {
		return fmt.Errorf("storage.local_dir must be set for the local backend")
	}
	if c.DB.Enabled && c.DB.DSN == "" {
		return fmt.Errorf("db.dsn must be set when db is enabled")
	}
	if c.PubSub.Enabled && (c.PubSub.ProjectID == "" || c.PubSub.Topic == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic must be set when pubsub is enabled")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	return nil
}
