package config

import (
	"os"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Upstream   UpstreamConfig   `yaml:"upstream"`
	CEP        CEPConfig        `yaml:"cep"`
	Cache      CacheConfig      `yaml:"cache"`
	Locations  LocationsConfig  `yaml:"locations"`
	Share      ShareConfig      `yaml:"share"`
	Card       CardConfig       `yaml:"card"`
	Database   DatabaseConfig   `yaml:"database"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Log        LogConfig        `yaml:"log"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Enabled reports whether both VAPID keys are present.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
	// Booking attempts are limited separately since each one checks an
	// identity document.
	BookingRateLimitPerMin float64 `yaml:"booking_rate_limit_per_min"`
	BookingRateLimitBurst  int     `yaml:"booking_rate_limit_burst"`
}

// UpstreamConfig describes the remote donation API.
type UpstreamConfig struct {
	BaseURL        string            `yaml:"base_url"`
	Headers        map[string]string `yaml:"headers"`
	HTTPProxy      string            `yaml:"http_proxy"`
	TimeoutSeconds int               `yaml:"timeout_seconds"` // 0 disables the client timeout
	Timeout        time.Duration     `yaml:"-"`
}

// CEPConfig describes the postal-code lookup service.
type CEPConfig struct {
	BaseURL string `yaml:"base_url"`
}

// CacheConfig controls how long fetched data is considered fresh.
type CacheConfig struct {
	ReferenceTTLSeconds    int           `yaml:"reference_ttl_seconds"`
	DonorTTLSeconds        int           `yaml:"donor_ttl_seconds"`
	RefreshIntervalSeconds int           `yaml:"refresh_interval_seconds"` // 0 disables background warming
	ReferenceTTL           time.Duration `yaml:"-"`
	DonorTTL               time.Duration `yaml:"-"`
	RefreshInterval        time.Duration `yaml:"-"`
}

// LocationsConfig holds the maintenance view settings.
type LocationsConfig struct {
	PageSize int `yaml:"page_size"`
}

// ShareConfig holds the messaging deep link target.
type ShareConfig struct {
	BaseURL string `yaml:"base_url"`
}

// CardConfig controls how confirmation times are displayed.
type CardConfig struct {
	TimeZone string         `yaml:"time_zone"`
	Zone     *time.Location `yaml:"-"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // postgres or sqlite
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// LogConfig selects the log level and output format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// Load reads the configuration from the given path. Values from a .env file and
// the process environment take precedence over the file.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("could not read .env file")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("HEMAGENDA_UPSTREAM_URL"); v != "" {
		cfg.Upstream.BaseURL = v
	}
	if v := os.Getenv("HEMAGENDA_DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("HEMAGENDA_VAPID_PUBLIC_KEY"); v != "" {
		cfg.Push.PublicKey = v
	}
	if v := os.Getenv("HEMAGENDA_VAPID_PRIVATE_KEY"); v != "" {
		cfg.Push.PrivateKey = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 300
	}
	if cfg.Server.BookingRateLimitPerMin <= 0 {
		cfg.Server.BookingRateLimitPerMin = 6
	}
	if cfg.Server.BookingRateLimitBurst <= 0 {
		cfg.Server.BookingRateLimitBurst = 3
	}

	if cfg.Upstream.BaseURL == "" {
		cfg.Upstream.BaseURL = "http://localhost:3333"
	}
	if cfg.Upstream.TimeoutSeconds > 0 {
		cfg.Upstream.Timeout = time.Duration(cfg.Upstream.TimeoutSeconds) * time.Second
	}

	if cfg.CEP.BaseURL == "" {
		cfg.CEP.BaseURL = "https://viacep.com.br"
	}

	if cfg.Cache.ReferenceTTLSeconds <= 0 {
		cfg.Cache.ReferenceTTLSeconds = 3600
	}
	cfg.Cache.ReferenceTTL = time.Duration(cfg.Cache.ReferenceTTLSeconds) * time.Second
	if cfg.Cache.DonorTTLSeconds <= 0 {
		cfg.Cache.DonorTTLSeconds = 60
	}
	cfg.Cache.DonorTTL = time.Duration(cfg.Cache.DonorTTLSeconds) * time.Second
	if cfg.Cache.RefreshIntervalSeconds > 0 {
		cfg.Cache.RefreshInterval = time.Duration(cfg.Cache.RefreshIntervalSeconds) * time.Second
	}

	if cfg.Locations.PageSize <= 0 {
		cfg.Locations.PageSize = 6
	}

	if cfg.Share.BaseURL == "" {
		cfg.Share.BaseURL = "https://wa.me/"
	}

	if cfg.Card.TimeZone == "" {
		cfg.Card.TimeZone = "America/Sao_Paulo"
	}
	zone, err := time.LoadLocation(cfg.Card.TimeZone)
	if err != nil {
		log.Warn().Err(err).Str("time_zone", cfg.Card.TimeZone).Msg("unknown card.time_zone; using UTC")
		zone = time.UTC
	}
	cfg.Card.Zone = zone

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Info().Msg("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}
