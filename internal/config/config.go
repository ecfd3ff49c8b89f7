package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"calendar-cache/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Store     StoreConfig     `mapstructure:"store"`
	Scraper   ScraperConfig   `mapstructure:"scraper"`
	Transform TransformConfig `mapstructure:"transform"`
	Service   ServiceConfig   `mapstructure:"service"`
	Server    ServerConfig    `mapstructure:"server"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// StoreConfig selects and configures the key-value backend.
type StoreConfig struct {
	Driver     string           `mapstructure:"driver"`
	KeyPrefix  string           `mapstructure:"key_prefix"`
	Filesystem FilesystemConfig `mapstructure:"filesystem"`
	Postgres   DatabaseConfig   `mapstructure:"postgres"`
	SQLite     SQLiteConfig     `mapstructure:"sqlite"`
	Redis      RedisConfig      `mapstructure:"redis"`
}

// FilesystemConfig roots the file-per-key backend.
type FilesystemConfig struct {
	Root string `mapstructure:"root"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	EnsureSchema    bool          `mapstructure:"ensure_schema"`
}

// SQLiteConfig points at the local database file.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// RedisConfig covers the Redis backend.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Username     string        `mapstructure:"username"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// ScraperConfig governs how a single day is fetched from the upstream site.
type ScraperConfig struct {
	Driver         string        `mapstructure:"driver"`
	BaseURL        string        `mapstructure:"base_url"`
	UserAgent      string        `mapstructure:"user_agent"`
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	BackoffBase    time.Duration `mapstructure:"backoff_base"`
	BackoffMax     time.Duration `mapstructure:"backoff_max"`
	FixturePath    string        `mapstructure:"fixture_path"`
	Browser        BrowserConfig `mapstructure:"browser"`
}

// BrowserConfig tunes the headless browser driver.
type BrowserConfig struct {
	ExecPath     string `mapstructure:"exec_path"`
	Headless     bool   `mapstructure:"headless"`
	WaitSelector string `mapstructure:"wait_selector"`
	Width        int    `mapstructure:"width"`
	Height       int    `mapstructure:"height"`
}

// TransformConfig selects the derived-representation rewriter.
type TransformConfig struct {
	Driver    string        `mapstructure:"driver"`
	RemoteURL string        `mapstructure:"remote_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// ServiceConfig bounds range queries.
type ServiceConfig struct {
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	FetchTimeout   time.Duration `mapstructure:"fetch_timeout"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	MaxRangeDays   int           `mapstructure:"max_range_days"`
	HorizonDays    int           `mapstructure:"horizon_days"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Listen          string        `mapstructure:"listen"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// AlertingConfig defines digest routing.
type AlertingConfig struct {
	MinImpact string         `mapstructure:"min_impact"`
	Telegram  TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes the Telegram bot used for digests.
type TelegramConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	BotToken string        `mapstructure:"bot_token"`
	ChatID   string        `mapstructure:"chat_id"`
	APIBase  string        `mapstructure:"api_base"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	ChartWidth  int `mapstructure:"chart_width"`
	ChartHeight int `mapstructure:"chart_height"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CALCACHE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "calcache")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.key_prefix", "forex:events")
	v.SetDefault("store.filesystem.root", "data/cache")
	v.SetDefault("store.postgres.max_open_conns", 10)
	v.SetDefault("store.postgres.max_idle_conns", 2)
	v.SetDefault("store.postgres.conn_max_lifetime", "30m")
	v.SetDefault("store.postgres.ensure_schema", true)
	v.SetDefault("store.sqlite.path", "data/calcache.db")
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.dial_timeout", "5s")
	v.SetDefault("store.redis.read_timeout", "5s")
	v.SetDefault("store.redis.write_timeout", "5s")

	v.SetDefault("scraper.driver", "http")
	v.SetDefault("scraper.base_url", "https://www.forexfactory.com/calendar")
	v.SetDefault("scraper.user_agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36")
	v.SetDefault("scraper.attempt_timeout", "30s")
	v.SetDefault("scraper.max_retries", 2)
	v.SetDefault("scraper.backoff_base", "2s")
	v.SetDefault("scraper.backoff_max", "15s")
	v.SetDefault("scraper.browser.headless", true)
	v.SetDefault("scraper.browser.wait_selector", "body")
	v.SetDefault("scraper.browser.width", 1920)
	v.SetDefault("scraper.browser.height", 1080)

	v.SetDefault("transform.driver", "dictionary")
	v.SetDefault("transform.timeout", "10s")

	v.SetDefault("service.request_timeout", "3m")
	v.SetDefault("service.fetch_timeout", "2m")
	v.SetDefault("service.max_concurrency", 4)
	v.SetDefault("service.max_range_days", 30)
	v.SetDefault("service.horizon_days", 365)

	v.SetDefault("server.listen", ":8000")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "5m")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("alerting.min_impact", "High")
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")
	v.SetDefault("alerting.telegram.timeout", "10s")

	v.SetDefault("export.chart_width", 1280)
	v.SetDefault("export.chart_height", 720)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	switch c.Store.Driver {
	case "memory", "filesystem", "postgres", "sqlite", "redis":
	default:
		return fmt.Errorf("store.driver %q is not supported", c.Store.Driver)
	}
	if c.Store.KeyPrefix == "" {
		return fmt.Errorf("store.key_prefix must not be empty")
	}
	if c.Store.Driver == "postgres" && c.Store.Postgres.DSN == "" {
		return fmt.Errorf("store.postgres.dsn is required for the postgres driver")
	}

	switch c.Scraper.Driver {
	case "http", "browser":
	case "fixture":
		if c.Scraper.FixturePath == "" {
			return fmt.Errorf("scraper.fixture_path is required for the fixture driver")
		}
	default:
		return fmt.Errorf("scraper.driver %q is not supported", c.Scraper.Driver)
	}
	if c.Scraper.MaxRetries < 0 {
		return fmt.Errorf("scraper.max_retries cannot be negative")
	}
	if c.Scraper.AttemptTimeout <= 0 {
		return fmt.Errorf("scraper.attempt_timeout must be greater than zero")
	}

	switch c.Transform.Driver {
	case "dictionary", "none":
	case "remote":
		if c.Transform.RemoteURL == "" {
			return fmt.Errorf("transform.remote_url is required for the remote driver")
		}
	default:
		return fmt.Errorf("transform.driver %q is not supported", c.Transform.Driver)
	}

	if c.Service.MaxConcurrency <= 0 {
		return fmt.Errorf("service.max_concurrency must be greater than zero")
	}
	if c.Service.MaxRangeDays < 0 || c.Service.HorizonDays < 0 {
		return fmt.Errorf("service range limits cannot be negative")
	}

	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token is required")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id is required")
		}
	}
	return nil
}
