package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.Driver != "memory" || cfg.Store.KeyPrefix != "forex:events" {
		t.Fatalf("unexpected store defaults %+v", cfg.Store)
	}
	if cfg.Scraper.MaxRetries != 2 || cfg.Scraper.BackoffBase != 2*time.Second {
		t.Fatalf("unexpected scraper defaults %+v", cfg.Scraper)
	}
	if cfg.Service.MaxRangeDays != 30 || cfg.Service.HorizonDays != 365 {
		t.Fatalf("unexpected service defaults %+v", cfg.Service)
	}
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "*" {
		t.Fatalf("unexpected cors default %v", cfg.Server.CORSOrigins)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	doc := `
store:
  driver: redis
  redis:
    addr: cache:6379
scraper:
  attempt_timeout: 45s
service:
  max_concurrency: 8
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CALCACHE_SERVICE_MAX_RANGE_DAYS", "14")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.Driver != "redis" || cfg.Store.Redis.Addr != "cache:6379" {
		t.Fatalf("file values not applied: %+v", cfg.Store)
	}
	if cfg.Scraper.AttemptTimeout != 45*time.Second || cfg.Service.MaxConcurrency != 8 {
		t.Fatalf("file values not applied: %+v %+v", cfg.Scraper, cfg.Service)
	}
	if cfg.Service.MaxRangeDays != 14 {
		t.Fatalf("env override not applied: %d", cfg.Service.MaxRangeDays)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Store:     StoreConfig{Driver: "memory", KeyPrefix: "forex:events"},
			Scraper:   ScraperConfig{Driver: "http", AttemptTimeout: time.Second},
			Transform: TransformConfig{Driver: "dictionary"},
			Service:   ServiceConfig{MaxConcurrency: 1},
		}
	}
	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := map[string]func(*Config){
		"log level":          func(c *Config) { c.Logging.Level = "loud" },
		"store driver":       func(c *Config) { c.Store.Driver = "etcd" },
		"postgres dsn":       func(c *Config) { c.Store.Driver = "postgres" },
		"fixture path":       func(c *Config) { c.Scraper.Driver = "fixture" },
		"remote url":         func(c *Config) { c.Transform.Driver = "remote" },
		"concurrency":        func(c *Config) { c.Service.MaxConcurrency = 0 },
		"telegram bot token": func(c *Config) { c.Alerting.Telegram.Enabled = true },
	}
	for name, mutate := range cases {
		cfg := valid()
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}
