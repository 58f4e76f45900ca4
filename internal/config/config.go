package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ant11tna/bililite/pkg/digest"
)

// Config is the root configuration.
type Config struct {
	App      AppConfig       `yaml:"app"`
	Server   ServerConfig    `yaml:"server"`
	Fetch    FetchConfig     `yaml:"fetch"`
	RSSHub   RSSHubConfig    `yaml:"rsshub"`
	Creators []CreatorConfig `yaml:"creators"`
	Push     PushConfig      `yaml:"push"`
}

// AppConfig holds storage and linking settings.
type AppConfig struct {
	DBPath  string `yaml:"db_path"`
	BaseURL string `yaml:"base_url"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// FetchConfig configures the collection loop.
type FetchConfig struct {
	Source           string `yaml:"source"` // "stub" or "rsshub"
	PerCreatorLimit  int    `yaml:"per_creator_limit"`
	Interval         string `yaml:"interval"`
	PoliteSleepMinMS int    `yaml:"polite_sleep_min_ms"`
	PoliteSleepMaxMS int    `yaml:"polite_sleep_max_ms"`
}

// ParseInterval returns the fetch interval as time.Duration.
func (f FetchConfig) ParseInterval() time.Duration {
	d, err := time.ParseDuration(f.Interval)
	if err != nil {
		return time.Hour
	}
	return d
}

// RSSHubConfig points at an RSSHub instance for the rsshub source.
type RSSHubConfig struct {
	BaseURL       string `yaml:"base_url"`
	RouteTemplate string `yaml:"route_template"`
}

// CreatorConfig is one tracked creator as declared in the config file.
type CreatorConfig struct {
	UID      int64  `yaml:"uid"`
	Name     string `yaml:"name"`
	Group    string `yaml:"group"`
	Priority int    `yaml:"priority"`
	Weight   int    `yaml:"weight"`
	Enabled  *bool  `yaml:"enabled"` // nil means enabled
}

// IsEnabled treats an unset enabled flag as true.
func (c CreatorConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// PushConfig configures the daily-digest push.
type PushConfig struct {
	Enabled    bool                  `yaml:"enabled"`
	Provider   string                `yaml:"provider"`
	PushAt     string                `yaml:"push_at"` // local "HH:MM"
	ServerChan ServerChanConfig      `yaml:"serverchan"`
	Webhook    WebhookConfig         `yaml:"webhook"`
	Daily      DailyConfig           `yaml:"daily"`
	Throttle   digest.ThrottleConfig `yaml:"throttle"`
}

// ServerChanConfig for the serverchan push channel.
type ServerChanConfig struct {
	SendKey string `yaml:"sendkey"`
}

// WebhookConfig for the generic webhook push channel.
type WebhookConfig struct {
	URL    string `yaml:"url"`
	Secret string `yaml:"secret"`
}

// DailyConfig tunes the digest selection.
type DailyConfig struct {
	Group    string `yaml:"group"`
	Hours    int    `yaml:"hours"`
	Limit    int    `yaml:"limit"`
	Sample   int    `yaml:"sample"`
	MaxItems int    `yaml:"max_items"`
	Seed     *int64 `yaml:"seed"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		App: AppConfig{
			DBPath:  "data/app.db",
			BaseURL: "http://127.0.0.1:9000",
		},
		Server: ServerConfig{Port: 9000},
		Fetch: FetchConfig{
			Source:           "stub",
			PerCreatorLimit:  10,
			Interval:         "1h",
			PoliteSleepMinMS: 500,
			PoliteSleepMaxMS: 1500,
		},
		RSSHub: RSSHubConfig{
			BaseURL:       "https://rsshub.app",
			RouteTemplate: "/bilibili/user/video/{uid}",
		},
		Push: PushConfig{
			Provider: "serverchan",
			PushAt:   "08:30",
			Daily: DailyConfig{
				Group:  "必看",
				Hours:  24,
				Limit:  50,
				Sample: 5,
			},
		},
	}
}

// Load reads configuration from a YAML file, applies env var overrides, and
// clamps digest/throttle numerics to their non-negative domain.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	cfg.normalize()
	return cfg, nil
}

// normalize clamps negative knobs to their disabling value 0 and floors
// creator weights at 1 so a bad config never rejects, only disables.
func (c *Config) normalize() {
	if c.Push.Daily.Hours <= 0 {
		c.Push.Daily.Hours = 24
	}
	if c.Push.Daily.Limit < 0 {
		c.Push.Daily.Limit = 0
	}
	if c.Push.Daily.Sample < 0 {
		c.Push.Daily.Sample = 0
	}
	if c.Push.Daily.MaxItems < 0 {
		c.Push.Daily.MaxItems = 0
	}
	if c.Push.Throttle.CreatorCooldownHours < 0 {
		c.Push.Throttle.CreatorCooldownHours = 0
	}
	if c.Push.Throttle.MinView < 0 {
		c.Push.Throttle.MinView = 0
	}
	if c.Push.Throttle.TnameMaxPerPush < 0 {
		c.Push.Throttle.TnameMaxPerPush = 0
	}
	for i := range c.Creators {
		if c.Creators[i].Weight < 1 {
			c.Creators[i].Weight = 1
		}
		if c.Creators[i].Priority > 0 {
			c.Creators[i].Priority = 1
		} else if c.Creators[i].Priority < 0 {
			c.Creators[i].Priority = 0
		}
	}
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BILILITE_DB_PATH"); v != "" {
		cfg.App.DBPath = v
	}
	if v := os.Getenv("BILILITE_BASE_URL"); v != "" {
		cfg.App.BaseURL = v
	}
	if v := os.Getenv("BILILITE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("BILILITE_RSSHUB_BASE_URL"); v != "" {
		cfg.RSSHub.BaseURL = v
	}
	if v := os.Getenv("BILILITE_SERVERCHAN_SENDKEY"); v != "" {
		cfg.Push.ServerChan.SendKey = v
	}
	if v := os.Getenv("BILILITE_WEBHOOK_URL"); v != "" {
		cfg.Push.Webhook.URL = v
	}
}
