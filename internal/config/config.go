// Package config provides YAML-based configuration loading for CartDesk.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level CartDesk configuration, loaded from cartdesk.yaml.
type Config struct {
	Platform  string            `yaml:"platform"` // "discord" or "slack"
	Discord   DiscordConfig     `yaml:"discord"`
	Slack     SlackConfig       `yaml:"slack"`
	DB        DBConfig          `yaml:"db"`
	Session   SessionConfig     `yaml:"session"`
	Jobs      JobsConfig        `yaml:"jobs"`
	Dashboard DashboardConfig   `yaml:"dashboard"`
	Catalog   CatalogConfig     `yaml:"catalog"`
}

// DiscordConfig holds Discord bot credentials and channels.
type DiscordConfig struct {
	BotToken       string `yaml:"bot_token"`
	ChannelID      string `yaml:"channel_id"`
	AdminChannelID string `yaml:"admin_channel_id"`
}

// SlackConfig holds Slack Socket Mode credentials and channels.
type SlackConfig struct {
	AppToken       string `yaml:"app_token"`
	BotToken       string `yaml:"bot_token"`
	ChannelID      string `yaml:"channel_id"`
	AdminChannelID string `yaml:"admin_channel_id"`
}

// DBConfig selects and configures the durable store.
type DBConfig struct {
	Driver   string `yaml:"driver"` // "mysql" or "sqlite"
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	Path     string `yaml:"path"` // sqlite file path
}

// SessionConfig controls intake session lifetime.
type SessionConfig struct {
	TTLMinutes int    `yaml:"ttl_minutes"`
	SweepCron  string `yaml:"sweep_cron"`
}

// JobsConfig controls the background jobs the bot daemon schedules.
type JobsConfig struct {
	SLAHours         int    `yaml:"sla_hours"`
	SLACron          string `yaml:"sla_cron"`
	ArchiveAfterDays int    `yaml:"archive_after_days"`
	ArchiveCron      string `yaml:"archive_cron"`
}

// DashboardConfig holds dashboard server settings.
type DashboardConfig struct {
	Port int `yaml:"port"`
}

// CatalogConfig lists the seedable catalog entries.
type CatalogConfig struct {
	Branches   []BranchConfig    `yaml:"branches"`
	Cartridges []CartridgeConfig `yaml:"cartridges"`
}

// BranchConfig seeds one branch.
type BranchConfig struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
}

// CartridgeConfig seeds one cartridge type.
type CartridgeConfig struct {
	SKU  string `yaml:"sku"`
	Name string `yaml:"name"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.DB.Driver == "" {
		if c.DB.Path != "" {
			c.DB.Driver = "sqlite"
		} else {
			c.DB.Driver = "mysql"
		}
	}
	if c.DB.Host == "" {
		c.DB.Host = "127.0.0.1"
	}
	if c.DB.Port == 0 {
		c.DB.Port = 3306
	}
	if c.DB.User == "" {
		c.DB.User = "root"
	}
	if c.DB.Database == "" {
		c.DB.Database = "cartdesk"
	}
	if c.DB.Path == "" {
		c.DB.Path = "cartdesk.db"
	}
	if c.Session.TTLMinutes == 0 {
		c.Session.TTLMinutes = 30
	}
	if c.Session.SweepCron == "" {
		c.Session.SweepCron = "@every 1m"
	}
	if c.Jobs.SLAHours == 0 {
		c.Jobs.SLAHours = 4
	}
	if c.Jobs.SLACron == "" {
		c.Jobs.SLACron = "@every 15m"
	}
	if c.Jobs.ArchiveAfterDays == 0 {
		c.Jobs.ArchiveAfterDays = 30
	}
	if c.Jobs.ArchiveCron == "" {
		c.Jobs.ArchiveCron = "@daily"
	}
	if c.Dashboard.Port == 0 {
		c.Dashboard.Port = 8080
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string

	switch c.Platform {
	case "":
		errs = append(errs, "platform is required (discord or slack)")
	case "discord":
		if c.Discord.BotToken == "" {
			errs = append(errs, "discord.bot_token is required")
		}
		if c.Discord.ChannelID == "" {
			errs = append(errs, "discord.channel_id is required")
		}
	case "slack":
		if c.Slack.AppToken == "" {
			errs = append(errs, "slack.app_token is required")
		}
		if c.Slack.BotToken == "" {
			errs = append(errs, "slack.bot_token is required")
		}
		if c.Slack.ChannelID == "" {
			errs = append(errs, "slack.channel_id is required")
		}
	default:
		errs = append(errs, fmt.Sprintf("platform %q is not supported (discord or slack)", c.Platform))
	}

	if c.DB.Driver != "mysql" && c.DB.Driver != "sqlite" {
		errs = append(errs, fmt.Sprintf("db.driver %q is not supported (mysql or sqlite)", c.DB.Driver))
	}

	for i, b := range c.Catalog.Branches {
		if b.Code == "" {
			errs = append(errs, fmt.Sprintf("catalog.branches[%d].code is required", i))
		}
		if b.Name == "" {
			errs = append(errs, fmt.Sprintf("catalog.branches[%d].name is required", i))
		}
	}
	for i, ct := range c.Catalog.Cartridges {
		if ct.SKU == "" {
			errs = append(errs, fmt.Sprintf("catalog.cartridges[%d].sku is required", i))
		}
		if ct.Name == "" {
			errs = append(errs, fmt.Sprintf("catalog.cartridges[%d].name is required", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: invalid configuration:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// AdminChannelID returns the admin notification channel for the selected
// platform, falling back to the main channel when none is configured.
func (c *Config) AdminChannelID() string {
	switch c.Platform {
	case "discord":
		if c.Discord.AdminChannelID != "" {
			return c.Discord.AdminChannelID
		}
		return c.Discord.ChannelID
	case "slack":
		if c.Slack.AdminChannelID != "" {
			return c.Slack.AdminChannelID
		}
		return c.Slack.ChannelID
	}
	return ""
}
