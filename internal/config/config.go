package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the main configuration structure
type Config struct {
	Campaign CampaignConfig `yaml:"campaign"`
	Source   SourceConfig   `yaml:"source"`
	Discord  DiscordConfig  `yaml:"discord"`
	Approval ApprovalConfig `yaml:"approval"`
	SMTP     SMTPConfig     `yaml:"smtp"`
	Tracking TrackingConfig `yaml:"tracking"`
	Journal  JournalConfig  `yaml:"journal"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// CampaignConfig describes the outgoing email envelope
type CampaignConfig struct {
	Name       string   `yaml:"name"`        // Campaign label used in reports and the journal
	FromEmail  string   `yaml:"from_email"`  // Sender address
	FromName   string   `yaml:"from_name"`   // Sender display name
	CC         []string `yaml:"cc"`          // Addresses copied on every outgoing email
	Subject    string   `yaml:"subject"`     // Subject template (text/template)
	SiteURL    string   `yaml:"site_url"`    // Default click-through target
}

// SourceConfig describes where the client list comes from
type SourceConfig struct {
	Type                string `yaml:"type"`                  // Only "csv" is supported
	Path                string `yaml:"path"`                  // Path to the sheet file
	LastContactedColumn string `yaml:"last_contacted_column"` // Default: "Last Contacted"
}

// DiscordConfig contains the bot credentials and channels
type DiscordConfig struct {
	Enabled          bool   `yaml:"enabled"`
	BotToken         string `yaml:"bot_token"`
	ApprovalChannel  string `yaml:"approval_channel_id"` // Channel receiving approve/reject requests
	MonitorChannel   string `yaml:"monitor_channel_id"`  // Channel receiving live status embeds
}

// ApprovalConfig controls the human decision window
type ApprovalConfig struct {
	Timeout time.Duration `yaml:"timeout"` // Default: 24h
}

// SMTPConfig contains the submission relay settings
type SMTPConfig struct {
	Host        string        `yaml:"host"`
	Port        int           `yaml:"port"`     // 465 = implicit TLS, otherwise STARTTLS
	Username    string        `yaml:"username"`
	Password    string        `yaml:"password"`
	Timeout     time.Duration `yaml:"timeout"`  // Dial/submit timeout, default 30s
}

// TrackingConfig contains the open/click tracking service settings
type TrackingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"` // Default: :5000
	DBPath     string `yaml:"db_path"`     // SQLite file, default data/tracking.db
	PublicURL  string `yaml:"public_url"`  // Base URL embedded in emails
}

// JournalConfig contains the run journal settings
type JournalConfig struct {
	Path string `yaml:"path"` // BoltDB file, default data/journal.db
}

// MetricsConfig contains Prometheus metrics settings
type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"` // Default: :9090
	Path       string `yaml:"path"`        // Default: /metrics
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Load reads, defaults and validates a configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.Campaign.Name == "" {
		c.Campaign.Name = "client-outreach"
	}
	if c.Source.Type == "" {
		c.Source.Type = "csv"
	}
	if c.Source.LastContactedColumn == "" {
		c.Source.LastContactedColumn = "Last Contacted"
	}
	if c.Approval.Timeout <= 0 {
		c.Approval.Timeout = 24 * time.Hour
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 465
	}
	if c.SMTP.Timeout <= 0 {
		c.SMTP.Timeout = 30 * time.Second
	}
	if c.Tracking.ListenAddr == "" {
		c.Tracking.ListenAddr = ":5000"
	}
	if c.Tracking.DBPath == "" {
		c.Tracking.DBPath = "data/tracking.db"
	}
	if c.Tracking.PublicURL == "" {
		c.Tracking.PublicURL = "http://localhost:5000"
	}
	c.Tracking.PublicURL = strings.TrimRight(c.Tracking.PublicURL, "/")
	if c.Journal.Path == "" {
		c.Journal.Path = "data/journal.db"
	}
	if c.Metrics.ListenAddr == "" {
		c.Metrics.ListenAddr = ":9090"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.Campaign.FromEmail == "" {
		return fmt.Errorf("campaign.from_email is required")
	}
	if c.Campaign.Subject == "" {
		return fmt.Errorf("campaign.subject is required")
	}
	if c.Source.Type != "csv" {
		return fmt.Errorf("source.type %q is not supported (only csv)", c.Source.Type)
	}
	if c.Source.Path == "" {
		return fmt.Errorf("source.path is required")
	}
	if c.SMTP.Host == "" {
		return fmt.Errorf("smtp.host is required")
	}
	if c.SMTP.Port < 1 || c.SMTP.Port > 65535 {
		return fmt.Errorf("smtp.port %d is out of range", c.SMTP.Port)
	}
	if c.Discord.Enabled {
		if c.Discord.BotToken == "" {
			return fmt.Errorf("discord.bot_token is required when discord is enabled")
		}
		if c.Discord.ApprovalChannel == "" {
			return fmt.Errorf("discord.approval_channel_id is required when discord is enabled")
		}
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is invalid", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format %q is invalid", c.Logging.Format)
	}
	return nil
}
