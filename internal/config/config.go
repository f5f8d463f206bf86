package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds the application's configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Triage   TriageConfig   `yaml:"triage"`
	Storage  StorageConfig  `yaml:"storage"`
	Notifier NotifierConfig `yaml:"notifier"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Port          string `yaml:"port"`
	MaxImageBytes int64  `yaml:"max_image_bytes"`
}

type DatabaseConfig struct {
	Driver       string `yaml:"driver"` // "postgres" or "sqlite"
	URL          string `yaml:"url"`    // PostgreSQL URL or SQLite path
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

type TriageConfig struct {
	URL            string `yaml:"url"`
	TimeoutSeconds int64  `yaml:"timeout_seconds"`
	HealthCheck    bool   `yaml:"health_check"`
}

// Timeout returns the bound applied to a single outbound triage call.
func (t TriageConfig) Timeout() time.Duration {
	return time.Duration(t.TimeoutSeconds) * time.Second
}

// StorageConfig configures the MinIO bucket that receives ticket images.
// When disabled, submitted images are still forwarded to triage but not kept.
type StorageConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type NotifierConfig struct {
	Enabled          bool   `yaml:"enabled"`
	TelegramBotToken string `yaml:"telegram_bot_token"`
	ChatID           int64  `yaml:"chat_id"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// LoadConfig reads configuration from the specified YAML file.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.applyEnv()
	config.setDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("TRIAGE_DATABASE_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("TRIAGE_DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("TRIAGE_API_URL"); v != "" {
		c.Triage.URL = v
	}
	if v := os.Getenv("TRIAGE_SERVER_PORT"); v != "" {
		c.Server.Port = v
	}

	// Secrets may be written as ${VAR} in the file
	c.Database.URL = os.ExpandEnv(c.Database.URL)
	c.Storage.AccessKey = os.ExpandEnv(c.Storage.AccessKey)
	c.Storage.SecretKey = os.ExpandEnv(c.Storage.SecretKey)
	c.Notifier.TelegramBotToken = os.ExpandEnv(c.Notifier.TelegramBotToken)
}

func (c *Config) setDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8000"
	}
	if c.Server.MaxImageBytes == 0 {
		c.Server.MaxImageBytes = 10 << 20
	}

	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if c.Database.Driver == "" {
		c.Database.Driver = DriverSQLite
	}
	if c.Database.Driver == DriverSQLite {
		if c.Database.URL == "" {
			c.Database.URL = "./data/triage_system.db"
		}
		// SQLite allows a single writer.
		c.Database.MaxOpenConns = 1
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 2
	}

	if c.Triage.TimeoutSeconds == 0 {
		c.Triage.TimeoutSeconds = 30
	}

	if c.Storage.Bucket == "" {
		c.Storage.Bucket = "ticket-images"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate reports configuration that would leave the server unable to run.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required")
	}
	if c.Triage.URL == "" {
		return fmt.Errorf("triage.url is required")
	}
	if c.Triage.TimeoutSeconds < 0 {
		return fmt.Errorf("triage.timeout_seconds must be positive")
	}
	if c.Storage.Enabled && c.Storage.Endpoint == "" {
		return fmt.Errorf("storage.endpoint is required when storage is enabled")
	}
	if c.Notifier.Enabled && (c.Notifier.TelegramBotToken == "" || c.Notifier.ChatID == 0) {
		return fmt.Errorf("notifier.telegram_bot_token and notifier.chat_id are required when the notifier is enabled")
	}
	return nil
}
