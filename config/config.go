package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	SiteID    string          `yaml:"site_id"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Web       WebConfig       `yaml:"web"`
	Messaging MessagingConfig `yaml:"messaging"`
	Sync      SyncConfig      `yaml:"sync"`
	Save      SaveConfig      `yaml:"save"`
}

type DatabaseConfig struct {
	Driver   string         `yaml:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type WebConfig struct {
	Host              string `yaml:"host"`
	Port              int    `yaml:"port"`
	SessionSecret     string `yaml:"session_secret"`
	AdminPasswordHash string `yaml:"admin_password_hash"`
}

type MessagingConfig struct {
	Backend             string     `yaml:"backend"` // "kafka", "mqtt" or "none"
	Brokers             []string   `yaml:"brokers"`
	MQTT                MQTTConfig `yaml:"mqtt"`
	UpdatesTopicPrefix  string     `yaml:"updates_topic_prefix"`
	OutboxDrainInterval Duration   `yaml:"outbox_drain_interval"`
}

type MQTTConfig struct {
	BrokerURL string `yaml:"broker_url"`
	ClientID  string `yaml:"client_id"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
}

type SyncConfig struct {
	Interval Duration `yaml:"interval"`
}

type SaveConfig struct {
	Debounce    Duration `yaml:"debounce"`
	MinInterval Duration `yaml:"min_interval"`
}

// Duration wraps time.Duration so YAML values like "30s" parse directly.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.SiteID == "" {
		c.SiteID = "site-1"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.SQLite.Path == "" {
		c.Database.SQLite.Path = "fieldcore.db"
	}
	if c.Database.Postgres.Port == 0 {
		c.Database.Postgres.Port = 5432
	}
	if c.Database.Postgres.SSLMode == "" {
		c.Database.Postgres.SSLMode = "disable"
	}
	if c.Redis.Address == "" {
		c.Redis.Address = "127.0.0.1:6379"
	}
	if c.Web.Host == "" {
		c.Web.Host = "0.0.0.0"
	}
	if c.Web.Port == 0 {
		c.Web.Port = 8380
	}
	if c.Web.SessionSecret == "" {
		c.Web.SessionSecret = "fieldcore-dev-secret"
	}
	if c.Messaging.Backend == "" {
		c.Messaging.Backend = "none"
	}
	if c.Messaging.UpdatesTopicPrefix == "" {
		c.Messaging.UpdatesTopicPrefix = "fieldcore.updates"
	}
	if c.Messaging.OutboxDrainInterval == 0 {
		c.Messaging.OutboxDrainInterval = Duration(2 * time.Second)
	}
	if c.Sync.Interval == 0 {
		c.Sync.Interval = Duration(30 * time.Second)
	}
	if c.Save.Debounce == 0 {
		c.Save.Debounce = Duration(2 * time.Second)
	}
	if c.Save.MinInterval == 0 {
		c.Save.MinInterval = Duration(500 * time.Millisecond)
	}
}
