package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
	_ "time/tzdata" // zoneinfo for images without a system tz database

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the application's configuration.
type Config struct {
	Server struct {
		Port                   string `yaml:"port"`
		ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds"`
		AllowedOrigins         string `yaml:"allowed_origins"`
	} `yaml:"server"`
	Database struct {
		Driver string `yaml:"driver"` // "postgres" or "sqlite"
		URL    string `yaml:"url"`    // PostgreSQL URL or SQLite path
	} `yaml:"database"`
	Analytics struct {
		Timezone string `yaml:"timezone"`
	} `yaml:"analytics"`
	Evidence struct {
		Codec      string `yaml:"codec"` // "marker" or "sealed"
		Passphrase string `yaml:"passphrase"`
	} `yaml:"evidence"`
	Classifier struct {
		LexiconPath string `yaml:"lexicon_path"`
	} `yaml:"classifier"`
	Redis struct {
		Address    string `yaml:"address"`
		Password   string `yaml:"password"`
		DB         int    `yaml:"db"`
		TTLSeconds int    `yaml:"ttl_seconds"`
	} `yaml:"redis"`
	Telegram struct {
		Enabled     bool   `yaml:"enabled"`
		BotToken    string `yaml:"bot_token"`
		ChatID      int64  `yaml:"chat_id"`
		APIEndpoint string `yaml:"api_endpoint"`
	} `yaml:"telegram"`
	Extension struct {
		SupportURL string `yaml:"support_url"`
	} `yaml:"extension"`
	Resources struct {
		SkipSeed bool `yaml:"skip_seed"`
	} `yaml:"resources"`
	Log struct {
		Format string `yaml:"format"` // "console" or "json"
	} `yaml:"log"`
}

// LoadConfig reads configuration from the specified YAML file. A .env file in
// the working directory is loaded first, and ${VAR} references in the YAML are
// expanded from the environment.
func LoadConfig(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	raw, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	return Parse([]byte(os.ExpandEnv(string(raw))))
}

// Parse decodes YAML configuration, applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.setDefaults()
	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) setDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.ShutdownTimeoutSeconds == 0 {
		c.Server.ShutdownTimeoutSeconds = 10
	}
	if c.Server.AllowedOrigins == "" {
		c.Server.AllowedOrigins = "*"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.URL == "" && c.Database.Driver == "sqlite" {
		c.Database.URL = "./data/safespace.db"
	}
	if c.Analytics.Timezone == "" {
		c.Analytics.Timezone = "UTC"
	}
	if c.Evidence.Codec == "" {
		c.Evidence.Codec = "marker"
	}
	if c.Redis.TTLSeconds == 0 {
		c.Redis.TTLSeconds = 300
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.URL == "" {
		return errors.New("database url is required")
	}
	switch c.Evidence.Codec {
	case "marker":
	case "sealed":
		if c.Evidence.Passphrase == "" {
			return errors.New("evidence passphrase is required for the sealed codec")
		}
	default:
		return fmt.Errorf("unsupported evidence codec %q", c.Evidence.Codec)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Telegram.Enabled && (c.Telegram.BotToken == "" || c.Telegram.ChatID == 0) {
		return errors.New("telegram bot_token and chat_id are required when telegram is enabled")
	}
	return nil
}

// Location returns the timezone analytics days are computed in.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Analytics.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid analytics timezone %q: %w", c.Analytics.Timezone, err)
	}
	return loc, nil
}

// ShutdownTimeout returns the graceful shutdown deadline.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}

// CacheTTL returns how long cached resource lists live.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Redis.TTLSeconds) * time.Second
}
