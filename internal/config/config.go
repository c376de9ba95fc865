package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Tracker TrackerConfig `mapstructure:"tracker"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Log     LogConfig     `mapstructure:"log"`
}

// TrackerConfig holds product tracker API configuration
type TrackerConfig struct {
	BaseURL              string        `mapstructure:"base_url"`
	Timeout              time.Duration `mapstructure:"timeout"`
	PollInterval         time.Duration `mapstructure:"poll_interval"`
	MaxRequestsPerSecond int           `mapstructure:"max_requests_per_second"`
	UserAgent            string        `mapstructure:"user_agent"`
	SnapshotDir          string        `mapstructure:"snapshot_dir"` // Empty disables page snapshots
}

// RedisConfig holds Redis connection details for the progress mirror
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	Database int    `mapstructure:"database"`
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// LogConfig controls the logrus level and formatter
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "text" or "json"
}

// Load loads configuration from config.yaml in the current directory, with
// .env and environment variable overrides
func Load() (*Config, error) {
	return LoadFrom(".")
}

// LoadFrom is Load with an explicit directory for config.yaml and .env
func LoadFrom(dir string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		log.Debugf("No config.yaml in %s, using defaults and environment", dir)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks values that would otherwise fail late
func (c *Config) Validate() error {
	if !IsValidURL(c.Tracker.BaseURL) {
		return fmt.Errorf("tracker.base_url %q is not a valid http(s) URL", c.Tracker.BaseURL)
	}
	if c.Tracker.PollInterval <= 0 {
		return fmt.Errorf("tracker.poll_interval must be positive, got %v", c.Tracker.PollInterval)
	}
	if c.Tracker.MaxRequestsPerSecond < 0 {
		return fmt.Errorf("tracker.max_requests_per_second must not be negative")
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// IsValidURL reports whether s is an absolute http or https URL with a host
func IsValidURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// SetupLogging applies the log section to the standard logrus logger
func SetupLogging(cfg LogConfig) error {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return err
	}
	log.SetLevel(level)

	if cfg.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("tracker.base_url", "http://localhost:5000")
	v.SetDefault("tracker.timeout", "30s")
	v.SetDefault("tracker.poll_interval", "3s")
	v.SetDefault("tracker.max_requests_per_second", 5)
	v.SetDefault("tracker.user_agent", "producttracker-watcher/1.0")
	v.SetDefault("tracker.snapshot_dir", "")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.database", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}
