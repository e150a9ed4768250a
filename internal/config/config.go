package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultSecretKey      = "change_me_in_production"
	DefaultPort           = "8080"
	DefaultTimezone       = "UTC"
	DefaultMaxTimerHours  = 12
	DefaultEventQueueSize = 256

	configPathEnv = "BOARDKEEPER_CONFIG"
)

type Config struct {
	SecretKey      string `mapstructure:"secret_key"`
	DBPath         string `mapstructure:"db_path"`
	Port           string `mapstructure:"port"`
	Timezone       string `mapstructure:"tz"`
	CookieSecure   bool   `mapstructure:"cookie_secure"`
	MaxTimerHours  int    `mapstructure:"max_timer_hours"`
	EventQueueSize int    `mapstructure:"event_queue_size"`
}

func DefaultConfig() Config {
	return Config{
		SecretKey:      DefaultSecretKey,
		DBPath:         filepath.Join("data", "boardkeeper.db"),
		Port:           DefaultPort,
		Timezone:       DefaultTimezone,
		MaxTimerHours:  DefaultMaxTimerHours,
		EventQueueSize: DefaultEventQueueSize,
	}
}

// Load layers defaults, an optional YAML file and the environment, in that
// order. An empty path falls back to BOARDKEEPER_CONFIG; a missing file at
// that path is an error, no file at all is not.
func Load(path string) (Config, error) {
	defaults := DefaultConfig()

	v := viper.New()
	v.SetDefault("secret_key", defaults.SecretKey)
	v.SetDefault("db_path", defaults.DBPath)
	v.SetDefault("port", defaults.Port)
	v.SetDefault("tz", defaults.Timezone)
	v.SetDefault("cookie_secure", defaults.CookieSecure)
	v.SetDefault("max_timer_hours", defaults.MaxTimerHours)
	v.SetDefault("event_queue_size", defaults.EventQueueSize)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{"secret_key", "db_path", "port", "tz", "cookie_secure", "max_timer_hours", "event_queue_size"} {
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return Config{}, err
		}
	}

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg Config) Validate() error {
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return errors.New("secret_key must not be empty")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return errors.New("db_path must not be empty")
	}
	if cfg.MaxTimerHours <= 0 || cfg.MaxTimerHours > 24 {
		return fmt.Errorf("max_timer_hours must be between 1 and 24, got %d", cfg.MaxTimerHours)
	}
	if cfg.EventQueueSize <= 0 {
		return fmt.Errorf("event_queue_size must be positive, got %d", cfg.EventQueueSize)
	}
	return nil
}

// Location resolves Timezone, falling back to UTC on unknown names.
func (cfg Config) Location() (*time.Location, bool) {
	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return time.UTC, false
	}
	return location, true
}

func (cfg Config) UsesDefaultSecret() bool {
	return cfg.SecretKey == DefaultSecretKey
}
