package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

type Config struct {
	APIURL            string        `mapstructure:"api_url"`
	DaemonPort        int           `mapstructure:"daemon_port"`
	HistoryLimit      int           `mapstructure:"history_limit"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	RetryCount        int           `mapstructure:"retry_count"`
	DBPath            string        `mapstructure:"db_path"`
	FreshnessSchedule string        `mapstructure:"freshness_schedule"`
	AutoSync          bool          `mapstructure:"auto_sync"`
	SessionCookieName string        `mapstructure:"session_cookie_name"`
	SessionCookie     string        `mapstructure:"session_cookie"`
	APIToken          string        `mapstructure:"api_token"`
	LogLevel          string        `mapstructure:"log_level"`
}

var Default = Config{
	APIURL:            "http://localhost:8080/api",
	DaemonPort:        9011,
	HistoryLimit:      10,
	RequestTimeout:    30 * time.Second,
	RetryCount:        2,
	DBPath:            "statsync.db",
	FreshnessSchedule: "@every 5m",
	AutoSync:          false,
	SessionCookieName: "SESSION",
	LogLevel:          "info",
}

// Dir returns ~/.statsync, creating it when missing.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home dir: %w", err)
	}

	dir := filepath.Join(home, ".statsync")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config dir: %w", err)
	}

	return dir, nil
}

func Load() (*Config, error) {
	configDir, err := Dir()
	if err != nil {
		return nil, err
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)

	setDefaults(viper.GetViper())

	viper.SetEnvPrefix("STATSYNC")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := errors.AsType[viper.ConfigFileNotFoundError](err); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return decode(viper.GetViper())
}

// Watch calls onChange with the re-read config every time the config file changes.
func Watch(onChange func(*Config)) {
	viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}

		cfg, err := decode(viper.GetViper())
		if err != nil {
			return
		}
		onChange(cfg)
	})
	viper.WatchConfig()
}

// DatabasePath resolves db_path; relative paths live under Dir().
func (c *Config) DatabasePath() (string, error) {
	if filepath.IsAbs(c.DBPath) {
		return c.DBPath, nil
	}

	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.DBPath), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_url", Default.APIURL)
	v.SetDefault("daemon_port", Default.DaemonPort)
	v.SetDefault("history_limit", Default.HistoryLimit)
	v.SetDefault("request_timeout", Default.RequestTimeout)
	v.SetDefault("retry_count", Default.RetryCount)
	v.SetDefault("db_path", Default.DBPath)
	v.SetDefault("freshness_schedule", Default.FreshnessSchedule)
	v.SetDefault("auto_sync", Default.AutoSync)
	v.SetDefault("session_cookie_name", Default.SessionCookieName)
	v.SetDefault("session_cookie", "")
	v.SetDefault("api_token", "")
	v.SetDefault("log_level", Default.LogLevel)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = Default.HistoryLimit
	}

	return &cfg, nil
}
