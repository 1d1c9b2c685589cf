package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Daemon   DaemonConfig   `mapstructure:"daemon"`
	Poll     PollConfig     `mapstructure:"poll"`
	EventLog EventLogConfig `mapstructure:"event_log"`
	History  HistoryConfig  `mapstructure:"history"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// DaemonConfig holds the connection settings for the download daemon
type DaemonConfig struct {
	URL string `mapstructure:"url"` // Base URL, e.g. http://127.0.0.1:3000
}

// PollConfig holds the snapshot poller settings
type PollConfig struct {
	IntervalMS int `mapstructure:"interval_ms"` // Cadence of the transfer list poll
}

// EventLogConfig holds the live log buffer settings
type EventLogConfig struct {
	Capacity int `mapstructure:"capacity"` // Max retained log events, oldest evicted first
}

// HistoryConfig holds the local history store settings
type HistoryConfig struct {
	Path string `mapstructure:"path"` // BoltDB file; empty disables persistence
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Daemon: DaemonConfig{
			URL: "http://127.0.0.1:3000",
		},
		Poll: PollConfig{
			IntervalMS: 1000,
		},
		EventLog: EventLogConfig{
			Capacity: 100,
		},
		History: HistoryConfig{
			Path: defaultHistoryPath(),
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "xdccmon", "xdccmon.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "xdccmon", "xdccmon.log")
	}
}

// defaultHistoryPath returns the default history database path for the current OS
func defaultHistoryPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "xdccmon", "history.db")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "xdccmon", "history.db")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "xdccmon")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "xdccmon")
	}
}

// Load reads configuration from file and environment
func Load() (*Config, error) {
	cfg := DefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(defaultConfigPath())
	viper.AddConfigPath(".")

	// Environment variable overrides
	viper.SetEnvPrefix("XDCCMON")
	viper.AutomaticEnv()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the current configuration to file
func Save(cfg *Config) error {
	configPath := defaultConfigPath()

	if err := os.MkdirAll(configPath, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Set fields individually to ensure correct key names (snake_case)
	viper.Set("daemon.url", cfg.Daemon.URL)
	viper.Set("poll.interval_ms", cfg.Poll.IntervalMS)
	viper.Set("event_log.capacity", cfg.EventLog.Capacity)
	viper.Set("history.path", cfg.History.Path)
	viper.Set("logging.file", cfg.Logging.File)
	viper.Set("logging.level", cfg.Logging.Level)

	configFile := filepath.Join(configPath, "config.yaml")
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
