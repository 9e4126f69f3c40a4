// Package config provides configuration management for termbridge.
// It supports loading configuration from environment variables, config files, and defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/termbridge/termbridge/internal/common/logger"
)

// Config holds all configuration sections for termbridge.
type Config struct {
	Terminal TerminalConfig       `mapstructure:"terminal"`
	Shell    ShellConfig          `mapstructure:"shell"`
	History  HistoryConfig        `mapstructure:"history"`
	UI       UIConfig             `mapstructure:"ui"`
	Logging  logger.LoggingConfig `mapstructure:"logging"`
}

// TerminalConfig holds the terminal MCP server configuration.
type TerminalConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// ShellConfig holds the persistent shell session configuration.
type ShellConfig struct {
	// Path is the shell executable launched for the session.
	Path string `mapstructure:"path"`

	// MaxOutputChars caps the total characters captured per command.
	MaxOutputChars int `mapstructure:"maxOutputChars"`

	// MaxOutputLines caps the total lines captured per command.
	MaxOutputLines int `mapstructure:"maxOutputLines"`

	// DefaultTimeoutSec is the command timeout used when the caller omits one.
	DefaultTimeoutSec float64 `mapstructure:"defaultTimeoutSec"`
}

// HistoryConfig holds the execution history store configuration.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"` // sqlite file path, ":memory:" for ephemeral
}

// UIConfig holds the UI automation MCP server configuration.
type UIConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	CoordsFile string `mapstructure:"coordsFile"`
}

// DefaultTimeout returns the default command timeout as a time.Duration.
func (s *ShellConfig) DefaultTimeout() time.Duration {
	return time.Duration(s.DefaultTimeoutSec * float64(time.Second))
}

// setDefaults configures default values for all configuration options.
func setDefaults(v *viper.Viper) {
	// Terminal server defaults
	v.SetDefault("terminal.host", "0.0.0.0")
	v.SetDefault("terminal.port", 3003)

	// Shell session defaults
	v.SetDefault("shell.path", "/bin/bash")
	v.SetDefault("shell.maxOutputChars", 20000)
	v.SetDefault("shell.maxOutputLines", 800)
	v.SetDefault("shell.defaultTimeoutSec", 20.0)

	// History defaults
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", "termbridge-history.db")

	// UI server defaults
	v.SetDefault("ui.host", "0.0.0.0")
	v.SetDefault("ui.port", 3004)
	v.SetDefault("ui.coordsFile", "coordinate_map.json")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.outputPath", "stdout")
}

// Load reads configuration from environment variables, config file, and defaults.
// Environment variables use the prefix TERMBRIDGE_ with snake_case naming.
// Config file should be named config.yaml and placed in the current directory
// or /etc/termbridge/.
func Load() (*Config, error) {
	return LoadWithPath("")
}

// LoadWithPath reads configuration from the specified path or default locations.
func LoadWithPath(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults first
	setDefaults(v)

	// Configure environment variables
	v.SetEnvPrefix("TERMBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicit bindings for legacy env var names carried over from the
	// original P1/P4 deployments, plus camelCase config keys that
	// AutomaticEnv cannot map to SNAKE_CASE on its own.
	_ = v.BindEnv("terminal.port", "P1_MCP_PORT", "TERMBRIDGE_TERMINAL_PORT")
	_ = v.BindEnv("shell.path", "P1_SHELL", "TERMBRIDGE_SHELL_PATH")
	_ = v.BindEnv("shell.maxOutputChars", "P1_MAX_OUTPUT_CHARS", "TERMBRIDGE_SHELL_MAX_OUTPUT_CHARS")
	_ = v.BindEnv("shell.maxOutputLines", "P1_MAX_OUTPUT_LINES", "TERMBRIDGE_SHELL_MAX_OUTPUT_LINES")
	_ = v.BindEnv("shell.defaultTimeoutSec", "TERMBRIDGE_SHELL_DEFAULT_TIMEOUT_SEC")
	_ = v.BindEnv("history.enabled", "TERMBRIDGE_HISTORY_ENABLED")
	_ = v.BindEnv("history.path", "TERMBRIDGE_HISTORY_PATH")
	_ = v.BindEnv("ui.port", "P4_MCP_PORT", "TERMBRIDGE_UI_PORT")
	_ = v.BindEnv("ui.coordsFile", "P4_COORDS_FILE", "TERMBRIDGE_UI_COORDS_FILE")
	_ = v.BindEnv("logging.outputPath", "TERMBRIDGE_LOGGING_OUTPUT_PATH")

	// Configure config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/termbridge/")

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// validate checks that all required configuration fields are set.
func validate(cfg *Config) error {
	var errs []string

	if cfg.Terminal.Port <= 0 || cfg.Terminal.Port > 65535 {
		errs = append(errs, "terminal.port must be between 1 and 65535")
	}
	if cfg.UI.Port <= 0 || cfg.UI.Port > 65535 {
		errs = append(errs, "ui.port must be between 1 and 65535")
	}

	if cfg.Shell.Path == "" {
		errs = append(errs, "shell.path is required")
	}
	if cfg.Shell.MaxOutputChars <= 0 {
		errs = append(errs, "shell.maxOutputChars must be positive")
	}
	if cfg.Shell.MaxOutputLines <= 0 {
		errs = append(errs, "shell.maxOutputLines must be positive")
	}
	if cfg.Shell.DefaultTimeoutSec <= 0 {
		errs = append(errs, "shell.defaultTimeoutSec must be positive")
	}

	if cfg.History.Enabled && cfg.History.Path == "" {
		errs = append(errs, "history.path is required when history.enabled is true")
	}

	if cfg.UI.CoordsFile == "" {
		errs = append(errs, "ui.coordsFile is required")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, "logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true, "console": true}
	if !validFormats[strings.ToLower(cfg.Logging.Format)] {
		errs = append(errs, "logging.format must be one of: json, text, console")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}

	return nil
}
