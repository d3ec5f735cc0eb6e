package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the complete romflash configuration
type Config struct {
	// Module is the protocol module: a registered name or a plugin path
	Module string `mapstructure:"module" yaml:"module"`
	// Port is the serial device to use; empty means choose interactively
	Port string `mapstructure:"port" yaml:"port"`

	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	UI      UIConfig      `mapstructure:"ui" yaml:"ui"`
}

// LoggingConfig controls log output
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level" yaml:"level"`
	// Format is "text" for console output or "json" (default: "text")
	Format string `mapstructure:"format" yaml:"format"`
	// File additionally writes JSON logs to this path when set
	File string `mapstructure:"file" yaml:"file"`
}

// MetricsConfig controls the Prometheus textfile export
type MetricsConfig struct {
	// File is where metrics are written after each command; empty disables export
	File string `mapstructure:"file" yaml:"file"`
}

// UIConfig controls the terminal UI
type UIConfig struct {
	// Plain disables the interactive views and prints plain status lines
	Plain bool `mapstructure:"plain" yaml:"plain"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Module: "esptool",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("module", defaults.Module)
	viper.SetDefault("port", defaults.Port)

	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.format", defaults.Logging.Format)
	viper.SetDefault("logging.file", defaults.Logging.File)

	viper.SetDefault("metrics.file", defaults.Metrics.File)

	viper.SetDefault("ui.plain", defaults.UI.Plain)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "romflash")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".romflash"
	}
	return filepath.Join(home, ".config", "romflash")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
