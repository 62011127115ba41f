// Package config handles runner configuration using Viper.
//
// Configuration sources (in priority order):
//  1. Environment variables (ORDEAL_*)
//  2. Config file (~/.config/ordeal/config.yaml)
//  3. Built-in defaults
//
// Command line flags override everything; the command layer applies them
// on top of the loaded config.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/ordeal-dev/ordeal/internal/paths"
)

// Config holds the runner configuration.
type Config struct {
	v *viper.Viper
}

// Load reads configuration from all sources.
func Load() *Config {
	v := viper.New()

	// Set defaults
	v.SetDefault("output.verbose", false)
	v.SetDefault("output.quiet", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.stderr", "off")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "")

	// Config file location
	if configDir, err := paths.ConfigRoot(); err == nil {
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Environment variables
	v.SetEnvPrefix("ORDEAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found, but warn on other errors)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Warning: error reading config file: %v\n", err)
		}
	}

	return &Config{v: v}
}

// GetString returns a configuration value as string.
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetBool returns a configuration value as bool.
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// All returns all configuration as a map.
func (c *Config) All() map[string]interface{} {
	return c.v.AllSettings()
}

// Verbose reports whether verbose reporting is enabled by config.
func (c *Config) Verbose() bool {
	return c.GetBool("output.verbose")
}

// Quiet reports whether quiet (subtest) mode is enabled by config.
func (c *Config) Quiet() bool {
	return c.GetBool("output.quiet")
}

// LogLevel returns the configured log level.
func (c *Config) LogLevel() string {
	return c.GetString("log.level")
}

// LogFile returns the configured log file ("" disables the file sink,
// "auto" resolves to the default state-dir location).
func (c *Config) LogFile() string {
	return c.GetString("log.file")
}

// LogStderr returns the configured stderr sink mode.
func (c *Config) LogStderr() string {
	return c.GetString("log.stderr")
}

// TelemetryEnabled reports whether tracing is enabled by config.
func (c *Config) TelemetryEnabled() bool {
	return c.GetBool("telemetry.enabled")
}

// TelemetryEndpoint returns the OTLP endpoint override.
func (c *Config) TelemetryEndpoint() string {
	return c.GetString("telemetry.endpoint")
}
