// Package config provides configuration management for the blockframe engine.
// Values reach the core packages through call sites; there is no global
// configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by LoadFromEnv
const EnvPrefix = "BLOCKFRAME_"

// Config represents the engine configuration
type Config struct {
	// Key handling
	CompositeKeyThreshold int64 `json:"composite_key_threshold" yaml:"composite_key_threshold"` // Compress composite join/group keys above this key space

	// Join configuration
	LeftSuffix  string `json:"left_suffix" yaml:"left_suffix"`   // Suffix for overlapping left columns
	RightSuffix string `json:"right_suffix" yaml:"right_suffix"` // Suffix for overlapping right columns

	// Reindex configuration
	ConsolidateOnReindex bool `json:"consolidate_on_reindex" yaml:"consolidate_on_reindex"` // Merge same-dtype blocks after an upcasting reindex

	// Debugging configuration
	LogLevel          string `json:"log_level" yaml:"log_level"`                   // panic, fatal, error, warn, info, debug or trace
	LogFormat         string `json:"log_format" yaml:"log_format"`                 // text or json
	VerboseLogging    bool   `json:"verbose_logging" yaml:"verbose_logging"`       // Force debug level
	MetricsCollection bool   `json:"metrics_collection" yaml:"metrics_collection"` // Record per-operation metrics
}

// Default configuration values
const (
	DefaultCompositeKeyThreshold = 1_000_000
	DefaultLeftSuffix            = ".x"
	DefaultRightSuffix           = ".y"
	DefaultLogLevel              = "info"
	DefaultLogFormat             = "text"
)

var (
	logLevels  = []string{"panic", "fatal", "error", "warn", "warning", "info", "debug", "trace"}
	logFormats = []string{"text", "json"}
)

// NewConfig creates a new configuration with default values
func NewConfig() Config {
	return Config{
		CompositeKeyThreshold: DefaultCompositeKeyThreshold,
		LeftSuffix:            DefaultLeftSuffix,
		RightSuffix:           DefaultRightSuffix,
		ConsolidateOnReindex:  true,
		LogLevel:              DefaultLogLevel,
		LogFormat:             DefaultLogFormat,
		VerboseLogging:        false,
		MetricsCollection:     false,
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	if c.CompositeKeyThreshold <= 0 {
		return fmt.Errorf("CompositeKeyThreshold must be positive, got %d", c.CompositeKeyThreshold)
	}

	if c.LeftSuffix == c.RightSuffix {
		return fmt.Errorf("LeftSuffix and RightSuffix must differ, both are %q", c.LeftSuffix)
	}

	if !slices.Contains(logLevels, strings.ToLower(c.LogLevel)) {
		return fmt.Errorf("LogLevel must be one of %v, got %q", logLevels, c.LogLevel)
	}

	if !slices.Contains(logFormats, strings.ToLower(c.LogFormat)) {
		return fmt.Errorf("LogFormat must be one of %v, got %q", logFormats, c.LogFormat)
	}

	return nil
}

// WithDefaults returns a new configuration with default values filled in for zero values
func (c Config) WithDefaults() Config {
	defaults := NewConfig()

	if c.CompositeKeyThreshold == 0 {
		c.CompositeKeyThreshold = defaults.CompositeKeyThreshold
	}
	if c.LeftSuffix == "" && c.RightSuffix == "" {
		c.LeftSuffix, c.RightSuffix = defaults.LeftSuffix, defaults.RightSuffix
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = defaults.LogFormat
	}

	// Boolean fields keep their value: false cannot be told apart from unset.
	// The loaders start from NewConfig so unset booleans keep their defaults.

	return c
}

// LoadFromJSON loads configuration from JSON data
func LoadFromJSON(data []byte) (Config, error) {
	config := NewConfig()
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing JSON configuration: %w", err)
	}
	return config.WithDefaults(), nil
}

// LoadFromFile loads configuration from a JSON or YAML file
func LoadFromFile(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file %s: %w", filename, err)
	}

	config := NewConfig()
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".json":
		err = json.Unmarshal(data, &config)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	default:
		return Config{}, fmt.Errorf("unsupported config file format: %s", ext)
	}

	if err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", filename, err)
	}

	return config.WithDefaults(), nil
}

// LoadFromEnv loads configuration from BLOCKFRAME_* environment variables.
// Unparseable values are ignored.
func LoadFromEnv() Config {
	config := NewConfig()

	if val := os.Getenv(EnvPrefix + "COMPOSITE_KEY_THRESHOLD"); val != "" {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			config.CompositeKeyThreshold = parsed
		}
	}

	if val := os.Getenv(EnvPrefix + "LEFT_SUFFIX"); val != "" {
		config.LeftSuffix = val
	}

	if val := os.Getenv(EnvPrefix + "RIGHT_SUFFIX"); val != "" {
		config.RightSuffix = val
	}

	if val := os.Getenv(EnvPrefix + "CONSOLIDATE_ON_REINDEX"); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			config.ConsolidateOnReindex = parsed
		}
	}

	if val := os.Getenv(EnvPrefix + "LOG_LEVEL"); val != "" {
		config.LogLevel = val
	}

	if val := os.Getenv(EnvPrefix + "LOG_FORMAT"); val != "" {
		config.LogFormat = val
	}

	if val := os.Getenv(EnvPrefix + "VERBOSE_LOGGING"); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			config.VerboseLogging = parsed
		}
	}

	if val := os.Getenv(EnvPrefix + "METRICS_COLLECTION"); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			config.MetricsCollection = parsed
		}
	}

	return config
}
