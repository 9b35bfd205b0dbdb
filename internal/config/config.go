// Package config resolves catalogtool settings from defaults, the
// environment, an optional YAML file and command-line flags.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix = "CATALOGTOOL_"

	// EnvConfigFile names a YAML config file when --config is not given.
	EnvConfigFile = envPrefix + "CONFIG"

	defaultCompression = "lz4"
	defaultExtraIndex  = -1
	defaultLogLevel    = "info"
)

// Config aggregates settings resolved from multiple sources.
// Precedence: CLI flags > YAML config > Environment variables > Defaults
type Config struct {
	Bundled     bool   `yaml:"bundled"`
	Compression string `yaml:"compression"`
	ExtraIndex  int    `yaml:"extra_index"`
	LogLevel    string `yaml:"log_level"`
}

// yamlConfig mirrors Config with optional fields so that absent keys keep
// lower-precedence values.
type yamlConfig struct {
	Bundled     *bool   `yaml:"bundled"`
	Compression *string `yaml:"compression"`
	ExtraIndex  *int    `yaml:"extra_index"`
	LogLevel    *string `yaml:"log_level"`
}

// CLIOverrides holds flag values. Nil pointers mean the flag was not set.
type CLIOverrides struct {
	ConfigFile  string
	Bundled     *bool
	Compression *string
	ExtraIndex  *int
	LogLevel    *string
}

// Load resolves the configuration.
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	if err := applyEnvConfig(&cfg); err != nil {
		return Config{}, err
	}

	path := os.Getenv(EnvConfigFile)
	if overrides != nil && overrides.ConfigFile != "" {
		path = overrides.ConfigFile
	}
	if path != "" {
		yamlCfg, err := loadFromFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		applyYAMLConfig(&cfg, yamlCfg)
	}

	if overrides != nil {
		applyCLIOverrides(&cfg, overrides)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func defaultConfig() Config {
	return Config{
		Compression: defaultCompression,
		ExtraIndex:  defaultExtraIndex,
		LogLevel:    defaultLogLevel,
	}
}

func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) {
	if yamlCfg.Bundled != nil {
		cfg.Bundled = *yamlCfg.Bundled
	}
	if yamlCfg.Compression != nil {
		cfg.Compression = *yamlCfg.Compression
	}
	if yamlCfg.ExtraIndex != nil {
		cfg.ExtraIndex = *yamlCfg.ExtraIndex
	}
	if yamlCfg.LogLevel != nil {
		cfg.LogLevel = *yamlCfg.LogLevel
	}
}

func applyEnvConfig(cfg *Config) error {
	var errs error

	if raw := env("BUNDLED"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%sBUNDLED: %w", envPrefix, err))
		} else {
			cfg.Bundled = v
		}
	}

	if raw := env("COMPRESSION"); raw != "" {
		cfg.Compression = raw
	}

	if raw := env("EXTRA_INDEX"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%sEXTRA_INDEX: %w", envPrefix, err))
		} else {
			cfg.ExtraIndex = v
		}
	}

	if raw := env("LOG_LEVEL"); raw != "" {
		cfg.LogLevel = raw
	}

	return errs
}

func env(name string) string {
	return strings.TrimSpace(os.Getenv(envPrefix + name))
}

func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) {
	if overrides.Bundled != nil {
		cfg.Bundled = *overrides.Bundled
	}
	if overrides.Compression != nil && *overrides.Compression != "" {
		cfg.Compression = *overrides.Compression
	}
	if overrides.ExtraIndex != nil {
		cfg.ExtraIndex = *overrides.ExtraIndex
	}
	if overrides.LogLevel != nil && *overrides.LogLevel != "" {
		cfg.LogLevel = *overrides.LogLevel
	}
}

func validateConfig(cfg Config) error {
	var errs error

	switch strings.ToLower(cfg.Compression) {
	case "none", "lz4", "lz4hc":
	default:
		errs = multierr.Append(errs, fmt.Errorf("compression must be none, lz4 or lz4hc, got %q", cfg.Compression))
	}

	if cfg.ExtraIndex < -1 {
		errs = multierr.Append(errs, fmt.Errorf("extra_index must be >= -1, got %d", cfg.ExtraIndex))
	}

	if _, err := zapcore.ParseLevel(cfg.LogLevel); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("log_level: %w", err))
	}

	return errs
}
