// Package config provides runtime configuration for strata.
//
// This package handles loading configuration from multiple sources:
//   - YAML configuration files
//   - Environment variables (with STRATA_ prefix)
//   - .env files
//   - Default values
//
// # Configuration Sources Priority
//
// Configuration is loaded in the following order (later sources override earlier ones):
//  1. Default values (hardcoded)
//  2. Configuration files (./strata.yaml, ~/.strata/strata.yaml, /etc/strata/strata.yaml)
//  3. .env files
//  4. Environment variables (STRATA_ prefix)
//
// # Usage Example
//
//	cfg, err := config.Load("strata.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Engine host: %s\n", cfg.Engine.Host)
//
// # Environment Variables
//
// Environment variables override all other configuration sources.
// Use STRATA_ prefix and underscores for nested keys:
//   - STRATA_ENGINE_HOST=unix:///var/run/docker.sock
//   - STRATA_EXECUTOR_CONCURRENCY=32
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root runtime configuration for strata.
type Config struct {
	// Engine contains the container engine client connection settings.
	Engine EngineConfig `mapstructure:"engine"`

	// Executor contains the parallel executor's concurrency settings.
	Executor ExecutorConfig `mapstructure:"executor"`

	// Logging contains logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
}

// EngineConfig contains container engine connection settings (§6.2).
type EngineConfig struct {
	// Host is the Docker Engine API endpoint, e.g. "unix:///var/run/docker.sock"
	// or "tcp://127.0.0.1:2375".
	Host string `mapstructure:"host"`

	// APIVersion pins the negotiated API version; empty means negotiate
	// automatically against the daemon's reported version.
	APIVersion string `mapstructure:"api_version"`

	// DialTimeout bounds the initial connection to the engine.
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

// ExecutorConfig contains the parallel executor's tunables (§4.5).
type ExecutorConfig struct {
	// Concurrency is the maximum number of nodes the executor runs at once;
	// §4.5's default "limit" parameter is 64.
	Concurrency int `mapstructure:"concurrency"`

	// OperationTimeout bounds a single node's convergence/lifecycle call;
	// zero means no per-operation timeout beyond the caller's context.
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the log level (debug, info, warn, error).
	Level string `mapstructure:"level"`

	// Format is the log output format (json, text).
	Format string `mapstructure:"format"`
}

var cfg *Config

// Load reads configuration from a file and environment variables.
// If cfgFile is empty, it searches for strata.yaml in standard locations.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (STRATA_ prefix)
//  2. .env file
//  3. Configuration file
//  4. Default values
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("strata")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.strata")
		v.AddConfigPath("/etc/strata")
	}

	if err := v.ReadInConfig(); err != nil {
		if cfgFile != "" {
			if !isFileNotFoundError(err) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		} else {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.MergeInConfig() // ignore error if .env file doesn't exist

	v.SetEnvPrefix("STRATA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg = &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("engine.host", "unix:///var/run/docker.sock")
	v.SetDefault("engine.dial_timeout", "10s")

	v.SetDefault("executor.concurrency", 64)
	v.SetDefault("executor.operation_timeout", "0s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

func validate(cfg *Config) error {
	if cfg.Executor.Concurrency < 1 {
		return fmt.Errorf("invalid executor concurrency: %d", cfg.Executor.Concurrency)
	}
	if cfg.Engine.Host == "" {
		return fmt.Errorf("engine host is required")
	}
	return nil
}

// Get returns the configuration loaded by the most recent Load call, or nil
// if Load has not been called yet.
func Get() *Config {
	return cfg
}

// isFileNotFoundError reports whether err is the file-not-found flavor of a
// viper.ReadInConfig failure (as opposed to a parse error, which must fail
// the load even when the file path was only a default guess).
func isFileNotFoundError(err error) bool {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return errors.Is(pathErr, os.ErrNotExist)
	}
	return false
}
