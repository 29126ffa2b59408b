// Package config loads the daemon settings for docker-cron.
//
// Settings come from an optional YAML file named by the --config flag or,
// when the flag is absent, by the DOCKER_CRON_CONFIG environment variable.
// With neither set the built-in defaults apply. Command-line flags are
// applied on top by the caller.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable holding the settings file path.
const EnvConfigPath = "DOCKER_CRON_CONFIG"

// Config is the daemon configuration.
type Config struct {
	// Shell runs each command as `<shell> -c <command>`.
	Shell string `yaml:"shell"`

	// Tick is the pause between two evaluation passes.
	Tick time.Duration `yaml:"tick"`

	// Log configures status output.
	Log LogConfig `yaml:"log"`

	// Supervise enables the supervised runner when either limit is set.
	Supervise SuperviseConfig `yaml:"supervise"`
}

// LogConfig configures the logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is console or json.
	Format string `yaml:"format"`
}

// SuperviseConfig configures optional process supervision.
type SuperviseConfig struct {
	// MaxConcurrent caps running instances per job. Zero means unlimited.
	MaxConcurrent int `yaml:"max_concurrent"`

	// Timeout kills a command's process group after this long. Zero
	// disables the timeout.
	Timeout time.Duration `yaml:"timeout"`
}

// Enabled reports whether any supervision limit is configured.
func (s SuperviseConfig) Enabled() bool {
	return s.MaxConcurrent > 0 || s.Timeout > 0
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Shell: "bash",
		Tick:  time.Minute,
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Resolve loads the settings file named by path, or by EnvConfigPath when
// path is empty. With neither set it returns Default().
func Resolve(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile reads a YAML settings file over the defaults and validates it.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML settings over the defaults and validates the result.
// Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Shell == "" {
		return errors.New("shell must not be empty")
	}
	if c.Tick <= 0 {
		return fmt.Errorf("tick must be positive, got %s", c.Tick)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log format %q", c.Log.Format)
	}
	if c.Supervise.MaxConcurrent < 0 {
		return fmt.Errorf("max_concurrent must not be negative, got %d", c.Supervise.MaxConcurrent)
	}
	if c.Supervise.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Supervise.Timeout)
	}
	return nil
}
