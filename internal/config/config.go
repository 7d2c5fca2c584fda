// Package config loads and validates the xrealmd daemon configuration.
//
// Configuration comes from a YAML file with strict decoding: unknown keys
// are an error, so a typoed "enforcng" cannot silently flip the daemon into
// the default mode. Flags on the daemon binary override file values.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Syslog configures the optional syslog decision sink.
type Syslog struct {
	// Enabled turns on RFC 5424 emission to the local syslog daemon.
	Enabled bool `yaml:"enabled"`

	// Socket is the syslog socket path (default /dev/log).
	Socket string `yaml:"socket,omitempty"`
}

// Config holds the daemon configuration.
type Config struct {
	// Listen is the HTTP listen address (default 127.0.0.1:8464).
	Listen string `yaml:"listen,omitempty"`

	// DBPath is the SQLite database path. Empty means the XDG default.
	DBPath string `yaml:"db_path,omitempty"`

	// Enforcing selects enforcing (true) or monitoring (false) mode.
	// Unset means enforcing.
	Enforcing *bool `yaml:"enforcing,omitempty"`

	// AllowedRealms lists pre-approved origin realms. Clients from these
	// realms are allowed without any rule lookup.
	AllowedRealms []string `yaml:"allowed_realms,omitempty"`

	// Syslog configures the syslog decision sink.
	Syslog Syslog `yaml:"syslog,omitempty"`

	// LogLevel is one of debug, info, warn, error (default info).
	LogLevel string `yaml:"log_level,omitempty"`
}

// Default returns a configuration with defaults applied.
func Default() *Config {
	return &Config{
		Listen:   "127.0.0.1:8464",
		LogLevel: "info",
		Syslog:   Syslog{Socket: "/dev/log"},
	}
}

// Load reads a YAML config file, applies defaults for unset fields, and
// validates the result. A missing path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if cfg.Listen == "" {
		cfg.Listen = "127.0.0.1:8464"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Syslog.Socket == "" {
		cfg.Syslog.Socket = "/dev/log"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration for errors.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q (want debug, info, warn, or error)", c.LogLevel)
	}

	seen := make(map[string]struct{}, len(c.AllowedRealms))
	for _, realm := range c.AllowedRealms {
		if strings.TrimSpace(realm) == "" {
			return fmt.Errorf("allowed_realms contains an empty realm")
		}
		if _, dup := seen[realm]; dup {
			return fmt.Errorf("allowed_realms contains duplicate realm %q", realm)
		}
		seen[realm] = struct{}{}
	}
	return nil
}

// EffectiveEnforcing resolves the tri-state enforcing setting. Unset is
// enforcing, matching the fail-closed posture of the decision engine.
func (c *Config) EffectiveEnforcing() bool {
	return c.Enforcing == nil || *c.Enforcing
}
