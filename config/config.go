// Package config loads and validates the YAML configuration surface for
// a msgist instance.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the complete configuration for one msgist Library instance.
type Config struct {
	// Name namespaces this instance's image-id store (database file and
	// bucket) so multiple instances can share a host. The resource cache
	// directory is not namespaced by Name; every instance uses the same
	// fixed directory under the OS temp dir.
	Name string `yaml:"name"`

	// CipherKey is the room-encryption passphrase (§4.1).
	CipherKey string `yaml:"cipher_key"`

	// RemoteAddress maps server_id to a relay address, mirroring
	// transport.Config.ServerAddresses.
	RemoteAddress map[string]string `yaml:"remote_address"`

	// Proxy, if set, routes resource downloads through an HTTP proxy.
	Proxy string `yaml:"proxy"`

	TLS TLSConfig `yaml:"tls"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	MetricsEnabled bool `yaml:"metrics_enabled"`
}

// TLSConfig configures the transport's relay connection TLS.
type TLSConfig struct {
	TrustStorePath     string `yaml:"trust_store_path"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}

// Load reads and parses a Config from the YAML file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks cfg for the combinations the rest of the library
// assumes hold by the time it reaches Apply.
func (c *Config) Validate() error {
	var errs []string

	if c.Name == "" {
		errs = append(errs, "name is required")
	}
	if c.CipherKey == "" {
		errs = append(errs, "cipher_key is required")
	}
	if len(c.RemoteAddress) == 0 {
		errs = append(errs, "remote_address must list at least one server")
	}
	if !isValidLogLevel(c.LogLevel) {
		errs = append(errs, fmt.Sprintf("invalid log_level: %s (must be debug, info, warn, or error)", c.LogLevel))
	}
	if !isValidLogFormat(c.LogFormat) {
		errs = append(errs, fmt.Sprintf("invalid log_format: %s (must be text or json)", c.LogFormat))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func isValidLogLevel(level string) bool {
	switch level {
	case "", "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func isValidLogFormat(format string) bool {
	switch format {
	case "", "text", "json":
		return true
	default:
		return false
	}
}
