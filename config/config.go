// Package config loads the shared configuration file used by the
// ingestion tools.
//
// The file is YAML, normally at ~/.config/caomtools/config.yaml, and
// carries the credentials and endpoints that should not be baked into
// scripts: the proxy certificate path, the data web service base URL,
// and database connection parameters. Because it can hold a password
// it is created with owner-only permissions.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/eaobservatory/caomtools/database"
)

// DefaultPath is the configuration file location relative to the
// user's home directory.
const DefaultPath = ".config/caomtools/config.yaml"

// Config is the tool configuration.
type Config struct {
	// Proxy is the path to the proxy certificate used to
	// authenticate to CADC web services.
	Proxy string `yaml:"proxy,omitempty"`

	// DataWeb configures the data web service client.
	DataWeb DataWeb `yaml:"dataweb,omitempty"`

	// Database configures the metadata database. Empty means no
	// database access.
	Database database.Config `yaml:"database,omitempty"`
}

// DataWeb holds data web service settings.
type DataWeb struct {
	// BaseURL overrides the service endpoint. Empty selects the
	// production CADC service.
	BaseURL string `yaml:"base_url,omitempty"`
}

// ProxyPath returns the proxy certificate path with environment
// variables and a leading ~ expanded.
func (c *Config) ProxyPath() (string, error) {
	if c.Proxy == "" {
		return "", nil
	}
	return expandPath(c.Proxy)
}

// Path returns the default configuration file location for the current
// user.
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve home directory: %w", err)
	}
	return filepath.Join(home, DefaultPath), nil
}

// Load reads the configuration file at path.
func Load(path string) (*Config, error) {
	path, err := expandPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadDefault reads the configuration file at its default location,
// creating an empty one first if it does not exist.
func LoadDefault() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadOrCreate(path)
}

// LoadOrCreate reads the configuration file at path, writing an empty
// one first if it does not exist.
func LoadOrCreate(path string) (*Config, error) {
	path, err := expandPath(path)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := Save(path, &Config{}); err != nil {
			return nil, err
		}
	}
	return Load(path)
}

// Save writes cfg to path, creating parent directories as needed. The
// file is owner read/write only.
func Save(path string, cfg *Config) error {
	path, err := expandPath(path)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// expandPath expands environment variables and a leading ~ in path.
func expandPath(path string) (string, error) {
	path = os.ExpandEnv(path)
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("config: resolve home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path, nil
}
