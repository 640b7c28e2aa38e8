package config

import (
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the portal's client configuration.
type Config struct {
	// ServerURL is the base URL of the authentication service.
	ServerURL string `yaml:"server_url"`

	// LocalityID is sent along with verification requests so the service
	// can scope the lookup. Optional.
	LocalityID string `yaml:"locality_id"`

	// StorageDir overrides where the session file lives. Empty means the
	// per-user default.
	StorageDir string `yaml:"storage_dir"`

	// Log configures logging output.
	Log LogConfig `yaml:"log"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Environment variable overrides. These win over the config file so a
// deployment can repoint a packaged portal without editing files.
const (
	envServerURL  = "PORTAL_SERVER_URL"
	envLocalityID = "PORTAL_LOCALITY_ID"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ServerURL: "https://api.acompana.example",
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from a YAML file, applies environment
// overrides, and validates the result. A missing file is not an error;
// defaults are used.
func Load(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults plus environment only.
	case err != nil:
		return nil, fmt.Errorf("read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	}

	applyEnv(config)

	if err := Validate(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

func applyEnv(config *Config) {
	if v := os.Getenv(envServerURL); v != "" {
		config.ServerURL = v
	}
	if v := os.Getenv(envLocalityID); v != "" {
		config.LocalityID = v
	}
}

// Validate checks the configuration for usability.
func Validate(config *Config) error {
	if config.ServerURL == "" {
		return fmt.Errorf("server_url is required")
	}
	u, err := url.Parse(config.ServerURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("server_url %q is not an absolute URL", config.ServerURL)
	}
	return nil
}
