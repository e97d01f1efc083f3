package probe

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/PentesterFlow/APIProbe/internal/errors"
	"github.com/PentesterFlow/APIProbe/internal/logger"
)

// DefaultBaseURL is the API the probe was written against.
const DefaultBaseURL = "https://clear-meat-api-production.up.railway.app"

// Environment variables read by ApplyEnv.
const (
	EnvBaseURL  = "APIPROBE_BASE_URL"
	EnvUsername = "APIPROBE_USERNAME"
	EnvPassword = "APIPROBE_PASSWORD"
	EnvToken    = "APIPROBE_TOKEN"
)

// Config holds all probe configuration.
type Config struct {
	// Base URL of the API, without the version prefix
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Prefix joined onto every relative path (e.g. /api/v1)
	APIPrefix string `json:"api_prefix" yaml:"api_prefix"`

	// Request timeout
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// User agent sent with every request
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// Skip TLS certificate verification
	SkipTLSVerify bool `json:"skip_tls_verify" yaml:"skip_tls_verify"`

	// Custom headers to include in all requests
	CustomHeaders map[string]string `json:"custom_headers" yaml:"custom_headers"`

	// Authentication
	Auth AuthConfig `json:"auth" yaml:"auth"`

	// Endpoints probed by a run, in order
	Steps []Step `json:"steps" yaml:"steps"`

	// Output configuration
	Output OutputConfig `json:"output" yaml:"output"`

	// Verbose logging
	Verbose bool `json:"verbose" yaml:"verbose"`

	// Debug mode
	Debug bool `json:"debug" yaml:"debug"`

	// Log level (debug, info, warn, error); overrides Verbose and Debug
	LogLevel string `json:"log_level,omitempty" yaml:"log_level,omitempty"`
}

// AuthConfig holds login configuration.
type AuthConfig struct {
	Username   string `json:"username" yaml:"username"`
	Password   string `json:"password" yaml:"password"`
	Token      string `json:"token,omitempty" yaml:"token,omitempty"`
	LoginPath  string `json:"login_path" yaml:"login_path"`
	TokenField string `json:"token_field" yaml:"token_field"`
}

// OutputConfig holds output configuration.
type OutputConfig struct {
	Format              string `json:"format" yaml:"format"`
	FilePath            string `json:"file_path,omitempty" yaml:"file_path,omitempty"`
	RecommendationLimit int    `json:"recommendation_limit" yaml:"recommendation_limit"`
}

// DefaultSteps returns the endpoints probed when none are configured.
func DefaultSteps() []Step {
	return []Step{
		{
			Name:   "users-explore",
			Path:   "/users/explore",
			Params: map[string]interface{}{"offset": 0, "limit": 10},
		},
		{
			Name:   "products-recommendations",
			Path:   "/products/recommendations",
			Params: map[string]interface{}{"offset": 0, "page_size": 10},
		},
		{
			Name: "users-preferences",
			Path: "/users/preferences",
		},
	}
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:   DefaultBaseURL,
		APIPrefix: "/api/v1",
		Timeout:   30 * time.Second,
		UserAgent: "APIProbe/1.0",
		Auth: AuthConfig{
			LoginPath:  "/auth/login",
			TokenField: "access_token",
		},
		Steps: DefaultSteps(),
		Output: OutputConfig{
			Format:              "text",
			RecommendationLimit: 3,
		},
	}
}

// LoadFromFile loads configuration from a file (JSON or YAML).
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()

	if strings.HasSuffix(path, ".json") {
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		return config, nil
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a file.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".json") {
		data, err = json.MarshalIndent(c, "", "  ")
	} else {
		data, err = yaml.Marshal(c)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0600)
}

// ApplyEnv overrides connection and credential fields from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(EnvUsername); v != "" {
		c.Auth.Username = v
	}
	if v := os.Getenv(EnvPassword); v != "" {
		c.Auth.Password = v
	}
	if v := os.Getenv(EnvToken); v != "" {
		c.Auth.Token = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.NewConfigError("base_url", "is required")
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.NewConfigError("base_url", "must be an absolute http(s) URL")
	}

	if c.Timeout <= 0 {
		return errors.NewConfigError("timeout", "must be positive")
	}

	if c.Auth.Token == "" {
		if c.Auth.Username == "" {
			return errors.NewConfigError("auth.username", "is required unless a token is set")
		}
		if c.Auth.Password == "" {
			return errors.NewConfigError("auth.password", "is required unless a token is set")
		}
	}

	for i, step := range c.Steps {
		if step.Path == "" {
			return errors.NewConfigError(fmt.Sprintf("steps[%d].path", i), "is required")
		}
	}

	if c.LogLevel != "" {
		if _, err := logger.ParseLevel(c.LogLevel); err != nil {
			return errors.NewConfigError("log_level", fmt.Sprintf("unknown level %q", c.LogLevel))
		}
	}

	switch c.Output.Format {
	case "", "text", "json":
	default:
		return errors.NewConfigError("output.format", fmt.Sprintf("unknown format %q", c.Output.Format))
	}

	return nil
}
