// Package config handles client configuration loading.
//
// Configuration is loaded from a YAML file with support for environment
// variable expansion (${VAR} or $VAR syntax). This allows sensitive
// values like passwords and proxy secrets to be injected at runtime.
//
// # Configuration Sections
//
//   - server: base URL or SRV discovery domain, TLS, timeouts
//   - auth: authentication mode (none, basic, cookie, proxy)
//   - retry: retry policy for transient failures
//   - log: structured logging level
//
// # Example Configuration
//
//	server:
//	  url: https://db.example.com:6984
//	  responseHeaderTimeout: 30s
//
//	auth:
//	  mode: basic
//	  name: admin
//	  password: ${COUCH_PASSWORD}
//
//	retry:
//	  maxRetries: 3
//	  interval: 1s
//	  multiplier: 2.0
//
// See [Load] for loading configuration from a file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/futonlabs/couchstream/pkg/authn"
)

// Config is the root configuration structure
type Config struct {
	Server ServerConfig `yaml:"server"`
	Auth   AuthConfig   `yaml:"auth"`
	Retry  RetryConfig  `yaml:"retry"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig holds connection settings. Either URL or a discovery
// domain must be set; with a domain the endpoint is resolved from DNS
// SRV records at startup.
type ServerConfig struct {
	URL       string          `yaml:"url"`
	Discovery DiscoveryConfig `yaml:"discovery"`

	ResponseHeaderTimeout time.Duration `yaml:"responseHeaderTimeout"`
	IdleConnTimeout       time.Duration `yaml:"idleConnTimeout"`

	TLS struct {
		MinVersion         string `yaml:"minVersion"` // "1.2" or "1.3"
		CACertFile         string `yaml:"caCertFile"`
		ClientCertFile     string `yaml:"clientCertFile"`
		ClientKeyFile      string `yaml:"clientKeyFile"`
		InsecureSkipVerify bool   `yaml:"insecureSkipVerify"`
	} `yaml:"tls"`
}

// DiscoveryConfig holds DNS SRV discovery settings
type DiscoveryConfig struct {
	Domain    string `yaml:"domain"`
	Service   string `yaml:"service"`
	Scheme    string `yaml:"scheme"`
	DNSServer string `yaml:"dnsServer"`
}

// AuthConfig holds authentication settings
type AuthConfig struct {
	// Mode determines how requests are authenticated
	// - "none": no authentication
	// - "basic": name and password in the Authorization header
	// - "cookie": a session opened against _session at startup
	// - "proxy": trusted-proxy headers signed with a shared secret
	Mode string `yaml:"mode"`

	Name     string `yaml:"name"`
	Password string `yaml:"password"`

	// Proxy mode settings
	Roles  []string `yaml:"roles"`
	Secret string   `yaml:"secret"`
}

// RetryConfig holds retry policy settings
type RetryConfig struct {
	MaxRetries int           `yaml:"maxRetries"`
	Interval   time.Duration `yaml:"interval"`
	Multiplier float64       `yaml:"multiplier"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.ResponseHeaderTimeout == 0 {
		c.Server.ResponseHeaderTimeout = 30 * time.Second
	}
	if c.Server.IdleConnTimeout == 0 {
		c.Server.IdleConnTimeout = 90 * time.Second
	}
	if c.Server.Discovery.Scheme == "" {
		c.Server.Discovery.Scheme = "https"
	}
	if c.Auth.Mode == "" {
		c.Auth.Mode = "none"
	}
	if c.Retry.MaxRetries == 0 {
		c.Retry.MaxRetries = 3
	}
	if c.Retry.Interval == 0 {
		c.Retry.Interval = time.Second
	}
	if c.Retry.Multiplier == 0 {
		c.Retry.Multiplier = 2.0
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) validate() error {
	if c.Server.URL == "" && c.Server.Discovery.Domain == "" {
		return fmt.Errorf("server.url or server.discovery.domain is required")
	}

	switch c.Auth.Mode {
	case "none", "basic", "cookie", "proxy":
		// Valid modes
	default:
		return fmt.Errorf("auth.mode must be 'none', 'basic', 'cookie', or 'proxy', got '%s'", c.Auth.Mode)
	}

	if c.Auth.Mode == "basic" || c.Auth.Mode == "cookie" {
		if c.Auth.Name == "" {
			return fmt.Errorf("auth.name is required when mode is '%s'", c.Auth.Mode)
		}
	}
	if c.Auth.Mode == "proxy" && c.Auth.Name == "" {
		return fmt.Errorf("auth.name is required when mode is 'proxy'")
	}

	switch c.Server.TLS.MinVersion {
	case "", "1.2", "1.3":
		// Valid versions
	default:
		return fmt.Errorf("server.tls.minVersion must be '1.2' or '1.3', got '%s'", c.Server.TLS.MinVersion)
	}

	return nil
}

// Provider builds an authentication provider from the auth section.
// Cookie mode returns nil; the caller opens a session against
// _session with Name and Password and applies the issued cookie.
func (c *AuthConfig) Provider() (authn.Provider, error) {
	switch c.Mode {
	case "none":
		return authn.NoAuth{}, nil
	case "basic":
		return authn.NewBasicAuth(c.Name, c.Password), nil
	case "cookie":
		return nil, nil
	case "proxy":
		return authn.NewProxyAuth(c.Name, c.Roles, c.Secret), nil
	}
	return nil, fmt.Errorf("unknown auth mode '%s'", c.Mode)
}
