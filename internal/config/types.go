package config

import (
	"fmt"
	"time"

	"mcpe2e/internal/definition"
)

// Config is the mcpe2e configuration.
type Config struct {
	// ControlPlane locates the workspace API.
	ControlPlane ControlPlaneConfig `yaml:"controlPlane"`

	// Protocol, Domain and Port locate the gateway fronting deployed servers.
	Protocol string `yaml:"protocol"`
	Domain   string `yaml:"domain"`
	Port     int    `yaml:"port"`

	// DefinitionsDir holds one subdirectory per server definition.
	DefinitionsDir string `yaml:"definitionsDir"`

	// Concurrency is the number of servers tested at once. 1 runs sequentially.
	Concurrency int  `yaml:"concurrency"`
	SkipCleanup bool `yaml:"skipCleanup"`
	Replicas    int  `yaml:"replicas"`

	ReadinessTimeout time.Duration `yaml:"readinessTimeout"`
	PollInterval     time.Duration `yaml:"pollInterval"`
	RequestTimeout   time.Duration `yaml:"requestTimeout"`

	Retry RetryConfig `yaml:"retry"`

	// ProtocolVersion is declared during the MCP handshake.
	ProtocolVersion string `yaml:"protocolVersion,omitempty"`

	// ReportPath is a directory receiving JSON reports. Empty disables them.
	ReportPath string `yaml:"reportPath,omitempty"`
	// MetricsFile receives a Prometheus textfile export. Empty disables it.
	MetricsFile string `yaml:"metricsFile,omitempty"`

	LogLevel string `yaml:"logLevel,omitempty"`
}

// ControlPlaneConfig configures the workspace API client.
type ControlPlaneConfig struct {
	URL string `yaml:"url"`
	// Token is sent as a bearer token. It may reference ${VAR} placeholders.
	Token string `yaml:"token,omitempty"`
}

// RetryConfig configures retries of requests hitting a service that is
// still starting.
type RetryConfig struct {
	MaxAttempts int           `yaml:"maxAttempts"`
	Delay       time.Duration `yaml:"delay"`
}

// Validate checks the configuration is usable for a run.
func (c Config) Validate() error {
	if c.ControlPlane.URL == "" {
		return fmt.Errorf("controlPlane.url is required")
	}
	if c.Domain == "" {
		return fmt.Errorf("domain is required")
	}
	switch c.Protocol {
	case "http", "https":
	default:
		return fmt.Errorf("protocol must be http or https, got %q", c.Protocol)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d is out of range", c.Port)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.Replicas < 1 {
		return fmt.Errorf("replicas must be at least 1, got %d", c.Replicas)
	}
	if c.ReadinessTimeout <= 0 || c.PollInterval <= 0 || c.RequestTimeout <= 0 {
		return fmt.Errorf("readinessTimeout, pollInterval and requestTimeout must be positive")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.maxAttempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.Delay < 0 {
		return fmt.Errorf("retry.delay must not be negative")
	}
	return nil
}

// ResolveToken expands placeholders in the control-plane token.
func (c Config) ResolveToken(lookup definition.LookupFunc) (string, error) {
	token, err := definition.Interpolate(c.ControlPlane.Token, lookup)
	if err != nil {
		return "", fmt.Errorf("controlPlane.token: %w", err)
	}
	return token, nil
}
