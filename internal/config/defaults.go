package config

import (
	"time"
)

// GetDefaultConfig returns the built-in defaults. Target location and
// control-plane URL have no sensible default and must be configured.
func GetDefaultConfig() Config {
	return Config{
		ControlPlane: ControlPlaneConfig{
			Token: "${MCPE2E_TOKEN:-}",
		},
		Protocol:         "https",
		Port:             443,
		DefinitionsDir:   "servers",
		Concurrency:      4,
		Replicas:         1,
		ReadinessTimeout: 120 * time.Second,
		PollInterval:     5 * time.Second,
		RequestTimeout:   30 * time.Second,
		Retry: RetryConfig{
			MaxAttempts: 3,
			Delay:       2 * time.Second,
		},
		LogLevel: "info",
	}
}
