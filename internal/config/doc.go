// Package config provides configuration management for mcpe2e.
//
// Configuration is loaded from multiple sources and merged in order, with
// later sources overriding earlier ones:
//
//  1. Default configuration (built in)
//  2. User configuration (~/.config/mcpe2e/config.yaml)
//  3. Project configuration (./.mcpe2e/config.yaml)
//
// Command-line flags are applied on top by the cmd package.
//
// # Configuration Structure
//
//	controlPlane:
//	  url: "https://api.example.com/v1"
//	  token: "${MCPE2E_TOKEN}"
//	protocol: https
//	domain: "mcp.example.com"
//	port: 443
//	definitionsDir: servers
//	concurrency: 4
//	skipCleanup: false
//	replicas: 1
//	readinessTimeout: 120s
//	pollInterval: 5s
//	requestTimeout: 30s
//	retry:
//	  maxAttempts: 3
//	  delay: 2s
//	reportPath: reports
//	metricsFile: /var/lib/node_exporter/mcpe2e.prom
//
// # Environment Variable Expansion
//
// The control-plane token supports ${VAR} and ${VAR:-default} expansion. It
// is resolved when the run starts, so a missing variable fails before any
// remote call is made.
package config
