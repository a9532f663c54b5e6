package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// For mocking in tests
var osUserHomeDir = os.UserHomeDir
var osGetwd = os.Getwd

const (
	userConfigDir    = ".config/mcpe2e"
	projectConfigDir = ".mcpe2e"
	configFileName   = "config.yaml"
)

// LoadConfig loads the configuration by layering default, user, and project settings.
func LoadConfig() (Config, error) {
	config := GetDefaultConfig()

	userConfigPath, err := getUserConfigPath()
	if err != nil {
		// User config is optional
		fmt.Fprintf(os.Stderr, "Warning: Could not determine user config path: %v\n", err)
	} else {
		config, err = mergeFile(config, userConfigPath)
		if err != nil {
			return Config{}, fmt.Errorf("error loading user config from %s: %w", userConfigPath, err)
		}
	}

	projectConfigPath, err := getProjectConfigPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not determine project config path: %v\n", err)
	} else {
		config, err = mergeFile(config, projectConfigPath)
		if err != nil {
			return Config{}, fmt.Errorf("error loading project config from %s: %w", projectConfigPath, err)
		}
	}

	return config, nil
}

// LoadFile layers a single explicit file over the defaults.
func LoadFile(path string) (Config, error) {
	config, err := loadConfigFromFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("error loading config from %s: %w", path, err)
	}
	return mergeConfigs(GetDefaultConfig(), config), nil
}

var getUserConfigPath = func() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir, configFileName), nil
}

var getProjectConfigPath = func() (string, error) {
	wd, err := osGetwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, projectConfigDir, configFileName), nil
}

func mergeFile(base Config, path string) (Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return base, nil
	}
	overlay, err := loadConfigFromFile(path)
	if err != nil {
		return Config{}, err
	}
	return mergeConfigs(base, overlay), nil
}

// loadConfigFromFile loads a Config from a YAML file. Unknown keys are errors.
func loadConfigFromFile(filePath string) (Config, error) {
	var config Config
	data, err := os.ReadFile(filePath)
	if err != nil {
		return Config{}, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return config, nil
	}
	decoder := yaml.NewDecoder(strings.NewReader(string(data)))
	decoder.KnownFields(true)
	if err := decoder.Decode(&config); err != nil {
		return Config{}, err
	}
	return config, nil
}

// mergeConfigs merges 'overlay' config into 'base' config. Zero values in
// the overlay leave the base untouched.
func mergeConfigs(base, overlay Config) Config {
	merged := base

	if overlay.ControlPlane.URL != "" {
		merged.ControlPlane.URL = overlay.ControlPlane.URL
	}
	if overlay.ControlPlane.Token != "" {
		merged.ControlPlane.Token = overlay.ControlPlane.Token
	}
	if overlay.Protocol != "" {
		merged.Protocol = overlay.Protocol
	}
	if overlay.Domain != "" {
		merged.Domain = overlay.Domain
	}
	if overlay.Port != 0 {
		merged.Port = overlay.Port
	}
	if overlay.DefinitionsDir != "" {
		merged.DefinitionsDir = overlay.DefinitionsDir
	}
	if overlay.Concurrency != 0 {
		merged.Concurrency = overlay.Concurrency
	}
	if overlay.SkipCleanup {
		merged.SkipCleanup = true
	}
	if overlay.Replicas != 0 {
		merged.Replicas = overlay.Replicas
	}
	if overlay.ReadinessTimeout != 0 {
		merged.ReadinessTimeout = overlay.ReadinessTimeout
	}
	if overlay.PollInterval != 0 {
		merged.PollInterval = overlay.PollInterval
	}
	if overlay.RequestTimeout != 0 {
		merged.RequestTimeout = overlay.RequestTimeout
	}
	if overlay.Retry.MaxAttempts != 0 {
		merged.Retry.MaxAttempts = overlay.Retry.MaxAttempts
	}
	if overlay.Retry.Delay != 0 {
		merged.Retry.Delay = overlay.Retry.Delay
	}
	if overlay.ProtocolVersion != "" {
		merged.ProtocolVersion = overlay.ProtocolVersion
	}
	if overlay.ReportPath != "" {
		merged.ReportPath = overlay.ReportPath
	}
	if overlay.MetricsFile != "" {
		merged.MetricsFile = overlay.MetricsFile
	}
	if overlay.LogLevel != "" {
		merged.LogLevel = overlay.LogLevel
	}

	return merged
}

// GetUserConfigDir returns the user configuration directory path
func GetUserConfigDir() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir), nil
}
