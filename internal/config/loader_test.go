package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"mcpe2e/internal/definition"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockConfigPaths points the user and project lookups at dir.
func mockConfigPaths(t *testing.T, dir string) (userPath, projectPath string) {
	t.Helper()

	originalGetUserConfigPath := getUserConfigPath
	originalGetProjectConfigPath := getProjectConfigPath
	t.Cleanup(func() {
		getUserConfigPath = originalGetUserConfigPath
		getProjectConfigPath = originalGetProjectConfigPath
	})

	userPath = filepath.Join(dir, "home", userConfigDir, configFileName)
	projectPath = filepath.Join(dir, "project", projectConfigDir, configFileName)
	getUserConfigPath = func() (string, error) { return userPath, nil }
	getProjectConfigPath = func() (string, error) { return projectPath, nil }
	return userPath, projectPath
}

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoadConfig_DefaultOnly(t *testing.T) {
	mockConfigPaths(t, t.TempDir())

	loaded, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), loaded)
	assert.Equal(t, 4, loaded.Concurrency)
	assert.Equal(t, 120*time.Second, loaded.ReadinessTimeout)
	assert.Equal(t, 5*time.Second, loaded.PollInterval)
	assert.Equal(t, 3, loaded.Retry.MaxAttempts)
}

func TestLoadConfig_Layering(t *testing.T) {
	userPath, projectPath := mockConfigPaths(t, t.TempDir())

	writeConfig(t, userPath, `
controlPlane:
  url: https://user.example/api
  token: "${USER_TOKEN}"
domain: user.example
concurrency: 8
retry:
  delay: 1s
`)
	writeConfig(t, projectPath, `
domain: project.example
port: 8443
readinessTimeout: 3m
skipCleanup: true
`)

	loaded, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://user.example/api", loaded.ControlPlane.URL)
	assert.Equal(t, "${USER_TOKEN}", loaded.ControlPlane.Token)
	assert.Equal(t, "project.example", loaded.Domain, "project overrides user")
	assert.Equal(t, 8443, loaded.Port)
	assert.Equal(t, 8, loaded.Concurrency)
	assert.Equal(t, 3*time.Minute, loaded.ReadinessTimeout)
	assert.True(t, loaded.SkipCleanup)
	assert.Equal(t, time.Second, loaded.Retry.Delay)
	assert.Equal(t, 3, loaded.Retry.MaxAttempts, "unset keys keep defaults")
	assert.Equal(t, "https", loaded.Protocol)
}

func TestLoadConfig_Errors(t *testing.T) {
	userPath, _ := mockConfigPaths(t, t.TempDir())

	writeConfig(t, userPath, "concurency: 2\n")
	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "concurency")

	writeConfig(t, userPath, "pollInterval: soon\n")
	_, err = LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_EmptyFile(t *testing.T) {
	userPath, _ := mockConfigPaths(t, t.TempDir())
	writeConfig(t, userPath, "\n")

	loaded, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), loaded)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ci.yaml")
	writeConfig(t, path, "domain: ci.example\nconcurrency: 1\n")

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ci.example", loaded.Domain)
	assert.Equal(t, 1, loaded.Concurrency)
	assert.Equal(t, 120*time.Second, loaded.ReadinessTimeout)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	valid := GetDefaultConfig()
	valid.ControlPlane.URL = "https://api.example"
	valid.Domain = "mcp.example"
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"missing control plane", func(c *Config) { c.ControlPlane.URL = "" }, "controlPlane.url"},
		{"missing domain", func(c *Config) { c.Domain = "" }, "domain"},
		{"bad protocol", func(c *Config) { c.Protocol = "ftp" }, "protocol"},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }, "concurrency"},
		{"zero attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }, "maxAttempts"},
		{"zero timeout", func(c *Config) { c.ReadinessTimeout = 0 }, "readinessTimeout"},
		{"bad port", func(c *Config) { c.Port = 70000 }, "port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestConfig_ResolveToken(t *testing.T) {
	cfg := GetDefaultConfig()

	token, err := cfg.ResolveToken(definition.MapLookup(nil))
	require.NoError(t, err)
	assert.Empty(t, token, "default token is optional")

	token, err = cfg.ResolveToken(definition.MapLookup(map[string]string{"MCPE2E_TOKEN": "abc"}))
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	cfg.ControlPlane.Token = "${REQUIRED_TOKEN}"
	_, err = cfg.ResolveToken(definition.MapLookup(nil))
	assert.Error(t, err)
}
