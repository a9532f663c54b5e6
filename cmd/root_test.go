package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mcpe2e/internal/config"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetVersion(t *testing.T) {
	SetVersion("1.2.3-test")
	assert.Equal(t, "1.2.3-test", rootCmd.Version)
}

func TestRootCommand(t *testing.T) {
	assert.Equal(t, "mcpe2e", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.True(t, rootCmd.SilenceUsage)
}

func TestVersionTemplate(t *testing.T) {
	testCmd := &cobra.Command{
		Use:     "test",
		Version: "1.0.0",
	}
	testCmd.SetVersionTemplate(`{{printf "mcpe2e version %s\n" .Version}}`)

	var buf bytes.Buffer
	testCmd.SetOut(&buf)
	testCmd.SetArgs([]string{"--version"})
	require.NoError(t, testCmd.Execute())

	assert.Equal(t, "mcpe2e version 1.0.0\n", buf.String())
}

func TestSubcommands(t *testing.T) {
	found := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		found[c.Name()] = true
	}
	for _, expected := range []string{"run", "list", "version"} {
		assert.True(t, found[expected], "expected subcommand %s", expected)
	}
}

func TestRunFlags(t *testing.T) {
	cmd := newRunCmd()
	for _, name := range []string{"domain", "protocol", "port", "server", "concurrency", "skip-cleanup", "definitions", "report", "metrics-file", "control-plane", "debug"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "flag %s", name)
	}
}

func TestApplyRunFlags(t *testing.T) {
	cmd := newRunCmd()
	require.NoError(t, cmd.Flags().Parse([]string{
		"--domain", "mcp.example.com",
		"--concurrency", "1",
		"--skip-cleanup",
		"--debug",
	}))

	opts := &runOptions{}
	opts.domain, _ = cmd.Flags().GetString("domain")
	opts.concurrency, _ = cmd.Flags().GetInt("concurrency")
	opts.skipCleanup, _ = cmd.Flags().GetBool("skip-cleanup")
	opts.debug, _ = cmd.Flags().GetBool("debug")

	cfg := config.GetDefaultConfig()
	cfg.Port = 8443
	applyRunFlags(cmd, opts, &cfg)

	assert.Equal(t, "mcp.example.com", cfg.Domain)
	assert.Equal(t, 1, cfg.Concurrency)
	assert.True(t, cfg.SkipCleanup)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 8443, cfg.Port, "unset flags keep configured values")
	assert.Equal(t, 120*time.Second, cfg.ReadinessTimeout)
}

func TestListCommand(t *testing.T) {
	dir := t.TempDir()
	writeDefinition(t, dir, "echo", "package: {registry: pypi, identifier: mcp-echo}\n", "tests:\n  - tool: echo\n")
	writeDefinition(t, dir, "paid", "remote: {url: https://paid.example/mcp}\n", "skip: true\nskipReason: needs a paid plan\n")

	var out bytes.Buffer
	cmd := newListCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--definitions", dir})
	require.NoError(t, cmd.Execute())

	output := out.String()
	assert.Contains(t, output, "pypi:mcp-echo")
	assert.Contains(t, output, "https://paid.example/mcp")
	assert.Contains(t, output, "needs a paid plan")
}

func writeDefinition(t *testing.T, root, name, server, fixture string) {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "server.yaml"), []byte(server), 0644))
	if fixture != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "test.yaml"), []byte(fixture), 0644))
	}
}
