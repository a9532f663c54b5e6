package definition

import (
	"os"
	"path/filepath"
	"testing"

	"mcpe2e/internal/expect"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestLoadDir(t *testing.T) {
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "echo"), "server.yaml", `
name: echo
version: 1.0.0
package:
  registry: pypi
  identifier: mcp-echo
`)
	writeFile(t, filepath.Join(root, "echo"), "test.json", `{
  "environment": {"ECHO_TOKEN": "${ECHO_TOKEN}"},
  "tests": [
    {"name": "say hello", "tool": "echo", "arguments": {"message": "Hello", "opts": {"upper": false}},
     "expect": {"type": "text", "contains": "Hello"}}
  ]
}`)

	writeFile(t, filepath.Join(root, "asana"), "server.json", `{
  "version": "0.2.0",
  "status": "deprecated",
  "remote": {"url": "https://asana.example/mcp", "headers": {"Authorization": "Bearer ${ASANA_TOKEN}"}}
}`)

	// Directories without a server file are ignored.
	writeFile(t, filepath.Join(root, "notes"), "README.md", "nothing here")

	entries, err := LoadDir(root)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	asana := entries[0]
	assert.Equal(t, "asana", asana.Server.Name, "name defaults to the directory")
	assert.False(t, asana.Server.Active())
	require.NotNil(t, asana.Server.Remote)
	assert.Empty(t, asana.Fixture.Tests)

	echo := entries[1]
	assert.Equal(t, "echo", echo.Server.Name)
	assert.True(t, echo.Server.Active())
	require.Len(t, echo.Fixture.Tests, 1)

	tc := echo.Fixture.Tests[0]
	assert.Equal(t, "echo", tc.Tool)
	assert.Equal(t, "Hello", tc.Arguments["message"])
	assert.Equal(t, map[string]any{"upper": false}, tc.Arguments["opts"])
	require.NotNil(t, tc.Expect)
	assert.Equal(t, expect.KindText, tc.Expect.Type)
	require.NotNil(t, tc.Expect.Contains)
	assert.Equal(t, "Hello", *tc.Expect.Contains)
}

func TestLoadEntry_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		server  string
		fixture string
		errMsg  string
	}{
		{
			name:   "no descriptor",
			server: "name: x\n",
			errMsg: "either package or remote",
		},
		{
			name:   "unknown field",
			server: "name: x\npackage: {identifier: y}\nbogus: 1\n",
			errMsg: "bogus",
		},
		{
			name:    "unknown expectation kind",
			server:  "name: x\npackage: {identifier: y}\n",
			fixture: "tests:\n  - tool: t\n    expect: {type: regex}\n",
			errMsg:  "unknown expectation type",
		},
		{
			name:    "missing tool",
			server:  "name: x\npackage: {identifier: y}\n",
			fixture: "tests:\n  - name: nameless\n",
			errMsg:  "tool is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, "server.yaml", tt.server)
			if tt.fixture != "" {
				writeFile(t, dir, "test.yaml", tt.fixture)
			}
			_, _, err := LoadEntry(dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestFilter(t *testing.T) {
	entries := []Entry{{Server: Server{Name: "a"}}, {Server: Server{Name: "b"}}}

	assert.Len(t, Filter(entries, ""), 2)
	filtered := Filter(entries, "b")
	require.Len(t, filtered, 1)
	assert.Equal(t, "b", filtered[0].Server.Name)
	assert.Empty(t, Filter(entries, "c"))
}
