package logging

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLogger_WritesSubsystemAndError(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, LevelDebug).With("Workspace")

	logger.Info("created workspace %s", "ws-1")
	logger.Error(errors.New("boom"), "cleanup failed")

	out := buf.String()
	assert.Contains(t, out, "created workspace ws-1")
	assert.Contains(t, out, "subsystem=Workspace")
	assert.Contains(t, out, "error=boom")
	assert.Equal(t, "Workspace", logger.Subsystem())
}

func TestLogger_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, LevelWarn)

	logger.Debug("hidden")
	logger.Info("hidden too")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestInitForCLI(t *testing.T) {
	var buf bytes.Buffer
	InitForCLI(LevelInfo, &buf)

	Info("CLI", "hello %d", 42)
	Debug("CLI", "not visible")

	assert.Contains(t, buf.String(), "hello 42")
	assert.NotContains(t, buf.String(), "not visible")
}
