package definition

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpolate(t *testing.T) {
	lookup := MapLookup(map[string]string{"TOKEN": "s3cret", "EMPTY": ""})

	tests := []struct {
		name     string
		template string
		want     string
		missing  []string
	}{
		{"plain value", "literal", "literal", nil},
		{"single variable", "${TOKEN}", "s3cret", nil},
		{"embedded variable", "Bearer ${TOKEN}", "Bearer s3cret", nil},
		{"default used", "${NOPE:-fallback}", "fallback", nil},
		{"default for empty", "${EMPTY:-fallback}", "fallback", nil},
		{"missing", "${NOPE}", "", []string{"NOPE"}},
		{"several missing", "${A}-${B}", "", []string{"A", "B"}},
		{"repeated missing reported once", "${A}:${B}:${A}", "", []string{"A", "B"}},
		{"set but empty", "x${EMPTY}y", "xy", nil},
		{"empty default", "${NOPE:-}", "", nil},
		{"dollar pair is literal", "pa$$word", "pa$$word", nil},
		{"positional is literal", "cost$5", "cost$5", nil},
		{"bare name is literal", "prefix-$HOME-${TOKEN}", "prefix-$HOME-s3cret", nil},
		{"trailing dollar", "50$", "50$", nil},
		{"unterminated placeholder", "${TOKEN", "${TOKEN", nil},
		{"invalid name kept", "${1X}-${TOKEN}", "${1X}-s3cret", nil},
		{"empty braces kept", "${}", "${}", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Interpolate(tt.template, lookup)
			if tt.missing != nil {
				var merr *MissingEnvError
				require.True(t, errors.As(err, &merr))
				assert.Equal(t, tt.missing, merr.Names)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFixture_ResolveEnvironment(t *testing.T) {
	fixture := Fixture{Environment: map[string]string{
		"Z_KEY": "${Z}",
		"A_KEY": "${A}",
		"STATIC": "v",
	}}

	secrets, err := fixture.ResolveEnvironment(MapLookup(map[string]string{"A": "1", "Z": "26"}))
	require.NoError(t, err)
	assert.Equal(t, []Secret{
		{Key: "A_KEY", Value: "1"},
		{Key: "STATIC", Value: "v"},
		{Key: "Z_KEY", Value: "26"},
	}, secrets)

	_, err = fixture.ResolveEnvironment(MapLookup(map[string]string{"A": "1"}))
	var merr *MissingEnvError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, []string{"Z"}, merr.Names)
	assert.Contains(t, err.Error(), "Z")
}

func TestFixture_ResolveEnvironment_SharedMissingVariable(t *testing.T) {
	fixture := Fixture{Environment: map[string]string{
		"API_KEY":   "${SHARED}",
		"API_TOKEN": "Bearer ${SHARED}",
		"OTHER":     "${OTHER_VAR}",
	}}

	_, err := fixture.ResolveEnvironment(MapLookup(nil))
	var merr *MissingEnvError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, []string{"SHARED", "OTHER_VAR"}, merr.Names)
}

func TestServer_ResolveHeaders(t *testing.T) {
	server := Server{Name: "x", Remote: &Remote{
		URL:     "https://x/mcp",
		Headers: map[string]string{"Authorization": "Bearer ${KEY}"},
	}}

	headers, err := server.ResolveHeaders(MapLookup(map[string]string{"KEY": "k"}))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Authorization": "Bearer k"}, headers)

	_, err = server.ResolveHeaders(MapLookup(nil))
	assert.Error(t, err)

	headers, err = Server{Name: "p", Package: &PackageRef{Identifier: "p"}}.ResolveHeaders(nil)
	require.NoError(t, err)
	assert.Nil(t, headers)
}
