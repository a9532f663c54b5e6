package definition

import (
	"fmt"

	"mcpe2e/internal/expect"
)

// Status is the lifecycle flag of a server definition.
type Status string

const (
	StatusActive     Status = "active"
	StatusDeprecated Status = "deprecated"
	StatusDeleted    Status = "deleted"
)

// Server is an immutable server definition.
type Server struct {
	// Name is the unique identifier of the server, e.g. "context7".
	Name string `yaml:"name" json:"name"`
	// Version of the server definition.
	Version string `yaml:"version" json:"version"`
	// Description is informational only.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	// Status defaults to active when empty.
	Status Status `yaml:"status,omitempty" json:"status,omitempty"`
	// Package references a managed package the control plane knows how to run.
	Package *PackageRef `yaml:"package,omitempty" json:"package,omitempty"`
	// Remote points at an already hosted server.
	Remote *Remote `yaml:"remote,omitempty" json:"remote,omitempty"`
}

// PackageRef identifies a managed package.
type PackageRef struct {
	Registry   string `yaml:"registry" json:"registry"`
	Identifier string `yaml:"identifier" json:"identifier"`
	Version    string `yaml:"version,omitempty" json:"version,omitempty"`
}

// Remote is a directly reachable server. Header values are templates that may
// reference ${VAR} placeholders.
type Remote struct {
	URL     string            `yaml:"url" json:"url"`
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
}

// Active reports whether the definition should be exercised.
func (s Server) Active() bool {
	return s.Status == "" || s.Status == StatusActive
}

// Validate checks the definition is usable.
func (s Server) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("server name is required")
	}
	switch s.Status {
	case "", StatusActive, StatusDeprecated, StatusDeleted:
	default:
		return fmt.Errorf("server %s: unknown status %q", s.Name, s.Status)
	}
	if s.Package == nil && s.Remote == nil {
		return fmt.Errorf("server %s: either package or remote must be set", s.Name)
	}
	if s.Package != nil && s.Remote != nil {
		return fmt.Errorf("server %s: package and remote are mutually exclusive", s.Name)
	}
	if s.Package != nil && s.Package.Identifier == "" {
		return fmt.Errorf("server %s: package identifier is required", s.Name)
	}
	if s.Remote != nil && s.Remote.URL == "" {
		return fmt.Errorf("server %s: remote url is required", s.Name)
	}
	return nil
}

// Fixture is the optional per-server test definition.
type Fixture struct {
	Skip       bool   `yaml:"skip,omitempty" json:"skip,omitempty"`
	SkipReason string `yaml:"skipReason,omitempty" json:"skipReason,omitempty"`
	// Environment maps variable names to value templates such as "${API_KEY}".
	Environment map[string]string `yaml:"environment,omitempty" json:"environment,omitempty"`
	Tests       []TestCase        `yaml:"tests,omitempty" json:"tests,omitempty"`
}

// TestCase is one tool invocation with an optional expectation.
type TestCase struct {
	Name      string              `yaml:"name,omitempty" json:"name,omitempty"`
	Tool      string              `yaml:"tool" json:"tool"`
	Arguments map[string]any      `yaml:"arguments,omitempty" json:"arguments,omitempty"`
	Expect    *expect.Expectation `yaml:"expect,omitempty" json:"expect,omitempty"`
}

// DisplayName returns the case name, falling back to the tool name.
func (tc TestCase) DisplayName() string {
	if tc.Name != "" {
		return tc.Name
	}
	return tc.Tool
}

// Validate checks the fixture is well formed.
func (f Fixture) Validate() error {
	for i, tc := range f.Tests {
		if tc.Tool == "" {
			return fmt.Errorf("test %d (%s): tool is required", i+1, tc.Name)
		}
		if err := tc.Expect.Validate(); err != nil {
			return fmt.Errorf("test %d (%s): %w", i+1, tc.DisplayName(), err)
		}
	}
	return nil
}

// Entry pairs a server definition with its fixture.
type Entry struct {
	Server  Server
	Fixture Fixture
	// Dir is the directory the entry was loaded from.
	Dir string
}
