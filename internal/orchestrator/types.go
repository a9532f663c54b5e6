package orchestrator

import (
	"fmt"
	"time"
)

// Result is the outcome of a run or a test case.
type Result string

const (
	// ResultPassed indicates the run completed and every case passed.
	ResultPassed Result = "PASSED"
	// ResultFailed indicates a step of the run or one of its cases failed.
	ResultFailed Result = "FAILED"
	// ResultSkipped indicates the run was not attempted.
	ResultSkipped Result = "SKIPPED"
)

// CaseResult is the outcome of one test case.
type CaseResult struct {
	Name     string        `json:"name"`
	Tool     string        `json:"tool"`
	Result   Result        `json:"result"`
	Reason   string        `json:"reason,omitempty"`
	Duration time.Duration `json:"duration"`
}

// RunResult is the outcome of one server run.
type RunResult struct {
	Server      string        `json:"server"`
	Version     string        `json:"version,omitempty"`
	Result      Result        `json:"result"`
	Message     string        `json:"message,omitempty"`
	WorkspaceID string        `json:"workspaceId,omitempty"`
	Tools       []string      `json:"tools,omitempty"`
	Cases       []CaseResult  `json:"cases,omitempty"`
	StartTime   time.Time     `json:"startTime"`
	EndTime     time.Time     `json:"endTime"`
	Duration    time.Duration `json:"duration"`
}

// Passed reports whether the run passed.
func (r RunResult) Passed() bool {
	return r.Result == ResultPassed
}

// SuiteResult aggregates every run of one invocation, in submission order.
type SuiteResult struct {
	StartTime time.Time     `json:"startTime"`
	EndTime   time.Time     `json:"endTime"`
	Duration  time.Duration `json:"duration"`
	Runs      []RunResult   `json:"runs"`
	Total     int           `json:"total"`
	Passed    int           `json:"passed"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
}

// Success reports whether every non-skipped run passed.
func (s SuiteResult) Success() bool {
	return s.Failed == 0
}

func (s *SuiteResult) add(r RunResult) {
	s.Runs = append(s.Runs, r)
	s.Total++
	switch r.Result {
	case ResultPassed:
		s.Passed++
	case ResultSkipped:
		s.Skipped++
	default:
		s.Failed++
	}
}

// ValidationError is returned when a tool reply does not satisfy its expectation.
type ValidationError struct {
	Case   string
	Tool   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("test %q (tool %s) failed: %s", e.Case, e.Tool, e.Reason)
}
