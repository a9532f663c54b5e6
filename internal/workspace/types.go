package workspace

import (
	"fmt"
	"time"
)

// Phase is the coarse deployment phase reported by the control plane.
type Phase string

const (
	PhaseUnknown Phase = "unknown"
	PhasePending Phase = "pending"
	PhaseRunning Phase = "running"
	PhaseFailed  Phase = "failed"
)

// Status is the polled state of a deployed server instance.
type Status struct {
	Phase           Phase  `json:"phase"`
	DeploymentReady bool   `json:"deployment_ready"`
	ReadyReplicas   int    `json:"ready_replicas"`
	Replicas        int    `json:"replicas"`
	ServiceEndpoint string `json:"service_endpoint,omitempty"`
}

// Ready reports whether protocol traffic may be sent to the instance.
func (s Status) Ready() bool {
	return s.DeploymentReady && s.ReadyReplicas > 0
}

// Failed reports whether the deployment reached the terminal failure phase.
func (s Status) Failed() bool {
	return s.Phase == PhaseFailed
}

func (s Status) String() string {
	phase := s.Phase
	if phase == "" {
		phase = PhaseUnknown
	}
	return fmt.Sprintf("phase=%s ready=%t replicas=%d/%d", phase, s.DeploymentReady, s.ReadyReplicas, s.Replicas)
}

// DeploymentFailedError is returned when the control plane reports the
// terminal failure phase.
type DeploymentFailedError struct {
	WorkspaceID string
	ServerID    string
	Status      Status
}

func (e *DeploymentFailedError) Error() string {
	return fmt.Sprintf("deployment %s in workspace %s failed (%s)", e.ServerID, e.WorkspaceID, e.Status)
}

// TimeoutError is returned when readiness is not reached in time.
type TimeoutError struct {
	WorkspaceID string
	ServerID    string
	Timeout     time.Duration
	// LastStatus is the most recent status observed, if any.
	LastStatus *Status
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("deployment %s in workspace %s not ready after %s", e.ServerID, e.WorkspaceID, e.Timeout)
	if e.LastStatus != nil {
		msg += fmt.Sprintf(" (last status: %s)", e.LastStatus)
	}
	return msg
}
