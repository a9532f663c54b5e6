package workspace

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"mcpe2e/internal/definition"
	"mcpe2e/pkg/logging"

	"k8s.io/apimachinery/pkg/util/wait"
)

const (
	// DefaultPollInterval is the pause between two status fetches.
	DefaultPollInterval = 5 * time.Second
	// DefaultReadinessTimeout bounds the whole readiness wait.
	DefaultReadinessTimeout = 120 * time.Second
	// DefaultCleanupTimeout bounds the workspace deletion.
	DefaultCleanupTimeout = 30 * time.Second
)

// ManagerConfig tunes the lifecycle manager.
type ManagerConfig struct {
	PollInterval     time.Duration
	ReadinessTimeout time.Duration
	CleanupTimeout   time.Duration
	Replicas         int
	// SkipCleanup keeps workspaces around for post-mortem debugging.
	SkipCleanup bool
}

// Manager drives workspaces through their lifecycle.
type Manager struct {
	client *Client
	cfg    ManagerConfig
	logger *logging.Logger
}

// NewManager creates a lifecycle manager. Zero config values take defaults.
func NewManager(client *Client, cfg ManagerConfig, logger *logging.Logger) *Manager {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.ReadinessTimeout <= 0 {
		cfg.ReadinessTimeout = DefaultReadinessTimeout
	}
	if cfg.CleanupTimeout <= 0 {
		cfg.CleanupTimeout = DefaultCleanupTimeout
	}
	if cfg.Replicas <= 0 {
		cfg.Replicas = 1
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Manager{
		client: client,
		cfg:    cfg,
		logger: logger.With("Workspace"),
	}
}

// WithLogger returns a copy of the manager that logs to logger.
func (m *Manager) WithLogger(logger *logging.Logger) *Manager {
	clone := *m
	clone.logger = logger.With("Workspace")
	return &clone
}

// Deployment is what Provision deploys.
type Deployment struct {
	Server definition.Server
	// Headers are the resolved remote headers, if the server is remote.
	Headers map[string]string
	Secrets []definition.Secret
}

// Lease is a provisioned workspace. Release must be called once the run is
// over; further calls are no-ops.
type Lease struct {
	WorkspaceID string
	ServerID    string
	Status      Status

	once    sync.Once
	release func(ctx context.Context) error
	err     error
}

// Endpoint returns the service endpoint path reported by the control plane.
func (l *Lease) Endpoint() string {
	return l.Status.ServiceEndpoint
}

// Release deletes the workspace, or logs that it was kept. Only the first
// call has any effect.
func (l *Lease) Release(ctx context.Context) error {
	l.once.Do(func() {
		l.err = l.release(ctx)
	})
	return l.err
}

// Provision creates a workspace, stores the secrets, deploys the server and
// waits for readiness. The returned lease is non-nil whenever a workspace was
// created, even if a later step failed, and must then be released.
func (m *Manager) Provision(ctx context.Context, d Deployment) (*Lease, error) {
	workspaceID, err := m.client.CreateWorkspace(ctx)
	if err != nil {
		return nil, err
	}
	m.logger.Info("Created workspace %s", workspaceID)

	lease := &Lease{
		WorkspaceID: workspaceID,
		release: func(ctx context.Context) error {
			return m.Cleanup(ctx, workspaceID)
		},
	}

	for _, secret := range d.Secrets {
		if err := m.client.SetSecret(ctx, workspaceID, secret.Key, secret.Value); err != nil {
			return lease, err
		}
		m.logger.Debug("Stored secret %s", secret.Key)
	}

	serverID, err := m.client.Deploy(ctx, workspaceID, m.deployRequest(d))
	if err != nil {
		return lease, err
	}
	lease.ServerID = serverID
	m.logger.Info("Deployed %s as %s", d.Server.Name, serverID)

	status, err := m.PollUntilReady(ctx, workspaceID, serverID)
	if err != nil {
		return lease, err
	}
	lease.Status = status
	return lease, nil
}

func (m *Manager) deployRequest(d Deployment) DeployRequest {
	spec := ServerSpec{
		Name:    d.Server.Name,
		Version: d.Server.Version,
	}
	if p := d.Server.Package; p != nil {
		spec.Package = &PackageSpec{Registry: p.Registry, Identifier: p.Identifier, Version: p.Version}
	}
	if r := d.Server.Remote; r != nil {
		spec.Remote = &RemoteSpec{URL: r.URL, Headers: d.Headers}
	}

	env := make(map[string]string, len(d.Secrets))
	for _, secret := range d.Secrets {
		env[secret.Key] = secret.Value
	}

	return DeployRequest{
		Server:      spec,
		Replicas:    m.cfg.Replicas,
		Environment: env,
	}
}

// PollUntilReady fetches the instance status right away and then once per
// poll interval until it is ready. A failed phase aborts without further
// fetches; exceeding the readiness timeout yields a *TimeoutError.
func (m *Manager) PollUntilReady(ctx context.Context, workspaceID, serverID string) (Status, error) {
	var (
		last     Status
		observed bool
	)

	err := wait.PollUntilContextTimeout(ctx, m.cfg.PollInterval, m.cfg.ReadinessTimeout, true,
		func(ctx context.Context) (bool, error) {
			status, err := m.client.GetServer(ctx, workspaceID, serverID)
			if err != nil {
				return false, err
			}
			if !observed || status != last {
				m.logger.Info("Server %s: %s", serverID, status)
			}
			last, observed = status, true

			if status.Failed() {
				return false, &DeploymentFailedError{WorkspaceID: workspaceID, ServerID: serverID, Status: status}
			}
			return status.Ready(), nil
		})
	if err == nil {
		return last, nil
	}

	var failed *DeploymentFailedError
	if errors.As(err, &failed) {
		return last, err
	}
	if ctx.Err() != nil {
		return last, fmt.Errorf("waiting for server %s: %w", serverID, ctx.Err())
	}
	if wait.Interrupted(err) || errors.Is(err, context.DeadlineExceeded) {
		timeoutErr := &TimeoutError{WorkspaceID: workspaceID, ServerID: serverID, Timeout: m.cfg.ReadinessTimeout}
		if observed {
			timeoutErr.LastStatus = &last
		}
		return last, timeoutErr
	}
	return last, err
}

// Cleanup deletes the workspace unless cleanup is skipped. Failures are
// logged and returned but never fatal to the run. It runs on a context
// detached from ctx's cancellation so an interrupted run still cleans up.
func (m *Manager) Cleanup(ctx context.Context, workspaceID string) error {
	if m.cfg.SkipCleanup {
		m.logger.Info("Skipping cleanup, workspace %s retained for inspection", workspaceID)
		return nil
	}

	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.CleanupTimeout)
	defer cancel()

	if err := m.client.DeleteWorkspace(cleanupCtx, workspaceID); err != nil {
		m.logger.Warn("Cleanup of workspace %s failed: %v", workspaceID, err)
		return err
	}
	m.logger.Info("Deleted workspace %s", workspaceID)
	return nil
}
