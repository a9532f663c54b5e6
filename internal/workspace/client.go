package workspace

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"mcpe2e/internal/retry"
	"mcpe2e/internal/transport"
)

// Sender is the transport used by the control-plane client.
type Sender interface {
	Send(ctx context.Context, method, url string, body any, headers http.Header) (*transport.Reply, error)
}

// ServerSpec is the server definition sent with a deployment.
type ServerSpec struct {
	Name    string       `json:"name"`
	Version string       `json:"version,omitempty"`
	Package *PackageSpec `json:"package,omitempty"`
	Remote  *RemoteSpec  `json:"remote,omitempty"`
}

// PackageSpec references a managed package.
type PackageSpec struct {
	Registry   string `json:"registry,omitempty"`
	Identifier string `json:"identifier"`
	Version    string `json:"version,omitempty"`
}

// RemoteSpec points at a hosted server. Headers are already resolved.
type RemoteSpec struct {
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
}

// DeployRequest is the body of a deployment call.
type DeployRequest struct {
	Server      ServerSpec        `json:"server"`
	Replicas    int               `json:"replicas"`
	Environment map[string]string `json:"environment"`
}

// Client talks to the control-plane API. Every call goes through the retry
// policy so a control plane that is still warming up is tolerated.
type Client struct {
	baseURL string
	token   string
	sender  Sender
	retry   retry.Policy
}

// NewClient creates a control-plane client. token is sent as a bearer token
// when non-empty.
func NewClient(baseURL, token string, sender Sender, policy retry.Policy) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		sender:  sender,
		retry:   policy,
	}
}

// CreateWorkspace creates a new workspace and returns its id.
func (c *Client) CreateWorkspace(ctx context.Context) (string, error) {
	var out struct {
		WorkspaceID string `json:"workspace_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/workspaces", struct{}{}, &out); err != nil {
		return "", fmt.Errorf("failed to create workspace: %w", err)
	}
	if out.WorkspaceID == "" {
		return "", fmt.Errorf("failed to create workspace: response has no workspace_id")
	}
	return out.WorkspaceID, nil
}

// SetSecret stores one secret in the workspace.
func (c *Client) SetSecret(ctx context.Context, workspaceID, key, value string) error {
	path := fmt.Sprintf("/workspaces/%s/secrets/%s", url.PathEscape(workspaceID), url.PathEscape(key))
	body := map[string]string{"secret_value": value}
	if err := c.do(ctx, http.MethodPut, path, body, nil); err != nil {
		return fmt.Errorf("failed to set secret %s: %w", key, err)
	}
	return nil
}

// Deploy deploys a server into the workspace and returns the instance id.
func (c *Client) Deploy(ctx context.Context, workspaceID string, req DeployRequest) (string, error) {
	var out struct {
		ServerID string `json:"server_id"`
	}
	path := fmt.Sprintf("/workspaces/%s/servers", url.PathEscape(workspaceID))
	if err := c.do(ctx, http.MethodPost, path, req, &out); err != nil {
		return "", fmt.Errorf("failed to deploy %s: %w", req.Server.Name, err)
	}
	if out.ServerID == "" {
		return "", fmt.Errorf("failed to deploy %s: response has no server_id", req.Server.Name)
	}
	return out.ServerID, nil
}

// GetServer fetches the status of a deployed instance.
func (c *Client) GetServer(ctx context.Context, workspaceID, serverID string) (Status, error) {
	var out struct {
		Status Status `json:"status"`
	}
	path := fmt.Sprintf("/workspaces/%s/servers/%s", url.PathEscape(workspaceID), url.PathEscape(serverID))
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return Status{}, fmt.Errorf("failed to get server %s: %w", serverID, err)
	}
	return out.Status, nil
}

// DeleteWorkspace deletes a workspace and everything deployed into it.
func (c *Client) DeleteWorkspace(ctx context.Context, workspaceID string) error {
	path := fmt.Sprintf("/workspaces/%s", url.PathEscape(workspaceID))
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("failed to delete workspace %s: %w", workspaceID, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	headers := http.Header{}
	headers.Set("Accept", "application/json")
	if c.token != "" {
		headers.Set("Authorization", "Bearer "+c.token)
	}

	reply, err := retry.Do(ctx, c.retry, func(ctx context.Context) (*transport.Reply, error) {
		return c.sender.Send(ctx, method, c.baseURL+path, body, headers)
	})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return reply.Decode(out)
}
