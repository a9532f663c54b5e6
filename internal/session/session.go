// Package session drives the MCP handshake and the tool operations of one
// test run against a Streamable HTTP endpoint.
//
// A Session moves through New, Initializing and Initialized. Any failure that
// survives the retry policy moves it to Terminated, after which every
// operation fails with a *StateError.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"mcpe2e/internal/expect"
	"mcpe2e/internal/retry"
	"mcpe2e/internal/transport"
	"mcpe2e/pkg/logging"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	// HeaderSessionID carries the session token on every request after initialize.
	HeaderSessionID = "Mcp-Session-Id"

	acceptHeader = "application/json, text/event-stream"

	methodNotificationInitialized = "notifications/initialized"
)

// ErrNoTools is returned when the server advertises no tools.
var ErrNoTools = errors.New("server advertised no tools")

// State is a handshake state.
type State int

const (
	StateNew State = iota
	StateInitializing
	StateInitialized
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateInitializing:
		return "initializing"
	case StateInitialized:
		return "initialized"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// StateError is returned when an operation is attempted in the wrong state.
type StateError struct {
	Op    string
	State State
	// Cause is the error that terminated the session, if any.
	Cause error
}

func (e *StateError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("cannot %s: session is %s: %v", e.Op, e.State, e.Cause)
	}
	return fmt.Sprintf("cannot %s: session is %s", e.Op, e.State)
}

func (e *StateError) Unwrap() error {
	return e.Cause
}

// RPCError is a JSON-RPC error member.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Sender is the transport used by a Session. *transport.Client satisfies it.
type Sender interface {
	Send(ctx context.Context, method, url string, body any, headers http.Header) (*transport.Reply, error)
}

// Config configures a Session.
type Config struct {
	// Endpoint is the full URL of the MCP endpoint.
	Endpoint string
	// Headers are attached to every request, e.g. remote auth headers.
	Headers map[string]string
	// ProtocolVersion is declared in initialize. Defaults to the latest known version.
	ProtocolVersion string
	// ClientName and ClientVersion identify this client.
	ClientName    string
	ClientVersion string
	Retry         retry.Policy
	Logger        *logging.Logger
}

// Session is one MCP session. It is not safe for use by several runs;
// each run owns its own Session.
type Session struct {
	sender Sender
	cfg    Config
	logger *logging.Logger

	mu        sync.Mutex
	state     State
	sessionID string
	cause     error

	serverInfo mcp.Implementation
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

type initializeParams struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	Capabilities    mcp.ClientCapabilities `json:"capabilities"`
	ClientInfo      mcp.Implementation     `json:"clientInfo"`
}

type callToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// New creates a session in state New.
func New(sender Sender, cfg Config) *Session {
	if cfg.ProtocolVersion == "" {
		cfg.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	}
	if cfg.ClientName == "" {
		cfg.ClientName = "mcpe2e"
	}
	if cfg.ClientVersion == "" {
		cfg.ClientVersion = "dev"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Session{
		sender: sender,
		cfg:    cfg,
		logger: logger.With("Session"),
		state:  StateNew,
	}
}

// State returns the current handshake state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ID returns the session token, empty until the server assigns one.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// ServerInfo returns the implementation reported by the server during initialize.
func (s *Session) ServerInfo() mcp.Implementation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serverInfo
}

// Initialize performs the handshake: initialize followed by the initialized
// notification.
func (s *Session) Initialize(ctx context.Context) error {
	if err := s.transition("initialize", StateNew, StateInitializing); err != nil {
		return err
	}

	params := initializeParams{
		ProtocolVersion: s.cfg.ProtocolVersion,
		Capabilities:    mcp.ClientCapabilities{},
		ClientInfo: mcp.Implementation{
			Name:    s.cfg.ClientName,
			Version: s.cfg.ClientVersion,
		},
	}

	reply, err := retry.Do(ctx, s.retryPolicy("initialize"), func(ctx context.Context) (*transport.Reply, error) {
		return s.send(ctx, string(mcp.MethodInitialize), params, true)
	})
	if err != nil {
		return s.terminate(fmt.Errorf("initialize failed: %w", err))
	}

	var result mcp.InitializeResult
	if err := decodeResult(reply, &result); err != nil {
		return s.terminate(fmt.Errorf("initialize failed: %w", err))
	}

	s.mu.Lock()
	if id := reply.Header.Get(HeaderSessionID); id != "" {
		s.sessionID = id
	}
	s.serverInfo = result.ServerInfo
	s.mu.Unlock()

	s.logger.Debug("Initialized with %s %s (protocol %s, session %q)",
		result.ServerInfo.Name, result.ServerInfo.Version, result.ProtocolVersion, s.ID())

	err = retry.Run(ctx, s.retryPolicy("initialized notification"), func(ctx context.Context) error {
		_, err := s.send(ctx, methodNotificationInitialized, nil, false)
		return err
	})
	if err != nil {
		return s.terminate(fmt.Errorf("initialized notification failed: %w", err))
	}

	return s.transition("initialize", StateInitializing, StateInitialized)
}

// ListTools returns the advertised tool names in server order.
func (s *Session) ListTools(ctx context.Context) ([]string, error) {
	if err := s.require("list tools"); err != nil {
		return nil, err
	}

	reply, err := s.send(ctx, string(mcp.MethodToolsList), nil, true)
	if err != nil {
		return nil, s.terminate(fmt.Errorf("tools/list failed: %w", err))
	}

	var result mcp.ListToolsResult
	if err := decodeResult(reply, &result); err != nil {
		return nil, s.terminate(fmt.Errorf("tools/list failed: %w", err))
	}
	if len(result.Tools) == 0 {
		return nil, s.terminate(ErrNoTools)
	}

	names := make([]string, 0, len(result.Tools))
	for _, tool := range result.Tools {
		names = append(names, tool.Name)
	}
	return names, nil
}

// CallTool invokes a tool. A JSON-RPC error member is returned as a reply
// flagged as an error so that validation always fails it.
func (s *Session) CallTool(ctx context.Context, name string, args map[string]any) (*expect.Reply, error) {
	if err := s.require("call tool"); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}

	reply, err := s.send(ctx, string(mcp.MethodToolsCall), callToolParams{Name: name, Arguments: args}, true)
	if err != nil {
		return nil, s.terminate(fmt.Errorf("tools/call %s failed: %w", name, err))
	}

	var rpc response
	if err := reply.Decode(&rpc); err != nil {
		return nil, s.terminate(fmt.Errorf("tools/call %s failed: %w", name, err))
	}
	if rpc.Error != nil {
		return expect.TextReply(rpc.Error.Error(), true), nil
	}
	if len(rpc.Result) == 0 {
		return nil, s.terminate(fmt.Errorf("tools/call %s: reply has no result", name))
	}

	result, err := expect.ParseReply(rpc.Result)
	if err != nil {
		return nil, s.terminate(fmt.Errorf("tools/call %s failed: %w", name, err))
	}
	return result, nil
}

func (s *Session) send(ctx context.Context, method string, params any, withID bool) (*transport.Reply, error) {
	req := request{
		JSONRPC: mcp.JSONRPC_VERSION,
		Method:  method,
		Params:  params,
	}
	if withID {
		req.ID = uuid.NewString()
	}

	s.logger.Debug("-> %s", method)
	reply, err := s.sender.Send(ctx, http.MethodPost, s.cfg.Endpoint, req, s.headers())
	if err != nil {
		return nil, err
	}
	if withID && reply.Empty() {
		return nil, fmt.Errorf("%s: empty reply", method)
	}
	return reply, nil
}

func (s *Session) headers() http.Header {
	h := http.Header{}
	h.Set("Accept", acceptHeader)
	for name, value := range s.cfg.Headers {
		h.Set(name, value)
	}
	if id := s.ID(); id != "" {
		h.Set(HeaderSessionID, id)
	}
	return h
}

func (s *Session) retryPolicy(op string) retry.Policy {
	p := s.cfg.Retry
	next := p.OnRetry
	p.OnRetry = func(attempt int, err error) {
		s.logger.Info("%s not ready (attempt %d/%d), retrying in %s: %v", op, attempt, p.MaxAttempts, p.Delay, err)
		if next != nil {
			next(attempt, err)
		}
	}
	return p
}

func (s *Session) transition(op string, from, to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != from {
		return &StateError{Op: op, State: s.state, Cause: s.cause}
	}
	s.state = to
	return nil
}

func (s *Session) require(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInitialized {
		return &StateError{Op: op, State: s.state, Cause: s.cause}
	}
	return nil
}

func (s *Session) terminate(err error) error {
	s.mu.Lock()
	s.state = StateTerminated
	if s.cause == nil {
		s.cause = err
	}
	s.mu.Unlock()
	s.logger.Debug("Session terminated: %v", err)
	return err
}

// decodeResult unwraps a JSON-RPC response into out. An error member is fatal.
func decodeResult(reply *transport.Reply, out any) error {
	var rpc response
	if err := reply.Decode(&rpc); err != nil {
		return err
	}
	if rpc.Error != nil {
		return rpc.Error
	}
	if len(rpc.Result) == 0 {
		return fmt.Errorf("reply has no result")
	}
	if err := json.Unmarshal(rpc.Result, out); err != nil {
		return fmt.Errorf("failed to decode result: %w", err)
	}
	return nil
}
