package orchestrator

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"mcpe2e/internal/definition"
	"mcpe2e/internal/expect"
	"mcpe2e/internal/retry"
	"mcpe2e/internal/session"
	"mcpe2e/internal/workspace"
	"mcpe2e/pkg/logging"
)

// RunnerConfig configures how a single server run reaches its endpoint.
type RunnerConfig struct {
	// Protocol, Domain and Port locate the gateway fronting deployed servers.
	Protocol string
	Domain   string
	Port     int
	// ProtocolVersion is declared during the handshake.
	ProtocolVersion string
	// ClientVersion is reported as the client implementation version.
	ClientVersion string
	// Retry governs handshake retries.
	Retry retry.Policy
	// Lookup resolves environment templates. Defaults to os.LookupEnv.
	Lookup definition.LookupFunc
	// LogLevel applies to the per-run log buffer.
	LogLevel logging.LogLevel
}

// Runner executes the full lifecycle of one server run.
type Runner struct {
	manager *workspace.Manager
	sender  session.Sender
	cfg     RunnerConfig
	metrics *Metrics
}

// NewRunner creates a runner.
func NewRunner(manager *workspace.Manager, sender session.Sender, cfg RunnerConfig, metrics *Metrics) *Runner {
	if cfg.Protocol == "" {
		cfg.Protocol = "https"
	}
	if cfg.Lookup == nil {
		cfg.Lookup = os.LookupEnv
	}
	return &Runner{
		manager: manager,
		sender:  sender,
		cfg:     cfg,
		metrics: metrics,
	}
}

// Endpoint builds the protocol URL of a deployed server.
func (r *Runner) Endpoint(servicePath string) string {
	if servicePath != "" && !strings.HasPrefix(servicePath, "/") {
		servicePath = "/" + servicePath
	}
	if r.cfg.Port > 0 {
		return fmt.Sprintf("%s://%s:%d%s", r.cfg.Protocol, r.cfg.Domain, r.cfg.Port, servicePath)
	}
	return fmt.Sprintf("%s://%s%s", r.cfg.Protocol, r.cfg.Domain, servicePath)
}

// RunServer runs one server definition end to end. It never returns an
// error; every failure is folded into the result. Logs go to w.
func (r *Runner) RunServer(ctx context.Context, entry definition.Entry, w io.Writer) RunResult {
	logger := logging.New(w, r.cfg.LogLevel).With("Runner")

	result := RunResult{
		Server:    entry.Server.Name,
		Version:   entry.Server.Version,
		StartTime: time.Now(),
	}
	defer func() {
		result.EndTime = time.Now()
		result.Duration = result.EndTime.Sub(result.StartTime)
		r.metrics.ObserveRun(result)
	}()

	if reason, skip := skipReason(entry); skip {
		logger.Info("Skipping %s: %s", entry.Server.Name, reason)
		result.Result = ResultSkipped
		result.Message = reason
		return result
	}

	if err := r.run(ctx, entry, logger, &result); err != nil {
		logger.Error(err, "Run of %s failed", entry.Server.Name)
		result.Result = ResultFailed
		result.Message = err.Error()
		return result
	}

	result.Result = ResultPassed
	if len(result.Cases) == 0 {
		result.Message = fmt.Sprintf("%d tools available", len(result.Tools))
	} else {
		result.Message = fmt.Sprintf("%d/%d tests passed", len(result.Cases), len(result.Cases))
	}
	return result
}

func skipReason(entry definition.Entry) (string, bool) {
	if entry.Fixture.Skip {
		reason := entry.Fixture.SkipReason
		if reason == "" {
			reason = "skipped by fixture"
		}
		return reason, true
	}
	if !entry.Server.Active() {
		return fmt.Sprintf("server status is %s", entry.Server.Status), true
	}
	return "", false
}

func (r *Runner) run(ctx context.Context, entry definition.Entry, logger *logging.Logger, result *RunResult) error {
	// Fixture problems are fatal before any remote call.
	secrets, err := entry.Fixture.ResolveEnvironment(r.cfg.Lookup)
	if err != nil {
		return err
	}
	headers, err := entry.Server.ResolveHeaders(r.cfg.Lookup)
	if err != nil {
		return err
	}

	lease, err := r.manager.WithLogger(logger).Provision(ctx, workspace.Deployment{
		Server:  entry.Server,
		Headers: headers,
		Secrets: secrets,
	})
	if lease != nil {
		result.WorkspaceID = lease.WorkspaceID
		defer func() {
			// Cleanup failures are logged by the manager and never fail the run.
			_ = lease.Release(ctx)
		}()
	}
	if err != nil {
		return err
	}

	endpoint := r.Endpoint(lease.Endpoint())
	logger.Info("Connecting to %s", endpoint)

	sess := session.New(r.sender, session.Config{
		Endpoint:        endpoint,
		Headers:         headers,
		ProtocolVersion: r.cfg.ProtocolVersion,
		ClientVersion:   r.cfg.ClientVersion,
		Retry:           r.cfg.Retry,
		Logger:          logger,
	})

	if err := sess.Initialize(ctx); err != nil {
		return err
	}

	tools, err := sess.ListTools(ctx)
	if err != nil {
		return err
	}
	result.Tools = tools
	logger.Info("%s advertises %d tools: %s", entry.Server.Name, len(tools), strings.Join(tools, ", "))

	for _, tc := range entry.Fixture.Tests {
		caseResult := r.runCase(ctx, sess, tc, tools, logger)
		result.Cases = append(result.Cases, caseResult)
		if caseResult.Result != ResultPassed {
			return &ValidationError{Case: tc.DisplayName(), Tool: tc.Tool, Reason: caseResult.Reason}
		}
	}
	return nil
}

func (r *Runner) runCase(ctx context.Context, sess *session.Session, tc definition.TestCase, tools []string, logger *logging.Logger) CaseResult {
	start := time.Now()
	res := CaseResult{Name: tc.DisplayName(), Tool: tc.Tool}

	if !slices.Contains(tools, tc.Tool) {
		logger.Warn("Tool %s is not in the advertised tool list", tc.Tool)
	}

	reply, err := sess.CallTool(ctx, tc.Tool, tc.Arguments)
	res.Duration = time.Since(start)
	if err != nil {
		res.Reason = fmt.Sprintf("call failed: %v", err)
		res.Result = ResultFailed
		return res
	}

	outcome := expect.Validate(reply, tc.Expect)
	if !outcome.Passed {
		logger.Info("FAIL %s: %s", res.Name, outcome.Reason)
		res.Result = ResultFailed
		res.Reason = outcome.Reason
		return res
	}

	logger.Info("PASS %s (%s)", res.Name, res.Duration.Round(time.Millisecond))
	res.Result = ResultPassed
	return res
}
