package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"mcpe2e/internal/color"
	"mcpe2e/internal/config"
	"mcpe2e/internal/definition"
	"mcpe2e/internal/orchestrator"
	"mcpe2e/internal/retry"
	"mcpe2e/internal/transport"
	"mcpe2e/internal/workspace"
	"mcpe2e/pkg/logging"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// runOptions holds the flag values of the run command.
type runOptions struct {
	domain         string
	protocol       string
	port           int
	server         string
	concurrency    int
	skipCleanup    bool
	definitionsDir string
	reportPath     string
	metricsFile    string
	controlPlane   string
	debug          bool
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Deploy and test MCP servers",
		Long: `Run deploys each server definition into its own workspace and tests it.

For every server the run:
  1. skips it if its fixture says so or its status is not active
  2. resolves the fixture environment (a missing variable fails the server)
  3. creates a workspace, stores the secrets and deploys the server
  4. waits until the deployment is ready (or failed, or timed out)
  5. performs the MCP handshake and lists the tools
  6. calls every fixture test in order, stopping at the first failure
  7. deletes the workspace (unless --skip-cleanup)

Servers are tested concurrently. Output of each server is printed as one
block, in definition order, once every server is done.

The exit code is 0 only if every non-skipped server passed.

Example usage:
  mcpe2e run --domain mcp.example.com
  mcpe2e run --server context7 --concurrency 1 --debug
  mcpe2e run --skip-cleanup --report reports/`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			applyRunFlags(cmd, opts, &cfg)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			level, err := logging.ParseLevel(cfg.LogLevel)
			if err != nil {
				return err
			}
			logging.InitForCLI(level, os.Stderr)
			color.Initialize(lipgloss.HasDarkBackground())

			ctx, stop := interruptContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runSuite(ctx, cfg, opts.server, level, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.domain, "domain", "", "Domain of the gateway fronting deployed servers")
	flags.StringVar(&opts.protocol, "protocol", "", "Protocol used to reach deployed servers (http or https)")
	flags.IntVar(&opts.port, "port", 0, "Port of the gateway fronting deployed servers")
	flags.StringVar(&opts.server, "server", "", "Only test the server with this name")
	flags.IntVar(&opts.concurrency, "concurrency", 0, "Number of servers tested at once (1 runs sequentially)")
	flags.BoolVar(&opts.skipCleanup, "skip-cleanup", false, "Keep workspaces for post-mortem debugging")
	flags.StringVar(&opts.definitionsDir, "definitions", "", "Directory holding one subdirectory per server definition")
	flags.StringVar(&opts.reportPath, "report", "", "Directory to save a detailed JSON report to")
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "File to write Prometheus metrics to (textfile format)")
	flags.StringVar(&opts.controlPlane, "control-plane", "", "URL of the workspace control-plane API")
	flags.BoolVar(&opts.debug, "debug", false, "Enable debug logging and protocol tracing")

	_ = cmd.RegisterFlagCompletionFunc("protocol", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"http", "https"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("server", completeServerFlag)

	return cmd
}

// signalsReleased runs once interruptContext has handed signals back to the
// runtime. Tests replace it.
var signalsReleased = func() {}

// interruptContext is cancelled by the first of sigs. Default handling is
// restored right after, so a second signal terminates the process even while
// workspaces are being cleaned up.
func interruptContext(parent context.Context, sigs ...os.Signal) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, sigs...)
	go func() {
		<-ctx.Done()
		stop()
		signalsReleased()
	}()
	return ctx, stop
}

func loadConfig() (config.Config, error) {
	if configFile != "" {
		return config.LoadFile(configFile)
	}
	return config.LoadConfig()
}

// applyRunFlags overrides configuration values with explicitly set flags.
func applyRunFlags(cmd *cobra.Command, opts *runOptions, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("domain") {
		cfg.Domain = opts.domain
	}
	if flags.Changed("protocol") {
		cfg.Protocol = opts.protocol
	}
	if flags.Changed("port") {
		cfg.Port = opts.port
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency = opts.concurrency
	}
	if flags.Changed("skip-cleanup") {
		cfg.SkipCleanup = opts.skipCleanup
	}
	if flags.Changed("definitions") {
		cfg.DefinitionsDir = opts.definitionsDir
	}
	if flags.Changed("report") {
		cfg.ReportPath = opts.reportPath
	}
	if flags.Changed("metrics-file") {
		cfg.MetricsFile = opts.metricsFile
	}
	if flags.Changed("control-plane") {
		cfg.ControlPlane.URL = opts.controlPlane
	}
	if opts.debug {
		cfg.LogLevel = "debug"
	}
}

func runSuite(ctx context.Context, cfg config.Config, server string, level logging.LogLevel, out io.Writer) error {
	entries, err := definition.LoadDir(cfg.DefinitionsDir)
	if err != nil {
		return err
	}
	entries = definition.Filter(entries, server)
	if len(entries) == 0 {
		if server != "" {
			return fmt.Errorf("no server definition named %q in %s", server, cfg.DefinitionsDir)
		}
		return fmt.Errorf("no server definitions found in %s", cfg.DefinitionsDir)
	}

	token, err := cfg.ResolveToken(nil)
	if err != nil {
		return err
	}

	metrics := orchestrator.NewMetrics()
	policy := retry.Policy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		Delay:       cfg.Retry.Delay,
		OnRetry:     metrics.RetryHook(),
	}

	tc := transport.NewClient(transport.WithTimeout(cfg.RequestTimeout))
	manager := workspace.NewManager(
		workspace.NewClient(cfg.ControlPlane.URL, token, tc, policy),
		workspace.ManagerConfig{
			PollInterval:     cfg.PollInterval,
			ReadinessTimeout: cfg.ReadinessTimeout,
			Replicas:         cfg.Replicas,
			SkipCleanup:      cfg.SkipCleanup,
		},
		nil,
	)

	runner := orchestrator.NewRunner(manager, tc, orchestrator.RunnerConfig{
		Protocol:        cfg.Protocol,
		Domain:          cfg.Domain,
		Port:            cfg.Port,
		ProtocolVersion: cfg.ProtocolVersion,
		ClientVersion:   rootCmd.Version,
		Retry:           policy,
		LogLevel:        level,
	}, metrics)

	suite := orchestrator.NewSuite(runner, orchestrator.NewReporter(out, cfg.ReportPath), metrics, orchestrator.SuiteConfig{
		Concurrency: cfg.Concurrency,
		Target:      runner.Endpoint(""),
		MetricsFile: cfg.MetricsFile,
	}, out)

	result := suite.Run(ctx, entries)
	if !result.Success() {
		return errTestsFailed
	}
	return nil
}

// completeServerFlag completes server names from the configured definitions directory.
func completeServerFlag(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	if dir, _ := cmd.Flags().GetString("definitions"); dir != "" {
		cfg.DefinitionsDir = dir
	}
	entries, err := definition.LoadDir(cfg.DefinitionsDir)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Server.Name)
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}
