package orchestrator

import (
	"context"
	"fmt"
	"io"
	"time"

	"mcpe2e/internal/definition"
	"mcpe2e/internal/scheduler"
	"mcpe2e/pkg/logging"
)

// SuiteConfig configures a Suite.
type SuiteConfig struct {
	Concurrency int
	// Target is shown in the suite header.
	Target string
	// MetricsFile receives a textfile export when non-empty.
	MetricsFile string
}

// Suite runs many servers through a Runner under the scheduler.
type Suite struct {
	runner   *Runner
	reporter *Reporter
	metrics  *Metrics
	cfg      SuiteConfig
	out      io.Writer
}

// NewSuite creates a suite writing run output to out.
func NewSuite(runner *Runner, reporter *Reporter, metrics *Metrics, cfg SuiteConfig, out io.Writer) *Suite {
	return &Suite{
		runner:   runner,
		reporter: reporter,
		metrics:  metrics,
		cfg:      cfg,
		out:      out,
	}
}

// Run executes every entry and returns the ordered results. Per-run output
// is flushed in submission order once all runs are done.
func (s *Suite) Run(ctx context.Context, entries []definition.Entry) SuiteResult {
	suite := SuiteResult{StartTime: time.Now()}

	sched := scheduler.New(s.cfg.Concurrency)
	s.reporter.ReportStart(len(entries), sched.Limit(), s.cfg.Target)

	tasks := make([]scheduler.Task[RunResult], len(entries))
	for i, entry := range entries {
		entry := entry
		tasks[i] = func(ctx context.Context, w io.Writer) RunResult {
			res := s.runner.RunServer(ctx, entry, w)
			s.reporter.ReportRun(w, res)
			return res
		}
	}

	results := scheduler.Run(ctx, sched, tasks, s.out, scheduler.WithPanicHandler(func(index int, recovered any) RunResult {
		return RunResult{
			Server:  entries[index].Server.Name,
			Version: entries[index].Server.Version,
			Result:  ResultFailed,
			Message: fmt.Sprintf("internal error: %v", recovered),
		}
	}))

	for _, res := range results {
		suite.add(res)
	}
	suite.EndTime = time.Now()
	suite.Duration = suite.EndTime.Sub(suite.StartTime)

	s.reporter.ReportSuite(suite)

	if path, err := s.reporter.SaveReport(suite); err != nil {
		logging.Warn("Suite", "Failed to save report: %v", err)
	} else if path != "" {
		logging.Info("Suite", "Report saved to %s", path)
	}

	if s.cfg.MetricsFile != "" && s.metrics != nil {
		if err := s.metrics.WriteTextfile(s.cfg.MetricsFile); err != nil {
			logging.Warn("Suite", "%v", err)
		}
	}

	return suite
}
