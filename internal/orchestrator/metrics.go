package orchestrator

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the counters of one invocation. They are registered on a
// private registry and exported as a node-exporter textfile.
type Metrics struct {
	registry *prometheus.Registry

	RunsTotal      *prometheus.CounterVec
	RunDuration    prometheus.Histogram
	TestCasesTotal *prometheus.CounterVec
	RetriesTotal   prometheus.Counter
}

// NewMetrics creates and registers the metrics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mcpe2e_runs_total",
			Help: "Server runs by result",
		}, []string{"result"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "mcpe2e_run_duration_seconds",
			Help:    "Wall time of a server run, provisioning and cleanup included",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
		}),
		TestCasesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mcpe2e_test_cases_total",
			Help: "Test cases by result",
		}, []string{"result"}),
		RetriesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "mcpe2e_retries_total",
			Help: "Retried requests against a control plane or server that was still starting",
		}),
	}
}

// Registry returns the registry the metrics live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRun records a finished run and its cases.
func (m *Metrics) ObserveRun(r RunResult) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(label(r.Result)).Inc()
	if r.Result != ResultSkipped {
		m.RunDuration.Observe(r.Duration.Seconds())
	}
	for _, c := range r.Cases {
		m.TestCasesTotal.WithLabelValues(label(c.Result)).Inc()
	}
}

// RetryHook returns a retry.Policy OnRetry callback counting retries.
func (m *Metrics) RetryHook() func(attempt int, err error) {
	return func(int, error) {
		if m != nil {
			m.RetriesTotal.Inc()
		}
	}
}

// WriteTextfile writes the metrics to path in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}

func label(r Result) string {
	switch r {
	case ResultPassed:
		return "passed"
	case ResultSkipped:
		return "skipped"
	default:
		return "failed"
	}
}
