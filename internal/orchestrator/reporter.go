package orchestrator

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"mcpe2e/internal/color"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-runewidth"
)

const maxMessageWidth = 72

// Reporter renders run results for humans and writes the JSON report.
type Reporter struct {
	out        io.Writer
	reportPath string
}

// NewReporter creates a reporter writing to out. reportPath is a directory
// receiving a timestamped JSON report; empty disables it.
func NewReporter(out io.Writer, reportPath string) *Reporter {
	return &Reporter{out: out, reportPath: reportPath}
}

// ReportStart prints the suite header.
func (r *Reporter) ReportStart(total, concurrency int, target string) {
	fmt.Fprintf(r.out, "Running %d server(s) against %s with concurrency %d\n\n", total, target, concurrency)
}

// ReportRun writes the one-line verdict of a run to w.
func (r *Reporter) ReportRun(w io.Writer, res RunResult) {
	line := fmt.Sprintf("%s %s", statusLabel(res.Result), res.Server)
	if res.Version != "" {
		line += color.DimStyle.Render(" " + res.Version)
	}
	if res.Message != "" {
		line += ": " + res.Message
	}
	if res.Result != ResultSkipped {
		line += color.DimStyle.Render(fmt.Sprintf(" (%s)", res.Duration.Round(time.Millisecond)))
	}
	fmt.Fprintln(w, line)
}

// ReportSuite prints the summary table.
func (r *Reporter) ReportSuite(suite SuiteResult) {
	fmt.Fprintln(r.out)

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Footer = text.FormatDefault
	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("SERVER"),
		text.FgHiCyan.Sprint("RESULT"),
		text.FgHiCyan.Sprint("TESTS"),
		text.FgHiCyan.Sprint("DURATION"),
		text.FgHiCyan.Sprint("MESSAGE"),
	})

	for _, run := range suite.Runs {
		passed := 0
		for _, c := range run.Cases {
			if c.Result == ResultPassed {
				passed++
			}
		}
		duration := "-"
		if run.Result != ResultSkipped {
			duration = run.Duration.Round(time.Second).String()
		}
		t.AppendRow(table.Row{
			run.Server,
			statusLabel(run.Result),
			fmt.Sprintf("%d/%d", passed, len(run.Cases)),
			duration,
			runewidth.Truncate(run.Message, maxMessageWidth, "..."),
		})
	}

	t.AppendFooter(table.Row{
		"TOTAL",
		fmt.Sprintf("%d/%d", suite.Passed, suite.Total-suite.Skipped),
		"",
		suite.Duration.Round(time.Second).String(),
		fmt.Sprintf("%d passed, %d failed, %d skipped", suite.Passed, suite.Failed, suite.Skipped),
	})
	t.Render()

	if suite.Success() {
		fmt.Fprintln(r.out, color.PassStyle.Render("\nAll servers passed"))
	} else {
		fmt.Fprintln(r.out, color.FailStyle.Render(fmt.Sprintf("\n%d server(s) failed", suite.Failed)))
	}
}

// SaveReport writes the suite as JSON into the report directory and returns
// the file path.
func (r *Reporter) SaveReport(suite SuiteResult) (string, error) {
	if r.reportPath == "" {
		return "", nil
	}
	if err := os.MkdirAll(r.reportPath, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	filename := fmt.Sprintf("mcpe2e-report-%s.json", suite.StartTime.Format("20060102-150405"))
	fullPath := filepath.Join(r.reportPath, filename)

	data, err := json.MarshalIndent(suite, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report to JSON: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report file: %w", err)
	}
	return fullPath, nil
}

func statusLabel(result Result) string {
	switch result {
	case ResultPassed:
		return color.PassStyle.Render("PASS")
	case ResultFailed:
		return color.FailStyle.Render("FAIL")
	case ResultSkipped:
		return color.SkipStyle.Render("SKIP")
	default:
		return string(result)
	}
}
