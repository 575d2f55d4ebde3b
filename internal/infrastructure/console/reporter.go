package console

import (
	"fmt"
	"io"
	"os"
	"strings"

	"kosher/internal/application/port/output"
	"kosher/internal/domain/entity"

	"github.com/fatih/color"
)

var _ output.Reporter = (*Reporter)(nil)

// Reporter prints run progress to a terminal.
type Reporter struct {
	out       io.Writer
	benchmark bool
}

func NewReporter(out io.Writer) *Reporter {
	if out == nil {
		out = os.Stdout
	}
	return &Reporter{out: out}
}

func (r *Reporter) RunStarted(iteration, total int) {
	if total <= 1 {
		return
	}
	r.benchmark = true
	rule := strings.Repeat("=", 50)
	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Fprintf(r.out, "%s\nRun %d/%d\n%s\n\n", rule, iteration, total, rule)
}

func (r *Reporter) StepStarted(step entity.Step) {
	fmt.Fprintf(r.out, "  Step: %s\n", step.FullText())
}

func (r *Reporter) StepFinished(_ entity.Step, outcome entity.StepOutcome) {
	if outcome.Success {
		color.New(color.FgGreen).Fprint(r.out, "  PASS")
	} else {
		color.New(color.FgRed).Fprint(r.out, "  FAIL")
	}
	fmt.Fprintf(r.out, ": %s\n\n", truncate(outcome.Text, 300))
}

func (r *Reporter) RunFinished(iteration int, result entity.RunResult) {
	if r.benchmark {
		if result.OK() {
			fmt.Fprintf(r.out, "Run %d: %s\n\n", iteration, color.GreenString("SUCCESS"))
		} else {
			fmt.Fprintf(r.out, "Run %d: %s\n\n", iteration, color.RedString("FAILURE"))
		}
		return
	}

	fmt.Fprintln(r.out, strings.Repeat("=", 50))
	fmt.Fprintf(r.out, "Results: %s, %s\n",
		color.GreenString("%d passed", result.Passed),
		color.RedString("%d failed", result.Failed),
	)
}

func (r *Reporter) Held() {
	color.New(color.FgYellow).Fprintln(r.out, "Browser left open for review. Press Ctrl+C to exit.")
}

// Summary prints aggregated benchmark statistics.
func (r *Reporter) Summary(stats *entity.BenchmarkStats) {
	rule := strings.Repeat("=", 50)
	fmt.Fprintf(r.out, "\n%s\nBENCHMARK RESULTS\n%s\n", rule, rule)
	fmt.Fprintf(r.out, "Total runs:   %d\n", stats.Runs)
	fmt.Fprintf(r.out, "Successes:    %s\n", color.GreenString("%d", stats.Successes))
	fmt.Fprintf(r.out, "Failures:     %s\n", color.RedString("%d", stats.Failures))
	fmt.Fprintf(r.out, "Success rate: %.1f%%\n", stats.SuccessRate())

	failures := stats.FailuresByStep()
	if len(failures) == 0 {
		return
	}
	fmt.Fprintln(r.out, "\nFailures by step:")
	for _, f := range failures {
		fmt.Fprintf(r.out, "  %dx: %s\n", f.Count, f.Step)
	}
}

func (r *Reporter) Info(format string, args ...any) {
	color.New(color.Faint).Fprintf(r.out, format+"\n", args...)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
