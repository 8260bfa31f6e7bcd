package output

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/abdul-hamid-achik/postcheck/packages/core/runner"
	"github.com/fatih/color"
)

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		if w != nil {
			f.writer = w
		}
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

func (f *ConsoleFormatter) FormatResult(result *runner.RunResult) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	title := result.Suite
	if result.File != "" {
		title = result.File
	}
	fmt.Fprintf(f.writer, "\n%s\n", bold("Running: "+title))

	for _, sc := range result.Scenarios {
		fmt.Fprintf(f.writer, "\n  %s\n", bold(sc.Name))

		for _, r := range sc.Steps {
			if r.Skipped {
				fmt.Fprintf(f.writer, "    %s %s", yellow("-"), r.Name)
				if r.SkipReason != "" && r.SkipReason != runner.SkipReasonFiltered {
					fmt.Fprintf(f.writer, " (%s)", r.SkipReason)
				}
				fmt.Fprintf(f.writer, "\n")
				continue
			}

			symbol := green("✓")
			if !r.Passed {
				symbol = red("✗")
			}
			fmt.Fprintf(f.writer, "    %s %s %s\n", symbol, r.Name, cyan(fmt.Sprintf("(%dms)", r.Duration.Milliseconds())))

			if f.verbose && r.Response != nil {
				fmt.Fprintf(f.writer, "      Status: %d\n", r.Response.StatusCode)
				if r.Response.RequestID != "" {
					fmt.Fprintf(f.writer, "      Request-Id: %s\n", r.Response.RequestID)
				}
			}

			if !r.Passed {
				if r.Error != nil {
					fmt.Fprintf(f.writer, "      %s %v\n", red("→"), r.Error)
				}
				for _, a := range r.Assertions {
					if a.Passed {
						continue
					}
					fmt.Fprintf(f.writer, "      %s %s %s\n", red("→"), a.Subject, a.Operator)
					fmt.Fprintf(f.writer, "        Expected: %s\n", formatValue(a.Expected, 100))
					fmt.Fprintf(f.writer, "        Actual:   %s\n", formatValue(a.Actual, 100))
					if a.Message != "" {
						fmt.Fprintf(f.writer, "        %s\n", a.Message)
					}
				}
			}

			if f.verbose && len(r.Captures) > 0 {
				names := make([]string, 0, len(r.Captures))
				for name := range r.Captures {
					names = append(names, name)
				}
				sort.Strings(names)
				fmt.Fprintf(f.writer, "      Captures:\n")
				for _, name := range names {
					fmt.Fprintf(f.writer, "        %s = %v\n", name, r.Captures[name])
				}
			}
		}
	}

	fmt.Fprintf(f.writer, "\n")
	fmt.Fprintf(f.writer, "Steps: ")
	if result.Passed > 0 {
		fmt.Fprintf(f.writer, "%s, ", green(fmt.Sprintf("%d passed", result.Passed)))
	}
	if result.Failed > 0 {
		fmt.Fprintf(f.writer, "%s, ", red(fmt.Sprintf("%d failed", result.Failed)))
	}
	if result.Skipped > 0 {
		fmt.Fprintf(f.writer, "%s, ", yellow(fmt.Sprintf("%d skipped", result.Skipped)))
	}
	total := result.Passed + result.Failed + result.Skipped
	fmt.Fprintf(f.writer, "%d total\n", total)
	if l := result.Latency; l.Count > 0 {
		fmt.Fprintf(f.writer, "Latency: p50 %dms, p95 %dms, p99 %dms\n",
			l.P50.Milliseconds(), l.P95.Milliseconds(), l.P99.Milliseconds())
	}
	fmt.Fprintf(f.writer, "Time:  %dms\n", result.Duration.Milliseconds())
	fmt.Fprintf(f.writer, "\n")
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s %s\n", bold("postcheck"), version)
}
