package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/postcheck/packages/core/runner"
)

// Formatter interface for all output formatters
type Formatter interface {
	FormatResult(result *runner.RunResult)
	FormatError(err error)
	FormatHeader(version string)
}

// Flushable interface for formatters that need to flush output
type Flushable interface {
	Flush(totalDuration time.Duration) error
}

// Formats lists the names accepted by New.
var Formats = []string{"console", "json", "junit", "tap"}

// Options configure the console formatter; other formats ignore them.
type Options struct {
	Verbose bool
	NoColor bool
}

// New returns the formatter registered under format, writing to w.
func New(format string, w io.Writer, opts Options) (Formatter, error) {
	switch strings.ToLower(format) {
	case "", "console":
		return NewConsoleFormatter(
			WithWriter(w),
			WithVerbose(opts.Verbose),
			WithNoColor(opts.NoColor),
		), nil
	case "json":
		return NewJSONFormatter(JSONWithWriter(w)), nil
	case "junit":
		return NewJUnitFormatter(JUnitWithWriter(w)), nil
	case "tap":
		return NewTAPFormatter(TAPWithWriter(w)), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want one of %s)", format, strings.Join(Formats, ", "))
	}
}

// failureLines describes why a step failed, one line per cause.
func failureLines(r *runner.StepResult) []string {
	var lines []string
	if r.Error != nil {
		lines = append(lines, r.Error.Error())
	}
	for _, a := range r.Assertions {
		if !a.Passed {
			line := fmt.Sprintf("%s %s: expected %s, got %s", a.Subject, a.Operator,
				formatValue(a.Expected, 80), formatValue(a.Actual, 80))
			if a.Message != "" {
				line += " (" + a.Message + ")"
			}
			lines = append(lines, line)
		}
	}
	return lines
}

// formatValue formats a value for display, truncating or summarizing large values
func formatValue(v any, maxLen int) string {
	switch val := v.(type) {
	case []any:
		return fmt.Sprintf("[array with %d items]", len(val))
	case map[string]any:
		return fmt.Sprintf("{object with %d keys}", len(val))
	case map[string]string:
		return fmt.Sprintf("{map with %d entries}", len(val))
	}
	str := fmt.Sprintf("%v", v)
	if len(str) > maxLen {
		return str[:maxLen] + "..."
	}
	return str
}
