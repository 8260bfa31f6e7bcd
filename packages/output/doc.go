// Package output provides formatters for displaying run results.
//
// Supported output formats:
//   - Console: Human-readable colored terminal output grouped by scenario
//   - JSON: Machine-readable JSON output
//   - JUnit: JUnit XML with one testsuite per scenario
//   - TAP: Test Anything Protocol format
//
// Each formatter implements Formatter; JSON, JUnit and TAP also implement
// Flushable and write everything when flushed.
package output
