// Package capture extracts values from HTTP responses for use in later steps.
//
// It supports capturing values from:
//   - Response body (gjson paths)
//   - Response headers
//   - Response status code and duration
//
// Captured values are referenced by later steps of the same scenario as
// {{name}} or {{step.name}}.
package capture
