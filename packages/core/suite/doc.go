// Package suite defines the scenario model executed by postcheck.
//
// A Suite holds Scenarios; a Scenario is an ordered list of Steps that
// share one capture scope. Each Step describes a single HTTP request
// (method, path, optional body, tolerant flag) together with the
// assertions evaluated against its response and the values captured
// from it for later steps.
//
// Suites are declared in Go (see package posts) or loaded from YAML
// files with LoadFile.
package suite
