// Package cmd implements the postcheck CLI commands using Cobra.
//
// Available commands:
//   - run: Verify a posts API with the built-in suite and extra YAML suites
//   - list: Display the scenarios and steps that would run
//   - validate: Check YAML suite files without executing them
//   - mock: Serve a fake posts backend
//   - init: Write postcheck.yaml and .env templates
//   - version: Show postcheck version information
//
// Exit codes are listed in exitcodes.go.
package cmd
