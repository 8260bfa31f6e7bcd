// Package config loads postcheck.yaml.
//
// Values from the file sit between the built-in defaults and command line
// flags: DefaultConfig().Merge(file) gives the effective file settings and
// flags override the result.
package config
