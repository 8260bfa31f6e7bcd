// Package env handles variable scopes and template resolution for postcheck.
//
// It provides functionality for:
//   - Loading .env files
//   - Interpolation using {{name}} syntax
//   - Built-in function evaluation ({{$randomInt()}}, {{$loremText()}}, ...)
//   - Capturing values in one step and referencing them in later steps
//   - Environment-specific variables from postcheck.yaml
package env
