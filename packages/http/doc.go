// Package http provides the HTTP client postcheck sends requests with.
//
// It wraps the standard library's http package with additional features:
//   - Configurable timeouts and redirect handling
//   - Default headers and bearer tokens
//   - Client-side rate limiting
//   - A request id on every outgoing request
//   - Response handling and body reading
package http
