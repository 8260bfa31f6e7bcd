// Package harness sends one request to the service under test and hands
// back the response.
//
// A Harness owns the base URL and a capture scope. Paths, headers and
// bodies may reference values captured by earlier steps as {{name}};
// references are resolved before the request is sent and an unknown
// reference fails the call without sending anything.
//
// Calls are strict by default: a response outside 2xx comes back together
// with a *StatusError. Tolerant calls return any status without error so
// callers can assert on 4xx responses.
package harness
