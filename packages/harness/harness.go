package harness

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/postcheck/packages/core/env"
	"github.com/abdul-hamid-achik/postcheck/packages/http"
)

// ErrUnsupportedMethod is returned for methods other than GET, POST, PUT and DELETE.
var ErrUnsupportedMethod = errors.New("unsupported method")

// StatusError is returned by a non-tolerant call whose response status is
// outside 2xx. The response is still returned alongside it.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.StatusCode, body)
}

// TransportError is returned when a request got no response at all:
// connection failures, timeouts and unreadable bodies.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Call describes one request. Path, header values and string leaves of
// Body may reference captured identifiers as {{name}}.
type Call struct {
	Method   string
	Path     string
	Body     any
	Headers  map[string]string
	Tolerant bool
}

// Exchange is what a call produced: the request sent, the resolved payload
// and the response. Response is nil when the request never completed.
type Exchange struct {
	Request  *http.Request
	Payload  any
	Response *http.Response
}

type Harness struct {
	client  *http.Client
	baseURL string
	scope   *env.Resolver
	headers map[string]string
}

type Option func(*Harness)

// WithScope runs the harness against an existing capture scope.
func WithScope(scope *env.Resolver) Option {
	return func(h *Harness) {
		h.scope = scope
	}
}

// WithHeaders adds headers to every call. Call headers win on conflict.
func WithHeaders(headers map[string]string) Option {
	return func(h *Harness) {
		for k, v := range headers {
			h.headers[k] = v
		}
	}
}

func New(client *http.Client, baseURL string, opts ...Option) *Harness {
	h := &Harness{
		client:  client,
		baseURL: baseURL,
		headers: make(map[string]string),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.scope == nil {
		h.scope = env.NewResolver()
	}
	return h
}

// Scope is the capture scope calls resolve their references against.
func (h *Harness) Scope() *env.Resolver {
	return h.scope
}

func (h *Harness) BaseURL() string {
	return h.baseURL
}

// RunScenario sends one request and returns its response. A non-2xx status
// is a *StatusError unless tolerant is set.
func (h *Harness) RunScenario(ctx context.Context, method, path string, body any, tolerant bool) (*http.Response, error) {
	ex, err := h.Send(ctx, Call{
		Method:   method,
		Path:     path,
		Body:     body,
		Tolerant: tolerant,
	})
	if ex == nil {
		return nil, err
	}
	return ex.Response, err
}

// Send resolves references in c, sends it and checks the status.
func (h *Harness) Send(ctx context.Context, c Call) (*Exchange, error) {
	method := strings.ToUpper(c.Method)
	if !isSupported(method) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMethod, c.Method)
	}

	path, err := h.scope.ResolveStrict(c.Path)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, c.Path, err)
	}

	payload, err := h.scope.ResolveValue(c.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: body: %w", method, path, err)
	}

	req, err := http.NewJSONRequest(method, http.JoinURL(h.baseURL, path), payload)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	for k, v := range h.headers {
		req.SetHeader(k, v)
	}
	for k, v := range c.Headers {
		resolved, err := h.scope.ResolveStrict(v)
		if err != nil {
			return nil, fmt.Errorf("%s %s: header %s: %w", method, path, k, err)
		}
		req.SetHeader(k, resolved)
	}

	ex := &Exchange{Request: req, Payload: payload}

	resp, err := h.client.Do(ctx, req)
	if err != nil {
		return ex, &TransportError{Method: method, Path: path, Err: err}
	}
	ex.Response = resp

	if !c.Tolerant && !resp.IsSuccess() {
		return ex, &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       resp.BodyString(),
		}
	}
	return ex, nil
}

func isSupported(method string) bool {
	switch method {
	case "GET", "POST", "PUT", "DELETE":
		return true
	}
	return false
}
