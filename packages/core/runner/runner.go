package runner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/postcheck/packages/assertions"
	"github.com/abdul-hamid-achik/postcheck/packages/capture"
	"github.com/abdul-hamid-achik/postcheck/packages/core/env"
	"github.com/abdul-hamid-achik/postcheck/packages/core/suite"
	"github.com/abdul-hamid-achik/postcheck/packages/harness"
	"github.com/abdul-hamid-achik/postcheck/packages/http"
)

const (
	// DefaultConcurrency is the default number of scenarios run at once in parallel mode
	DefaultConcurrency = 5

	SkipReasonFiltered  = "filtered out"
	SkipReasonPrevious  = "previous step failed"
	SkipReasonCancelled = "run cancelled"
	SkipReasonBail      = "bail: an earlier scenario failed"
)

var (
	// ErrInvalidBaseURL is returned when the base URL is missing or malformed.
	ErrInvalidBaseURL = errors.New("invalid base URL")
	// ErrServiceNotReady is returned when the wait-for probe times out.
	ErrServiceNotReady = errors.New("service not ready")
)

type Runner struct {
	client   *http.Client
	resolver *env.Resolver
	config   *Config
}

type Config struct {
	BaseURL        string
	Verbose        bool
	Timeout        time.Duration
	FollowRedirect bool
	Insecure       bool
	Proxy          string
	Bail           bool
	NameFilter     string
	TagsFilter     []string
	Parallel       bool
	Concurrency    int
	Headers        map[string]string
	Token          string
	RateLimit      float64
	Variables      map[string]any
	WaitFor        *WaitFor
}

func NewRunner(cfg *Config) *Runner {
	if cfg == nil {
		cfg = &Config{FollowRedirect: true}
	}

	clientOpts := []http.ClientOption{
		http.WithFollowRedirects(cfg.FollowRedirect),
		http.WithValidateSSL(!cfg.Insecure),
		http.WithDefaultHeaders(cfg.Headers),
		http.WithBearerToken(cfg.Token),
		http.WithRateLimit(cfg.RateLimit),
	}
	if cfg.Timeout > 0 {
		clientOpts = append(clientOpts, http.WithTimeout(cfg.Timeout))
	}
	if cfg.Proxy != "" {
		clientOpts = append(clientOpts, http.WithProxy(cfg.Proxy))
	}

	resolver := env.NewResolver()
	resolver.SetVariables(cfg.Variables)

	return &Runner{
		client:   http.NewClient(clientOpts...),
		resolver: resolver,
		config:   cfg,
	}
}

// Resolver is the root scope every scenario scope is cloned from.
func (r *Runner) Resolver() *env.Resolver {
	return r.resolver
}

// RunFile loads a YAML suite file and runs it.
func (r *Runner) RunFile(ctx context.Context, path string) (*RunResult, error) {
	s, err := suite.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return r.RunSuite(ctx, s)
}

// RunSuite runs the scenarios of s in declared order. Suite variables
// extend the runner's variables for this run only.
func (r *Runner) RunSuite(ctx context.Context, s *suite.Suite) (*RunResult, error) {
	if s == nil {
		return nil, errors.New("nil suite")
	}
	if r.config.BaseURL == "" {
		return nil, fmt.Errorf("%w: base URL is required", ErrInvalidBaseURL)
	}
	if err := http.ValidateURL(r.config.BaseURL); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}

	if r.config.WaitFor != nil {
		if err := r.waitForService(ctx, r.config.WaitFor); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	result := &RunResult{
		Suite: s.Name,
		File:  s.Path,
	}
	latency := newLatencyRecorder()

	root := r.resolver.Clone()
	root.SetVariables(s.Variables)

	baseDir := ""
	if s.Path != "" {
		baseDir = filepath.Dir(s.Path)
	}

	hasOnly := false
	for _, sc := range s.Scenarios {
		if sc.Only {
			hasOnly = true
			break
		}
	}

	var runnable []*suite.Scenario
	scenarioResults := make(map[*suite.Scenario]*ScenarioResult)
	for _, sc := range s.Scenarios {
		switch {
		case !r.shouldRun(sc, hasOnly):
			scenarioResults[sc] = skippedScenario(sc, SkipReasonFiltered)
		case sc.Skip != "":
			scenarioResults[sc] = skippedScenario(sc, sc.Skip)
		default:
			runnable = append(runnable, sc)
		}
	}

	exec := func(sc *suite.Scenario) *ScenarioResult {
		return r.runScenario(ctx, sc, root.Clone(), baseDir, latency)
	}

	if r.config.Parallel {
		for i, sr := range r.runParallel(runnable, exec) {
			scenarioResults[runnable[i]] = sr
		}
	} else {
		bailed := false
		for _, sc := range runnable {
			if bailed {
				scenarioResults[sc] = skippedScenario(sc, SkipReasonBail)
				continue
			}
			sr := exec(sc)
			scenarioResults[sc] = sr
			if sr.Failed() && r.config.Bail {
				bailed = true
			}
		}
	}

	for _, sc := range s.Scenarios {
		result.add(scenarioResults[sc])
	}

	result.Latency = latency.Summary()
	result.Duration = time.Since(start)
	return result, nil
}

func skippedScenario(sc *suite.Scenario, reason string) *ScenarioResult {
	sr := &ScenarioResult{Name: sc.Name, Tags: sc.Tags}
	for _, step := range sc.Steps {
		sr.Steps = append(sr.Steps, &StepResult{
			Scenario:   sc.Name,
			Name:       step.Name,
			Skipped:    true,
			SkipReason: reason,
		})
	}
	return sr
}

func (r *Runner) runParallel(scenarios []*suite.Scenario, exec func(*suite.Scenario) *ScenarioResult) []*ScenarioResult {
	concurrency := r.config.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	results := make([]*ScenarioResult, len(scenarios))
	var wg sync.WaitGroup
	sem := make(chan struct{}, concurrency)

	for i, sc := range scenarios {
		wg.Add(1)
		sem <- struct{}{}

		go func(idx int, scenario *suite.Scenario) {
			defer wg.Done()
			defer func() { <-sem }()

			results[idx] = exec(scenario)
		}(i, sc)
	}

	wg.Wait()
	return results
}

func (r *Runner) shouldRun(sc *suite.Scenario, hasOnly bool) bool {
	if hasOnly && !sc.Only {
		return false
	}

	if r.config.NameFilter != "" && !matchesPattern(sc.Name, r.config.NameFilter) {
		return false
	}

	if len(r.config.TagsFilter) > 0 && !hasAnyTag(sc.Tags, r.config.TagsFilter) {
		return false
	}

	return true
}

// runScenario runs steps strictly in order against one capture scope. The
// first failing step skips the rest of the scenario.
func (r *Runner) runScenario(ctx context.Context, sc *suite.Scenario, scope *env.Resolver, baseDir string, latency *latencyRecorder) *ScenarioResult {
	start := time.Now()
	sr := &ScenarioResult{Name: sc.Name, Tags: sc.Tags}
	h := harness.New(r.client, r.config.BaseURL, harness.WithScope(scope))

	failed := false
	for _, step := range sc.Steps {
		if failed || ctx.Err() != nil {
			reason := SkipReasonPrevious
			if !failed {
				reason = SkipReasonCancelled
			}
			sr.Steps = append(sr.Steps, &StepResult{
				Scenario:   sc.Name,
				Name:       step.Name,
				Skipped:    true,
				SkipReason: reason,
			})
			continue
		}

		res := r.runStep(ctx, h, sc.Name, step, baseDir)
		if res.Response != nil {
			latency.Record(res.Response.Duration)
		}
		sr.Steps = append(sr.Steps, res)
		failed = !res.Passed
	}

	sr.Duration = time.Since(start)
	return sr
}

func (r *Runner) runStep(ctx context.Context, h *harness.Harness, scenario string, step *suite.Step, baseDir string) *StepResult {
	result := &StepResult{
		Scenario: scenario,
		Name:     step.Name,
		Captures: make(map[string]any),
	}

	start := time.Now()
	ex, err := h.Send(ctx, harness.Call{
		Method:   step.Method,
		Path:     step.Path,
		Body:     step.Body,
		Headers:  step.Headers,
		Tolerant: step.Tolerant,
	})
	result.Duration = time.Since(start)

	if ex != nil {
		result.Request = ex.Request
		result.Payload = ex.Payload
		result.Response = ex.Response
	}
	if result.Response == nil {
		result.Error = err
		return result
	}

	opts := []assertions.EvaluatorOption{assertions.WithPayload(result.Payload)}
	if baseDir != "" {
		opts = append(opts, assertions.WithBaseDir(baseDir))
	}
	result.Assertions = assertions.EvaluateAll(result.Response, step.Assertions, opts...)

	if err != nil {
		// non-2xx on a strict step
		result.Error = err
		return result
	}
	result.Passed = assertions.AllPassed(result.Assertions)

	if len(step.Captures) > 0 {
		values, missing := capture.ExtractAll(result.Response, step.Captures)
		for name, value := range values {
			result.Captures[name] = value
			h.Scope().SetCapture(step.Name, name, value)
		}
		if len(missing) > 0 {
			result.Passed = false
			result.Error = &CaptureError{Names: missing}
		}
	}

	return result
}

// CaptureError names captures that found nothing in the response.
type CaptureError struct {
	Names []string
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture not found in response: %v", e.Names)
}

func matchesPattern(name, pattern string) bool {
	if pattern == "" {
		return true
	}

	if pattern[0] == '*' && pattern[len(pattern)-1] == '*' && len(pattern) > 1 {
		substr := pattern[1 : len(pattern)-1]
		for i := 0; i <= len(name)-len(substr); i++ {
			if name[i:i+len(substr)] == substr {
				return true
			}
		}
		return false
	}

	if pattern[0] == '*' {
		suffix := pattern[1:]
		return len(name) >= len(suffix) && name[len(name)-len(suffix):] == suffix
	}

	if pattern[len(pattern)-1] == '*' {
		prefix := pattern[:len(pattern)-1]
		return len(name) >= len(prefix) && name[:len(prefix)] == prefix
	}

	return name == pattern
}

func hasAnyTag(tags []string, filters []string) bool {
	for _, filter := range filters {
		for _, tag := range tags {
			if tag == filter {
				return true
			}
		}
	}
	return false
}
