package runner

import (
	"time"

	"github.com/abdul-hamid-achik/postcheck/packages/assertions"
	"github.com/abdul-hamid-achik/postcheck/packages/http"
)

type RunResult struct {
	Suite     string
	File      string
	Scenarios []*ScenarioResult
	Results   []*StepResult
	Duration  time.Duration
	Passed    int
	Failed    int
	Skipped   int
	Latency   LatencySummary
}

func (r *RunResult) add(sr *ScenarioResult) {
	if sr == nil {
		return
	}
	r.Scenarios = append(r.Scenarios, sr)
	for _, step := range sr.Steps {
		r.Results = append(r.Results, step)
		switch {
		case step.Skipped:
			r.Skipped++
		case step.Passed:
			r.Passed++
		default:
			r.Failed++
		}
	}
}

// Success reports whether no step failed.
func (r *RunResult) Success() bool {
	return r.Failed == 0
}

// ScenarioResult groups the step results of one scenario.
type ScenarioResult struct {
	Name     string
	Tags     []string
	Steps    []*StepResult
	Duration time.Duration
}

func (s *ScenarioResult) Failed() bool {
	for _, step := range s.Steps {
		if !step.Passed && !step.Skipped {
			return true
		}
	}
	return false
}

func (s *ScenarioResult) Skipped() bool {
	for _, step := range s.Steps {
		if !step.Skipped {
			return false
		}
	}
	return true
}

type StepResult struct {
	Scenario   string
	Name       string
	Passed     bool
	Skipped    bool
	SkipReason string
	Duration   time.Duration
	Request    *http.Request
	Payload    any
	Response   *http.Response
	Assertions []*assertions.Result
	Captures   map[string]any
	Error      error
}

// FullName is "scenario / step", or just the scenario name when the step
// carries the same name.
func (s *StepResult) FullName() string {
	if s.Scenario == "" || s.Scenario == s.Name {
		return s.Name
	}
	return s.Scenario + " / " + s.Name
}
