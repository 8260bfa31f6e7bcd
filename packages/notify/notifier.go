// Package notify posts run summaries to chat webhooks.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abdul-hamid-achik/postcheck/packages/core/runner"
)

// NotifyOn specifies when to send notifications
type NotifyOn string

const (
	// NotifyAlways sends notifications for every run
	NotifyAlways NotifyOn = "always"
	// NotifyFailure sends notifications only when steps fail
	NotifyFailure NotifyOn = "failure"
	// NotifySuccess sends notifications only when every step passes
	NotifySuccess NotifyOn = "success"
	// NotifyRecovery sends notifications on failure and when a run recovers
	NotifyRecovery NotifyOn = "recovery"
)

// ParseNotifyOn validates a policy name.
func ParseNotifyOn(s string) (NotifyOn, error) {
	switch n := NotifyOn(s); n {
	case NotifyAlways, NotifyFailure, NotifySuccess, NotifyRecovery:
		return n, nil
	}
	return "", fmt.Errorf("unknown notify policy %q (want always, failure, success or recovery)", s)
}

// RunSummary represents the summary of a run for notifications
type RunSummary struct {
	BaseURL       string        `json:"base_url,omitempty"`
	TotalSuites   int           `json:"total_suites"`
	TotalSteps    int           `json:"total_steps"`
	PassedSteps   int           `json:"passed_steps"`
	FailedSteps   int           `json:"failed_steps"`
	SkippedSteps  int           `json:"skipped_steps"`
	Duration      time.Duration `json:"duration"`
	P95           time.Duration `json:"p95,omitempty"`
	Environment   string        `json:"environment,omitempty"`
	FailedResults []FailedStep  `json:"failed_results,omitempty"`
	IsRecovery    bool          `json:"is_recovery,omitempty"`
}

// FailedStep represents a failed step for notifications
type FailedStep struct {
	Name   string   `json:"name"`
	Suite  string   `json:"suite"`
	Errors []string `json:"errors,omitempty"`
}

// Summarize builds a RunSummary from run results.
func Summarize(results []*runner.RunResult, duration time.Duration) *RunSummary {
	summary := &RunSummary{
		TotalSuites: len(results),
		Duration:    duration,
	}
	for _, res := range results {
		summary.PassedSteps += res.Passed
		summary.FailedSteps += res.Failed
		summary.SkippedSteps += res.Skipped
		if res.Latency.P95 > summary.P95 {
			summary.P95 = res.Latency.P95
		}
		for _, step := range res.Results {
			if step.Passed || step.Skipped {
				continue
			}
			fs := FailedStep{Name: step.FullName(), Suite: res.Suite}
			if step.Error != nil {
				fs.Errors = append(fs.Errors, step.Error.Error())
			}
			for _, a := range step.Assertions {
				if !a.Passed {
					fs.Errors = append(fs.Errors, fmt.Sprintf("%s %s: expected %v, got %v", a.Subject, a.Operator, a.Expected, a.Actual))
				}
			}
			summary.FailedResults = append(summary.FailedResults, fs)
		}
	}
	summary.TotalSteps = summary.PassedSteps + summary.FailedSteps + summary.SkippedSteps
	return summary
}

// Notifier is the interface for notification services
type Notifier interface {
	Notify(ctx context.Context, summary *RunSummary) error
	Name() string
}

// Manager manages multiple notifiers
type Manager struct {
	notifiers []Notifier
	notifyOn  NotifyOn
	lastState bool // true if last run was successful
}

// NewManager creates a new notification manager
func NewManager(notifyOn NotifyOn, notifiers ...Notifier) *Manager {
	return &Manager{
		notifiers: notifiers,
		notifyOn:  notifyOn,
		lastState: true,
	}
}

// AddNotifier adds a notifier to the manager
func (m *Manager) AddNotifier(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// Notify sends notifications based on the configured policy. Errors from
// individual notifiers are joined.
func (m *Manager) Notify(ctx context.Context, summary *RunSummary) error {
	shouldNotify := false
	currentSuccess := summary.FailedSteps == 0

	switch m.notifyOn {
	case NotifyAlways:
		shouldNotify = true
	case NotifyFailure:
		shouldNotify = !currentSuccess
	case NotifySuccess:
		shouldNotify = currentSuccess
	case NotifyRecovery:
		if !m.lastState && currentSuccess {
			shouldNotify = true
			summary.IsRecovery = true
		}
		if !currentSuccess {
			shouldNotify = true
		}
	}

	m.lastState = currentSuccess

	if !shouldNotify {
		return nil
	}

	var errs []error
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, summary); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}
