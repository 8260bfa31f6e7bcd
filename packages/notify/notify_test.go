package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/postcheck/packages/assertions"
	"github.com/abdul-hamid-achik/postcheck/packages/core/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	calls []*RunSummary
	err   error
}

func (r *recordingNotifier) Notify(_ context.Context, s *RunSummary) error {
	r.calls = append(r.calls, s)
	return r.err
}

func (r *recordingNotifier) Name() string { return "recording" }

func TestManager_Policies(t *testing.T) {
	pass := func() *RunSummary { return &RunSummary{PassedSteps: 3} }
	fail := func() *RunSummary { return &RunSummary{FailedSteps: 1} }

	tests := []struct {
		name     string
		policy   NotifyOn
		runs     []*RunSummary
		expected int
	}{
		{"always", NotifyAlways, []*RunSummary{pass(), fail()}, 2},
		{"failure", NotifyFailure, []*RunSummary{pass(), fail()}, 1},
		{"success", NotifySuccess, []*RunSummary{pass(), fail()}, 1},
		{"recovery", NotifyRecovery, []*RunSummary{pass(), fail(), pass(), pass()}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recordingNotifier{}
			m := NewManager(tt.policy, rec)
			for _, s := range tt.runs {
				require.NoError(t, m.Notify(context.Background(), s))
			}
			assert.Len(t, rec.calls, tt.expected)
		})
	}
}

func TestManager_RecoveryFlag(t *testing.T) {
	rec := &recordingNotifier{}
	m := NewManager(NotifyRecovery)
	m.AddNotifier(rec)

	require.NoError(t, m.Notify(context.Background(), &RunSummary{FailedSteps: 2}))
	recovered := &RunSummary{PassedSteps: 2}
	require.NoError(t, m.Notify(context.Background(), recovered))

	assert.True(t, recovered.IsRecovery)
	require.Len(t, rec.calls, 2)
}

func TestManager_JoinsErrors(t *testing.T) {
	m := NewManager(NotifyAlways, &recordingNotifier{err: errors.New("boom")})
	err := m.Notify(context.Background(), &RunSummary{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recording: boom")
}

func TestParseNotifyOn(t *testing.T) {
	n, err := ParseNotifyOn("failure")
	require.NoError(t, err)
	assert.Equal(t, NotifyFailure, n)

	_, err = ParseNotifyOn("sometimes")
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	result := &runner.RunResult{
		Suite:   "posts",
		Passed:  1,
		Failed:  2,
		Skipped: 1,
		Latency: runner.LatencySummary{P95: 40 * time.Millisecond},
		Results: []*runner.StepResult{
			{Scenario: "list", Name: "GET /posts", Passed: true},
			{Scenario: "crud", Name: "create", Assertions: []*assertions.Result{
				{Subject: "status", Operator: "==", Expected: 201, Actual: 500},
			}},
			{Scenario: "crud", Name: "update", Skipped: true},
			{Scenario: "guarded", Name: "POST", Error: errors.New("connection refused")},
		},
	}

	s := Summarize([]*runner.RunResult{result}, time.Second)
	assert.Equal(t, 4, s.TotalSteps)
	assert.Equal(t, 2, s.FailedSteps)
	assert.Equal(t, 40*time.Millisecond, s.P95)
	require.Len(t, s.FailedResults, 2)
	assert.Equal(t, "crud / create", s.FailedResults[0].Name)
	assert.Equal(t, []string{"status ==: expected 201, got 500"}, s.FailedResults[0].Errors)
	assert.Equal(t, []string{"connection refused"}, s.FailedResults[1].Errors)
}

func TestSlackNotifier(t *testing.T) {
	var got slackMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := NewSlackNotifier(server.URL, WithSlackChannel("#api"))
	err := n.Notify(context.Background(), &RunSummary{
		TotalSteps:    3,
		PassedSteps:   2,
		FailedSteps:   1,
		BaseURL:       "http://localhost:3000",
		FailedResults: []FailedStep{{Name: "crud / create", Errors: []string{"status mismatch"}}},
	})
	require.NoError(t, err)

	assert.Equal(t, "#api", got.Channel)
	assert.Equal(t, "postcheck", got.Username)
	require.Len(t, got.Attachments, 1)
	assert.Equal(t, "danger", got.Attachments[0].Color)
	assert.Contains(t, got.Attachments[0].Title, "1 step(s) failed")
	assert.Contains(t, got.Attachments[0].Text, "crud / create")
}

func TestSlackNotifier_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("invalid_token"))
	}))
	defer server.Close()

	err := NewSlackNotifier(server.URL).Notify(context.Background(), &RunSummary{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
	assert.Contains(t, err.Error(), "invalid_token")
}

func TestSlackMessage_TruncatesFailures(t *testing.T) {
	summary := &RunSummary{FailedSteps: 12}
	for i := 0; i < 12; i++ {
		summary.FailedResults = append(summary.FailedResults, FailedStep{Name: "step"})
	}
	msg := NewSlackNotifier("http://example.test").buildMessage(summary)
	assert.Contains(t, msg.Attachments[0].Text, "and 2 more")
}
