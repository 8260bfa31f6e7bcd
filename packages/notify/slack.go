package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/postcheck/packages/http"
)

// maxFailedListed caps the failures written into one message.
const maxFailedListed = 10

// SlackNotifier sends notifications to Slack via webhook
type SlackNotifier struct {
	webhookURL string
	channel    string
	username   string
	iconEmoji  string
	client     *http.Client
}

// SlackOption is a functional option for SlackNotifier
type SlackOption func(*SlackNotifier)

// WithSlackChannel sets the Slack channel
func WithSlackChannel(channel string) SlackOption {
	return func(s *SlackNotifier) {
		s.channel = channel
	}
}

// WithSlackUsername sets the Slack bot username
func WithSlackUsername(username string) SlackOption {
	return func(s *SlackNotifier) {
		s.username = username
	}
}

// WithSlackIconEmoji sets the Slack bot icon emoji
func WithSlackIconEmoji(emoji string) SlackOption {
	return func(s *SlackNotifier) {
		s.iconEmoji = emoji
	}
}

// WithSlackClient sets the HTTP client used to post messages.
func WithSlackClient(client *http.Client) SlackOption {
	return func(s *SlackNotifier) {
		if client != nil {
			s.client = client
		}
	}
}

// NewSlackNotifier creates a new Slack notifier
func NewSlackNotifier(webhookURL string, opts ...SlackOption) *SlackNotifier {
	s := &SlackNotifier{
		webhookURL: webhookURL,
		username:   "postcheck",
		iconEmoji:  ":test_tube:",
		client:     http.NewClient(http.WithTimeout(10 * time.Second)),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *SlackNotifier) Name() string {
	return "slack"
}

type slackMessage struct {
	Channel     string            `json:"channel,omitempty"`
	Username    string            `json:"username,omitempty"`
	IconEmoji   string            `json:"icon_emoji,omitempty"`
	Attachments []slackAttachment `json:"attachments"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Text   string       `json:"text,omitempty"`
	Fields []slackField `json:"fields,omitempty"`
	Footer string       `json:"footer,omitempty"`
	TS     int64        `json:"ts,omitempty"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// Notify sends a notification to Slack
func (s *SlackNotifier) Notify(ctx context.Context, summary *RunSummary) error {
	return s.send(ctx, s.buildMessage(summary))
}

func (s *SlackNotifier) buildMessage(summary *RunSummary) slackMessage {
	color := "good"
	title := "All steps passed"
	emoji := ":white_check_mark:"

	if summary.FailedSteps > 0 {
		color = "danger"
		title = fmt.Sprintf("%d step(s) failed", summary.FailedSteps)
		emoji = ":x:"
	} else if summary.IsRecovery {
		title = "Posts API recovered"
		emoji = ":tada:"
	}

	fields := []slackField{
		{Title: "Total Steps", Value: fmt.Sprintf("%d", summary.TotalSteps), Short: true},
		{Title: "Passed", Value: fmt.Sprintf("%d", summary.PassedSteps), Short: true},
		{Title: "Failed", Value: fmt.Sprintf("%d", summary.FailedSteps), Short: true},
		{Title: "Duration", Value: summary.Duration.Round(time.Millisecond).String(), Short: true},
	}
	if summary.P95 > 0 {
		fields = append(fields, slackField{Title: "p95 latency", Value: summary.P95.Round(time.Millisecond).String(), Short: true})
	}
	if summary.BaseURL != "" {
		fields = append(fields, slackField{Title: "Base URL", Value: summary.BaseURL, Short: true})
	}
	if summary.Environment != "" {
		fields = append(fields, slackField{Title: "Environment", Value: summary.Environment, Short: true})
	}

	var text strings.Builder
	if len(summary.FailedResults) > 0 {
		text.WriteString("*Failed steps:*\n")
		for i, fs := range summary.FailedResults {
			if i == maxFailedListed {
				fmt.Fprintf(&text, "…and %d more\n", len(summary.FailedResults)-maxFailedListed)
				break
			}
			fmt.Fprintf(&text, "• `%s`\n", fs.Name)
			for _, e := range fs.Errors {
				fmt.Fprintf(&text, "  - %s\n", e)
			}
		}
	}

	return slackMessage{
		Channel:   s.channel,
		Username:  s.username,
		IconEmoji: s.iconEmoji,
		Attachments: []slackAttachment{{
			Color:  color,
			Title:  fmt.Sprintf("%s %s", emoji, title),
			Text:   text.String(),
			Fields: fields,
			Footer: "postcheck",
			TS:     time.Now().Unix(),
		}},
	}
}

func (s *SlackNotifier) send(ctx context.Context, msg slackMessage) error {
	req, err := http.NewJSONRequest("POST", s.webhookURL, msg)
	if err != nil {
		return fmt.Errorf("failed to marshal Slack message: %w", err)
	}

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to send Slack notification: %w", err)
	}

	if resp.StatusCode != 200 {
		return fmt.Errorf("slack API returned status %d: %s", resp.StatusCode, resp.BodyString())
	}
	return nil
}
