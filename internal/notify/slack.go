package notify

import (
	"context"
	"fmt"

	slacklib "github.com/slack-go/slack"
)

// SlackAPI abstracts the subset of the Slack client used by SlackSink.
type SlackAPI interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slacklib.MsgOption) (string, string, error)
}

// SlackSink posts alerts to a fixed operations channel.
type SlackSink struct {
	api     SlackAPI
	channel string
}

var _ Sink = (*SlackSink)(nil) //nolint:gochecknoglobals // compile-time check

func NewSlackSink(api SlackAPI, channel string) *SlackSink {
	return &SlackSink{api: api, channel: channel}
}

func (s *SlackSink) Name() string { return "slack" }

func (s *SlackSink) Send(ctx context.Context, text string) error {
	if _, _, err := s.api.PostMessageContext(ctx, s.channel, slacklib.MsgOptionText(text, false)); err != nil {
		return fmt.Errorf("notify.SlackSink.Send: %w", err)
	}
	return nil
}
