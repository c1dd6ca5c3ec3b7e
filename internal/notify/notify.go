// Package notify delivers out-of-band events to campaign owners.
package notify

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

// Notifier delivers an event to a user. Callers treat delivery as best
// effort and must not fail their own operation on a notify error.
type Notifier interface {
	Notify(ctx context.Context, user, event string, payload map[string]any) error
}

// LogNotifier writes events to the structured log. It is the default
// sink for local setups.
type LogNotifier struct {
	logger *zap.Logger
}

var _ Notifier = (*LogNotifier)(nil)

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, user, event string, payload map[string]any) error {
	n.logger.Info("notification",
		zap.String("user", user),
		zap.String("event", event),
		zap.Any("payload", payload),
	)
	return nil
}

type slackPoster interface {
	PostMessage(channelID string, options ...slack.MsgOption) (string, string, error)
}

// SlackNotifier posts events to a fixed channel.
type SlackNotifier struct {
	api     slackPoster
	channel string
}

var _ Notifier = (*SlackNotifier)(nil)

func NewSlackNotifier(token, channel string) (*SlackNotifier, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("slack token is required")
	}
	if strings.TrimSpace(channel) == "" {
		return nil, fmt.Errorf("slack channel is required")
	}
	return &SlackNotifier{api: slack.New(token), channel: channel}, nil
}

func (n *SlackNotifier) Notify(_ context.Context, user, event string, payload map[string]any) error {
	if _, _, err := n.api.PostMessage(n.channel, slack.MsgOptionText(formatMessage(user, event, payload), false)); err != nil {
		return fmt.Errorf("posting slack message: %w", err)
	}
	return nil
}

func formatMessage(user, event string, payload map[string]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s* for %s", event, user)
	if len(payload) == 0 {
		return b.String()
	}
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n• %s: %v", k, payload[k])
	}
	return b.String()
}
