// Package slack implements a notifier.Notifier over a Slack incoming
// webhook. Consultancies that run on Slack get new-request and status
// pings in their workspace channel alongside the email they receive.
//
// The webhook posts to a single channel, so this notifier is not
// per-recipient: the To field of a notification is ignored.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sparkier-io/sparkier/internal/port/notifier"
)

const providerName = "slack"

func init() {
	notifier.Register(providerName, func(config map[string]string) (notifier.Notifier, error) {
		return NewNotifier(config["webhook_url"]), nil
	})
}

// Notifier posts notifications to a Slack incoming webhook.
type Notifier struct {
	webhookURL string
	httpClient *http.Client
}

var _ notifier.Notifier = (*Notifier)(nil)

// NewNotifier creates a Slack notifier for the given webhook URL.
func NewNotifier(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *Notifier) Name() string { return providerName }

func (n *Notifier) Capabilities() notifier.Capabilities {
	return notifier.Capabilities{
		RichFormatting: true,
		PerRecipient:   false,
	}
}

// message is the Slack Block Kit payload.
type message struct {
	Blocks []block `json:"blocks"`
}

type block struct {
	Type string `json:"type"`
	Text *text  `json:"text,omitempty"`
}

type text struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Send posts the notification to the channel behind the webhook.
func (n *Notifier) Send(ctx context.Context, notification notifier.Notification) error {
	if n.webhookURL == "" {
		return notifier.ErrNotConfigured
	}

	msg := message{
		Blocks: []block{
			{Type: "header", Text: &text{Type: "plain_text", Text: levelPrefix(notification.Level) + " " + notification.Title}},
			{Type: "section", Text: &text{Type: "mrkdwn", Text: notification.Message}},
		},
	}
	if notification.Source != "" {
		msg.Blocks = append(msg.Blocks, block{
			Type: "context",
			Text: &text{Type: "mrkdwn", Text: fmt.Sprintf("_Event: %s_", notification.Source)},
		})
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("slack marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("slack send: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("slack API %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

func levelPrefix(level string) string {
	switch level {
	case "success":
		return "[OK]"
	case "error":
		return "[ERROR]"
	case "warning":
		return "[WARN]"
	default:
		return "[INFO]"
	}
}
