// Package slack mirrors console notifications to a Slack channel through an
// incoming webhook. Access changes are laid out as an employee/system card.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Strob0t/AccessDesk/internal/port/notifier"
)

const providerName = "slack"

// Notifier posts notifications to one webhook.
type Notifier struct {
	webhookURL string
	httpClient *http.Client
}

// NewNotifier creates a Slack notifier with the given webhook URL.
func NewNotifier(webhookURL string) *Notifier {
	return &Notifier{webhookURL: webhookURL, httpClient: http.DefaultClient}
}

// WithHTTPClient replaces the client used to post to the webhook.
func (n *Notifier) WithHTTPClient(c *http.Client) *Notifier {
	n.httpClient = c
	return n
}

func (n *Notifier) Name() string { return providerName }

func (n *Notifier) Capabilities() notifier.Capabilities {
	return notifier.Capabilities{RichFormatting: true}
}

// Block Kit payload subset used by the console.
type message struct {
	Text   string  `json:"text"`
	Blocks []block `json:"blocks"`
}

type block struct {
	Type     string `json:"type"`
	Text     *text  `json:"text,omitempty"`
	Fields   []text `json:"fields,omitempty"`
	Elements []text `json:"elements,omitempty"`
}

type text struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func mrkdwn(s string) text { return text{Type: "mrkdwn", Text: s} }

// Send renders notification and posts it to the webhook.
func (n *Notifier) Send(ctx context.Context, notification notifier.Notification) error {
	if n.webhookURL == "" {
		return notifier.ErrNotConfigured
	}
	body, err := json.Marshal(render(notification))
	if err != nil {
		return fmt.Errorf("slack marshal: %w", err)
	}
	return n.post(ctx, body)
}

func (n *Notifier) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req) //nolint:gosec // webhook URL from trusted config
	if err != nil {
		return fmt.Errorf("slack send: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("slack webhook %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}

// render builds the Block Kit message. Access changes get a field card with
// employee, system, the status transition and the operator; directory loads
// get the employee count. The plain Text is the notification fallback.
func render(nt notifier.Notification) message {
	title := levelTag(nt.Level) + " " + nt.Title
	msg := message{
		Text:   title,
		Blocks: []block{{Type: "header", Text: &text{Type: "plain_text", Text: title}}},
	}
	if nt.Message != "" {
		msg.Blocks = append(msg.Blocks, block{Type: "section", Text: &text{Type: "mrkdwn", Text: nt.Message}})
	}

	f := nt.Fields
	switch {
	case f[notifier.FieldSystem] != "":
		change := f[notifier.FieldOldStatus] + " → " + f[notifier.FieldNewStatus]
		if nt.Source == "access.rolled_back" {
			change = "~" + change + "~ rolled back"
		}
		msg.Blocks = append(msg.Blocks, block{Type: "section", Fields: []text{
			mrkdwn("*Employee*\n" + f[notifier.FieldEmployee]),
			mrkdwn("*System*\n" + f[notifier.FieldSystem]),
			mrkdwn("*Change*\n" + change),
			mrkdwn("*By*\n" + f[notifier.FieldOperator]),
		}})
		msg.Text = fmt.Sprintf("%s: %s %s for %s", title, f[notifier.FieldSystem], change, f[notifier.FieldEmployee])
	case f[notifier.FieldCount] != "":
		msg.Blocks = append(msg.Blocks, block{Type: "section", Fields: []text{
			mrkdwn("*Employees*\n" + f[notifier.FieldCount]),
		}})
	}

	var ctxParts []string
	if nt.Source != "" {
		ctxParts = append(ctxParts, "`"+nt.Source+"`")
	}
	if !nt.Time.IsZero() {
		ctxParts = append(ctxParts, nt.Time.UTC().Format(time.RFC3339))
	}
	if len(ctxParts) > 0 {
		msg.Blocks = append(msg.Blocks, block{Type: "context", Elements: []text{mrkdwn(strings.Join(ctxParts, " · "))}})
	}
	return msg
}

func levelTag(level string) string {
	switch level {
	case notifier.LevelSuccess:
		return "[OK]"
	case notifier.LevelError:
		return "[ERROR]"
	case notifier.LevelWarning:
		return "[WARN]"
	default:
		return "[INFO]"
	}
}
