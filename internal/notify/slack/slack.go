// internal/notify/slack/slack.go

// Package slack sends run notifications to Slack via incoming webhooks.
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

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/tandem/internal/discovery"
)

const (
	maxReportRows = 10
	maxRowLen     = 300
	httpTimeout   = 10 * time.Second
)

// Notifier sends completed discovery runs to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
	logger     log.Logger
}

// New creates a new Slack notifier. If webhookURL is empty, NotifyRun is a no-op.
func New(webhookURL string, logger log.Logger) *Notifier {
	if logger == nil {
		logger = log.Nop()
	}
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
		logger:     logger,
	}
}

// NotifyRun posts a run summary to the configured Slack webhook.
// If no webhook URL is configured, it returns nil immediately.
func (n *Notifier) NotifyRun(ctx context.Context, run *discovery.Run) error {
	if n.webhookURL == "" {
		return nil
	}

	msg := buildMessage(run)

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func buildMessage(r *discovery.Run) map[string]any {
	return map[string]any{
		"blocks": []map[string]any{
			headerBlock(r),
			{"type": "divider"},
			fieldsBlock(r),
			{"type": "divider"},
			reportBlock(r),
			{"type": "divider"},
			contextBlock(r),
		},
	}
}

func headerBlock(r *discovery.Run) map[string]any {
	title := "Discovery Complete"
	if r.State == discovery.StateEmpty {
		title = "Discovery Empty"
	}
	text := fmt.Sprintf("%s %s: %s", stateEmoji(r), title, r.Disease)

	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": text,
		},
	}
}

func fieldsBlock(r *discovery.Run) map[string]any {
	fields := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*State:* %s", r.State),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Mode:* %s", r.Mode),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Duration:* %.1fs", r.Duration),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Candidates:* %d", len(r.Report)),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Known excluded:* %d", len(r.RejectedKnown)),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Errors:* %d", len(r.Errors)),
		},
	}

	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

func reportBlock(r *discovery.Run) map[string]any {
	var b strings.Builder
	for i, c := range r.Report {
		if i >= maxReportRows {
			fmt.Fprintf(&b, "_...and %d more_\n", len(r.Report)-maxReportRows)
			break
		}
		row := fmt.Sprintf("%d. *%s* — %s (%.1f)", c.Rank, c.Symbol, c.Tier, c.Score)
		b.WriteString(truncate(row, maxRowLen))
		b.WriteByte('\n')
	}

	text := strings.TrimRight(b.String(), "\n")
	if text == "" {
		text = "_No candidates found._"
	}

	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Top candidates*\n\n%s", text),
		},
	}
}

func contextBlock(r *discovery.Run) map[string]any {
	ts := r.CompletedAt
	if ts.IsZero() {
		ts = r.CreatedAt
	}

	elements := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("tandem • run %s • %s", r.ID, ts.UTC().Format("2006-01-02 15:04 UTC")),
		},
	}

	return map[string]any{
		"type":     "context",
		"elements": elements,
	}
}

func stateEmoji(r *discovery.Run) string {
	switch {
	case r.State == discovery.StateEmpty:
		return "\U0001f7e1" // yellow circle
	case len(r.Errors) > 0:
		return "\U0001f7e0" // orange circle
	default:
		return "\U0001f7e2" // green circle
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
