package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/driveloop/driveloop/internal/alerting"
)

// webhookPayload is the JSON body posted to the configured webhook endpoint.
type webhookPayload struct {
	ID          string             `json:"id"`
	Type        alerting.AlertType `json:"type"`
	Severity    alerting.Severity  `json:"severity"`
	Status      alerting.Status    `json:"status"`
	Title       string             `json:"title"`
	Message     string             `json:"message"`
	Details     map[string]any     `json:"details,omitempty"`
	Source      string             `json:"source,omitempty"`
	TriggeredAt time.Time          `json:"triggered_at"`
}

// WebhookSender posts alerts as JSON to a generic webhook endpoint.
type WebhookSender struct {
	url    string
	client *http.Client
}

// NewWebhookSender creates a webhook Sender. client may be nil to use a
// default client; the dispatcher enforces the per-attempt deadline via ctx.
func NewWebhookSender(url string, client *http.Client) *WebhookSender {
	if client == nil {
		client = &http.Client{}
	}
	return &WebhookSender{url: url, client: client}
}

func (w *WebhookSender) Name() alerting.Channel { return alerting.ChannelWebhook }

func (w *WebhookSender) Send(ctx context.Context, alert *alerting.Alert) error {
	body, err := json.Marshal(webhookPayload{
		ID:          alert.ID,
		Type:        alert.Type,
		Severity:    alert.Severity,
		Status:      alert.Status,
		Title:       alert.Title,
		Message:     alert.Message,
		Details:     alert.Details,
		Source:      alert.Source,
		TriggeredAt: alert.TriggeredAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
