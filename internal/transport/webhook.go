package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/brixsport/backend/internal/domain"
)

// WebhookSender forwards push notifications to a relay endpoint that
// fronts the actual push provider. Email and SMS are rejected; the
// relay only speaks push.
type WebhookSender struct {
	url    string
	client *http.Client
}

// NewWebhookSender creates a WebhookSender for the given relay URL.
func NewWebhookSender(url string) *WebhookSender {
	return &WebhookSender{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type webhookPayload struct {
	Token    string            `json:"token"`
	Title    string            `json:"title"`
	Message  string            `json:"message"`
	Priority string            `json:"priority"`
	Data     map[string]string `json:"data,omitempty"`
}

// Send implements Sender.
func (s *WebhookSender) Send(ctx context.Context, method domain.DeliveryMethod, address string, n Rendered) (Outcome, error) {
	if method != domain.MethodPush {
		return Outcome{}, fmt.Errorf("webhook sender does not support %s", method)
	}

	body, err := json.Marshal(webhookPayload{
		Token:    address,
		Title:    n.Title,
		Message:  n.Message,
		Priority: string(n.Priority),
		Data:     n.Data,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return Outcome{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: post webhook: %v", domain.ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Outcome{}, fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		// Providers without a response body still count as sent.
		result.ID = ""
	}

	return Outcome{Provider: "webhook", ProviderID: result.ID, Delivered: true}, nil
}
