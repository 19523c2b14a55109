// Package notify is the narrow collaborator interface onto the
// chat/webhook notification sink the event cascade posts
// human-readable messages to.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/payplaces/directory/pkg/config"
)

// Sink is the interface the event handler and sync engine depend on.
type Sink interface {
	Post(ctx context.Context, message string) error
}

// WebhookSink posts a plain chat-style message to a configured
// webhook URL (Slack/Discord/Matrix-compatible {"text": "..."} body).
type WebhookSink struct {
	httpClient *http.Client
	url        string
}

func NewWebhookSink(cfg config.NotifyConfig) *WebhookSink {
	return &WebhookSink{httpClient: &http.Client{Timeout: cfg.RequestTimeout}, url: cfg.WebhookURL}
}

func (s *WebhookSink) Post(ctx context.Context, message string) error {
	if s.url == "" {
		return nil
	}

	payload, err := json.Marshal(map[string]string{"text": message})
	if err != nil {
		return fmt.Errorf("notify: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notify: post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notify: webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// NoopSink discards every message; used when no webhook is configured
// and in tests.
type NoopSink struct{}

func (NoopSink) Post(ctx context.Context, message string) error { return nil }
