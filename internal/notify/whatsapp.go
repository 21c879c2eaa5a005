package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// WebhookClient posts dispatch requests to a WhatsApp automation webhook. The webhook renders and sends
// the message; this client only checks the ok/error verdict.
type WebhookClient struct {
	URL        string
	Token      string
	HTTPClient *http.Client
}

// NewWebhookClient returns a client for url. token is sent as a bearer credential when non-empty.
func NewWebhookClient(url, token string, client *http.Client) *WebhookClient {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &WebhookClient{URL: url, Token: token, HTTPClient: client}
}

// Notify posts req as JSON. Non-2xx statuses are errors; a 2xx with {"ok": false} is a refusal.
// The code is never included in returned errors.
func (c *WebhookClient) Notify(ctx context.Context, req Request) (*Response, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("whatsapp: webhook URL not configured")
	}
	raw, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("whatsapp: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("whatsapp: webhook status=%d", resp.StatusCode)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return &Response{OK: true}, nil
	}
	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("whatsapp: decode response: %w", err)
	}
	return &out, nil
}
