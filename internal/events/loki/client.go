// Package loki archives intake events in Grafana Loki.
package loki

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const pushPath = "/loki/api/v1/push"

// ErrNoURL is returned by NewClient when the base URL is empty.
var ErrNoURL = errors.New("loki: base URL is empty")

// PushRequest is the Loki push API request body (v1).
type PushRequest struct {
	Streams []Stream `json:"streams"`
}

// Stream is a single stream with labels and log entries.
type Stream struct {
	Stream map[string]string `json:"stream"`
	Values [][]string        `json:"values"` // [timestamp_ns, line]
}

// Loki label values: anything else becomes "_".
var labelSanitize = regexp.MustCompile(`[^a-zA-Z0-9_\-:.]`)

// eventFields are the parts of an intake event used for labels and timestamp.
type eventFields struct {
	Type       string `json:"type"`
	JobID      string `json:"job_id"`
	CompanyID  string `json:"company_id"`
	OccurredAt string `json:"occurred_at"`
}

// Client pushes lines to one Loki instance.
type Client struct {
	baseURL string
	http    *http.Client
	nowF    func() time.Time
}

// NewClient returns a client for baseURL (e.g. http://localhost:3100). A nil httpClient uses a 10s timeout.
func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, ErrNoURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimSuffix(baseURL, "/"), http: httpClient, nowF: time.Now}, nil
}

// PushEventJSON labels a raw intake event by type and company and pushes it at its occurrence time.
// Unparseable payloads are pushed as-is at the current time.
func (c *Client) PushEventJSON(ctx context.Context, raw []byte) error {
	labels := map[string]string{}
	ts := c.nowF().UTC()
	var f eventFields
	if err := json.Unmarshal(raw, &f); err == nil {
		if f.Type != "" {
			labels["event_type"] = f.Type
		}
		if f.CompanyID != "" {
			labels["company_id"] = f.CompanyID
		}
		if t, err := time.Parse(time.RFC3339Nano, f.OccurredAt); err == nil {
			ts = t
		}
	}
	return c.Push(ctx, ts, string(raw), labels)
}

// Push sends one line with the given labels; job=recruit-intake is always set.
func (c *Client) Push(ctx context.Context, ts time.Time, line string, labels map[string]string) error {
	stream := make(map[string]string, len(labels)+1)
	stream["job"] = "recruit-intake"
	for k, v := range labels {
		if v = labelSanitize.ReplaceAllString(strings.TrimSpace(v), "_"); v != "" {
			stream[k] = v
		}
	}
	payload, err := json.Marshal(PushRequest{Streams: []Stream{{
		Stream: stream,
		Values: [][]string{{strconv.FormatInt(ts.UnixNano(), 10), line}},
	}}})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+pushPath, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("loki: push returned %s", resp.Status)
	}
	return nil
}
