package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPStore uploads to an S3-style object storage REST endpoint:
// POST {BaseURL}/object/{Bucket}/{key}; objects are then public at
// {BaseURL}/object/public/{Bucket}/{key}.
type HTTPStore struct {
	BaseURL    string
	Bucket     string
	APIKey     string
	HTTPClient *http.Client
}

// NewHTTPStore returns an HTTPStore with a 30s client timeout.
func NewHTTPStore(baseURL, bucket, apiKey string) *HTTPStore {
	return &HTTPStore{
		BaseURL:    baseURL,
		Bucket:     bucket,
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Upload posts data under key. A 409 (object exists) is an error: keys are random, so it means a retry
// raced a previous upload and the caller should generate a new key.
func (s *HTTPStore) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if s.BaseURL == "" || s.Bucket == "" {
		return "", fmt.Errorf("storage: object storage not configured")
	}
	url := joinURL(s.BaseURL, "object/"+s.Bucket+"/"+key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "false")
	if s.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.APIKey)
		req.Header.Set("apikey", s.APIKey)
	}
	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("storage: upload: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("storage: upload failed status=%d body=%s", resp.StatusCode, string(b))
	}
	return joinURL(s.BaseURL, "object/public/"+s.Bucket+"/"+key), nil
}
