// Package ingest feeds readings into the dashboard API: an HTTP form client, a synthetic
// seeder, and an MQTT bridge that forwards sensor messages.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Poster submits one reading and returns its id.
type Poster interface {
	Post(ctx context.Context, value float64, ts time.Time) (int64, error)
}

// APIError is a non-201 answer from POST /metrics.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("metrics API returned %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	BaseURL   string
	APIKey    string
	HTTP      *http.Client
	UserAgent string
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		APIKey:    apiKey,
		HTTP:      &http.Client{Timeout: 10 * time.Second},
		UserAgent: "metrics-dashboard-ingest/0.1",
	}
}

// Post sends value as a form to /metrics. A zero ts lets the server assign the time.
func (c *Client) Post(ctx context.Context, value float64, ts time.Time) (int64, error) {
	form := url.Values{}
	form.Set("api_key", c.APIKey)
	form.Set("value", strconv.FormatFloat(value, 'f', -1, 64))
	if !ts.IsZero() {
		form.Set("timestamp", ts.UTC().Format(time.RFC3339Nano))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/metrics", strings.NewReader(form.Encode()))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, fmt.Errorf("metrics API request error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return 0, fmt.Errorf("failed to read metrics API response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated {
		var apiErr struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		return 0, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	var created struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		return 0, fmt.Errorf("failed to decode metrics API response: %w", err)
	}
	return created.ID, nil
}
