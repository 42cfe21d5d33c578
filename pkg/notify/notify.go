// Package notify sends push notifications through the ingestion API's
// Pushover relay. Delivery is fire-and-forget: callers log failures and move
// on, they never block a pipeline on the notification sink.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const defaultTimeout = 10 * time.Second

// Notifier is the interface handlers use to send notifications. It enables
// mocking in tests.
type Notifier interface {
	Send(ctx context.Context, message, title string) error
}

// Client sends notifications to the relay endpoint
// POST {base}/pushover/{app}/message.
type Client struct {
	logger     *slog.Logger
	httpClient *http.Client
	baseURL    string
	app        string
}

// ClientConfig holds the configuration for the Client.
type ClientConfig struct {
	Logger *slog.Logger
	// BaseURL is the relay API prefix, e.g. "http://api:5000".
	BaseURL string
	// App is the relay application segment, e.g. "sprinkler".
	App string
	// Timeout bounds each request (defaults to 10s).
	Timeout time.Duration
}

// NewClient creates a new notification relay client.
func NewClient(cfg *ClientConfig) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("client config cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("base URL cannot be empty")
	}
	if cfg.App == "" {
		return nil, errors.New("app cannot be empty")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		logger:     cfg.Logger,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		app:        cfg.App,
	}, nil
}

// Send posts one notification. The request is bounded by the client timeout
// and the given context.
func (c *Client) Send(ctx context.Context, message, title string) error {
	body, err := json.Marshal(map[string]string{
		"message": message,
		"title":   title,
	})
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	url := fmt.Sprintf("%s/pushover/%s/message", c.baseURL, c.app)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notification request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("notification relay returned %d", resp.StatusCode)
	}

	c.logger.Debug("notification sent", "title", title)
	return nil
}

// Ensure Client implements Notifier.
var _ Notifier = (*Client)(nil)
