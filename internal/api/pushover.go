package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rjames86/grafana-collectors/pkg/metrics"
)

// DefaultPushoverURL is the Pushover API endpoint.
const DefaultPushoverURL = "https://api.pushover.net"

const relayTimeout = 10 * time.Second

// NotificationRelay forwards one notification to the push provider. It
// enables mocking in tests.
type NotificationRelay interface {
	Send(ctx context.Context, app, message, title string) error
}

// PushoverRelay forwards notifications to Pushover. Each relay application
// name maps to its own Pushover application token.
type PushoverRelay struct {
	logger     *slog.Logger
	httpClient *http.Client
	baseURL    string
	userKey    string
	apps       map[string]string
	metrics    *metrics.IngestMetrics
}

// PushoverConfig holds the configuration for the PushoverRelay.
type PushoverConfig struct {
	Logger *slog.Logger
	// BaseURL overrides the Pushover endpoint (for tests). Defaults to
	// DefaultPushoverURL.
	BaseURL string
	// UserKey is the Pushover user the notifications go to.
	UserKey string
	// Apps maps relay application names (the path segment the collectors
	// use) to Pushover application tokens.
	Apps    map[string]string
	Metrics *metrics.IngestMetrics
}

// NewPushoverRelay creates the relay.
func NewPushoverRelay(cfg *PushoverConfig) (*PushoverRelay, error) {
	if cfg == nil {
		return nil, errors.New("pushover config cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.UserKey == "" {
		return nil, errors.New("user key cannot be empty")
	}
	if len(cfg.Apps) == 0 {
		return nil, errors.New("at least one app token is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultPushoverURL
	}

	return &PushoverRelay{
		logger:     cfg.Logger,
		httpClient: &http.Client{Timeout: relayTimeout},
		baseURL:    baseURL,
		userKey:    cfg.UserKey,
		apps:       cfg.Apps,
		metrics:    cfg.Metrics,
	}, nil
}

// Send forwards one notification under the given app's token.
func (r *PushoverRelay) Send(ctx context.Context, app, message, title string) error {
	token, ok := r.apps[app]
	if !ok {
		return fmt.Errorf("unknown notification app %q", app)
	}

	form := url.Values{
		"token":   {token},
		"user":    {r.userKey},
		"message": {message},
		"title":   {title},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		r.baseURL+"/1/messages.json", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("pushover request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("pushover returned %d for app %s", resp.StatusCode, app)
	}

	if r.metrics != nil {
		r.metrics.NotificationsRelayed.WithLabelValues(app).Inc()
	}
	r.logger.Info("notification relayed", "app", app, "title", title)
	return nil
}

// Ensure PushoverRelay implements NotificationRelay.
var _ NotificationRelay = (*PushoverRelay)(nil)
