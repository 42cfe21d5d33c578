// Package ingest provides the batch dispatcher: it submits one batch of
// points per call to the ingestion API's write endpoint and classifies
// failures as retriable or terminal. Retry policy belongs to the caller;
// re-sending an identical batch rewrites the same points at the destination,
// so at-least-once redelivery is safe.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rjames86/grafana-collectors/pkg/point"
)

const defaultTimeout = 30 * time.Second

var errEmptyBatch = errors.New("cannot dispatch an empty batch")

// DispatchError describes a failed batch submission. Retriable is true for
// transport-level failures and server errors, false for application-level
// rejections the caller should not resubmit.
type DispatchError struct {
	Cause     error
	Message   string
	Retriable bool
}

// Error implements the error interface.
func (e *DispatchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("dispatch failed (retriable=%t): %v", e.Retriable, e.Cause)
	}
	return fmt.Sprintf("dispatch failed (retriable=%t): %s", e.Retriable, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *DispatchError) Unwrap() error {
	return e.Cause
}

// Ack is the ingestion API's acknowledgement of a successful write.
type Ack struct {
	Message string
}

// Dispatcher is the interface used by drivers and handlers to submit batches.
// It enables mocking in tests.
type Dispatcher interface {
	Write(ctx context.Context, destination string, batch *point.Batch, verbose bool) (*Ack, error)
}

// Client submits batches to the ingestion API over HTTP.
type Client struct {
	logger     *slog.Logger
	httpClient *http.Client
	baseURL    string
}

// ClientConfig holds the configuration for the Client.
type ClientConfig struct {
	Logger *slog.Logger
	// BaseURL is the ingestion API prefix, e.g. "http://api:5000/influx".
	// The destination database name and "/write" are appended per call.
	BaseURL string
	// Timeout bounds each write request (defaults to 30s).
	Timeout time.Duration
}

// NewClient creates a new ingestion API client.
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

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		logger:     cfg.Logger,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
	}, nil
}

// writeRequest is the JSON body of the write endpoint.
type writeRequest struct {
	DataPoints []point.Point `json:"data_points"`
	Verbose    bool          `json:"verbose"`
}

// writeResponse is the JSON acknowledgement of the write endpoint.
type writeResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Write submits the batch to /{destination}/write as a single request. The
// dispatcher never retries; it reports whether the caller may.
func (c *Client) Write(ctx context.Context, destination string, batch *point.Batch, verbose bool) (*Ack, error) {
	if batch == nil || batch.Len() == 0 {
		return nil, errEmptyBatch
	}

	body, err := json.Marshal(writeRequest{
		DataPoints: batch.Points(),
		Verbose:    verbose,
	})
	if err != nil {
		return nil, &DispatchError{Cause: fmt.Errorf("failed to encode batch: %w", err), Retriable: false}
	}

	url := fmt.Sprintf("%s/%s/write", c.baseURL, destination)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &DispatchError{Cause: err, Retriable: false}
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("dispatching batch",
		"destination", destination,
		"points", batch.Len(),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transport failure: the batch may be resubmitted safely.
		return nil, &DispatchError{Cause: err, Retriable: true}
	}
	defer resp.Body.Close()

	var ack writeResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&ack)

	if resp.StatusCode >= 500 {
		return nil, &DispatchError{
			Message:   fmt.Sprintf("ingestion API returned %d: %s", resp.StatusCode, ack.Message),
			Retriable: true,
		}
	}
	if resp.StatusCode >= 400 {
		return nil, &DispatchError{
			Message:   fmt.Sprintf("ingestion API rejected batch with %d: %s", resp.StatusCode, ack.Message),
			Retriable: false,
		}
	}
	if decodeErr != nil {
		return nil, &DispatchError{Cause: fmt.Errorf("unreadable acknowledgement: %w", decodeErr), Retriable: true}
	}
	if !ack.Success {
		// Application-level rejection with a 2xx status.
		return nil, &DispatchError{Message: ack.Message, Retriable: false}
	}

	c.logger.Info("batch dispatched",
		"destination", destination,
		"points", batch.Len(),
	)

	return &Ack{Message: ack.Message}, nil
}

// Ensure Client implements Dispatcher.
var _ Dispatcher = (*Client)(nil)
