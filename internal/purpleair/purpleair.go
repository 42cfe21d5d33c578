// Package purpleair collects one air-quality snapshot from a PurpleAir
// sensor and normalizes it into points.
package purpleair

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// DefaultBaseURL is the PurpleAir API endpoint.
const DefaultBaseURL = "https://api.purpleair.com"

const clientTimeout = 30 * time.Second

// sensorFields is the field projection requested from the API: the sensor
// name plus the three atmospheric particulate concentrations.
const sensorFields = "name,pm1.0_atm,pm2.5_atm,pm10.0_atm"

// Reading is one sensor snapshot: three particulate concentrations stamped
// with the sensor's own data timestamp.
type Reading struct {
	SensorName string
	PM10       float64
	PM25       float64
	PM100      float64
	Time       time.Time
}

type sensorResponse struct {
	DataTimeStamp int64 `json:"data_time_stamp"`
	Sensor        *struct {
		Name  string   `json:"name"`
		PM10  *float64 `json:"pm1.0_atm"`
		PM25  *float64 `json:"pm2.5_atm"`
		PM100 *float64 `json:"pm10.0_atm"`
	} `json:"sensor"`
}

// Client fetches snapshots for one sensor from the PurpleAir API.
type Client struct {
	logger     *slog.Logger
	httpClient *http.Client
	baseURL    string
	apiKey     string
	sensorID   int
}

// ClientConfig holds the configuration for the Client.
type ClientConfig struct {
	Logger *slog.Logger
	// BaseURL overrides the API endpoint (for tests). Defaults to
	// DefaultBaseURL.
	BaseURL string
	// APIKey authenticates every request.
	APIKey string
	// SensorID identifies the sensor to read.
	SensorID int
}

// NewClient creates a new PurpleAir API client.
func NewClient(cfg *ClientConfig) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("client config cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("api key cannot be empty")
	}
	if cfg.SensorID <= 0 {
		return nil, errors.New("sensor id must be positive")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		logger:     cfg.Logger,
		httpClient: &http.Client{Timeout: clientTimeout},
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		sensorID:   cfg.SensorID,
	}, nil
}

// Read fetches the current snapshot for the configured sensor. A payload
// missing any of the three concentrations is a fetch error, not a partial
// reading.
func (c *Client) Read(ctx context.Context) (*Reading, error) {
	params := url.Values{"fields": {sensorFields}}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/v1/sensors/%d?%s", c.baseURL, c.sensorID, params.Encode()), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("purpleair request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("purpleair returned %d for sensor %d", resp.StatusCode, c.sensorID)
	}

	var envelope sensorResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("unreadable purpleair response: %w", err)
	}
	if envelope.Sensor == nil {
		return nil, fmt.Errorf("purpleair response for sensor %d carries no sensor data", c.sensorID)
	}
	if envelope.Sensor.PM10 == nil || envelope.Sensor.PM25 == nil || envelope.Sensor.PM100 == nil {
		return nil, fmt.Errorf("purpleair response for sensor %d is missing concentrations", c.sensorID)
	}

	return &Reading{
		SensorName: envelope.Sensor.Name,
		PM10:       *envelope.Sensor.PM10,
		PM25:       *envelope.Sensor.PM25,
		PM100:      *envelope.Sensor.PM100,
		Time:       time.Unix(envelope.DataTimeStamp, 0).UTC(),
	}, nil
}
