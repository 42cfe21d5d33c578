package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/rjames86/grafana-collectors/pkg/ingest"
	"github.com/rjames86/grafana-collectors/pkg/metrics"
	"github.com/rjames86/grafana-collectors/pkg/notify"
	"github.com/rjames86/grafana-collectors/pkg/point"
)

// DefaultStationNames maps irrigation station numbers to their friendly
// names. Overridable through configuration.
var DefaultStationNames = map[string]string{
	"0": "Back Yard",
	"1": "Soakers",
	"2": "South side",
	"3": "Front yard",
	"4": "North side",
	"5": "Not Used",
	"6": "S07",
	"7": "S08",
}

// FormatDuration renders a run duration in seconds the way the
// notifications phrase it: "45m 30s", "45m", "30s".
func FormatDuration(seconds int) string {
	minutes := seconds / 60
	secs := seconds % 60

	if minutes > 0 {
		if secs > 0 {
			return fmt.Sprintf("%dm %ds", minutes, secs)
		}
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%ds", secs)
}

// SprinklerHandlers turns irrigation-controller messages into push
// notifications. These handlers are notification-only: they never produce
// points.
type SprinklerHandlers struct {
	logger   *slog.Logger
	notifier notify.Notifier
	metrics  *metrics.SubscriberMetrics
	stations map[string]string
}

// SprinklerConfig holds the configuration for the SprinklerHandlers.
type SprinklerConfig struct {
	Logger   *slog.Logger
	Notifier notify.Notifier
	Metrics  *metrics.SubscriberMetrics
	// StationNames overrides DefaultStationNames when non-nil.
	StationNames map[string]string
}

// NewSprinklerHandlers creates the irrigation handler set.
func NewSprinklerHandlers(cfg *SprinklerConfig) (*SprinklerHandlers, error) {
	if cfg == nil {
		return nil, errors.New("sprinkler config cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.Notifier == nil {
		return nil, errors.New("notifier cannot be nil")
	}

	stations := cfg.StationNames
	if stations == nil {
		stations = DefaultStationNames
	}

	return &SprinklerHandlers{
		logger:   cfg.Logger,
		notifier: cfg.Notifier,
		metrics:  cfg.Metrics,
		stations: stations,
	}, nil
}

// Routes returns the handler set's routes in registration order.
func (h *SprinklerHandlers) Routes() []Route {
	return []Route{
		{Filter: "opensprinkler/station/+", Name: "station", Handler: h.Station},
		{Filter: "opensprinkler/system", Name: "system", Handler: h.System},
		{Filter: "opensprinkler/raindelay", Name: "raindelay", Handler: h.RainDelay},
		{Filter: "opensprinkler/weather", Name: "weather", Handler: h.Weather},
		{Filter: "opensprinkler/alert/flow", Name: "flowalert", Handler: h.FlowAlert},
	}
}

// Station handles start/stop messages for individual stations.
func (h *SprinklerHandlers) Station(ctx context.Context, msg Message) error {
	var payload struct {
		State    *int `json:"state"`
		Duration int  `json:"duration"`
	}
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		h.fallback(ctx, "station", msg, "OpenSprinkler Station Error")
		return fmt.Errorf("unreadable station payload: %w", err)
	}

	name := h.stationName(msg.Topic)

	var message string
	switch {
	case payload.State != nil && *payload.State == 1:
		message = fmt.Sprintf("%s turned ON - Duration: %s", name, FormatDuration(payload.Duration))
	case payload.State != nil && *payload.State == 0:
		if payload.Duration > 0 {
			message = fmt.Sprintf("%s turned OFF - Ran for: %s", name, FormatDuration(payload.Duration))
		} else {
			message = fmt.Sprintf("%s turned OFF", name)
		}
	default:
		state := "null"
		if payload.State != nil {
			state = strconv.Itoa(*payload.State)
		}
		message = fmt.Sprintf("%s - Unknown state: %s", name, state)
	}

	h.logger.Info(message, "topic", msg.Topic)
	h.notify(ctx, "station", message, "OpenSprinkler Notification")
	return nil
}

// System handles controller status messages.
func (h *SprinklerHandlers) System(ctx context.Context, msg Message) error {
	var payload struct {
		State string `json:"state"`
	}
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		h.fallback(ctx, "system", msg, "OpenSprinkler System Error")
		return fmt.Errorf("unreadable system payload: %w", err)
	}

	message := fmt.Sprintf("OpenSprinkler system status: %s", payload.State)
	if payload.State == "started" {
		message = "OpenSprinkler controller has rebooted and is now online"
	}

	h.logger.Info(message, "topic", msg.Topic)
	h.notify(ctx, "system", message, "OpenSprinkler System")
	return nil
}

// RainDelay handles rain-delay activation messages.
func (h *SprinklerHandlers) RainDelay(ctx context.Context, msg Message) error {
	var payload struct {
		State *int `json:"state"`
	}
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		h.fallback(ctx, "raindelay", msg, "OpenSprinkler Rain Delay Error")
		return fmt.Errorf("unreadable rain delay payload: %w", err)
	}

	var message string
	switch {
	case payload.State != nil && *payload.State == 1:
		message = "Rain delay has been activated - watering suspended"
	case payload.State != nil && *payload.State == 0:
		message = "Rain delay has been deactivated - watering can resume"
	default:
		state := "null"
		if payload.State != nil {
			state = strconv.Itoa(*payload.State)
		}
		message = fmt.Sprintf("Rain delay status unknown: %s", state)
	}

	h.logger.Info(message, "topic", msg.Topic)
	h.notify(ctx, "raindelay", message, "OpenSprinkler Rain Delay")
	return nil
}

// Weather handles weather-adjustment messages.
func (h *SprinklerHandlers) Weather(ctx context.Context, msg Message) error {
	var payload map[string]any
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		h.fallback(ctx, "weather", msg, "OpenSprinkler Weather Error")
		return fmt.Errorf("unreadable weather payload: %w", err)
	}

	waterLevel, ok := payload["water level"]
	if !ok {
		waterLevel = "unknown"
	}

	message := fmt.Sprintf("Weather adjustment updated - Water level: %v", waterLevel)
	h.logger.Info(message, "topic", msg.Topic)
	h.notify(ctx, "weather", message, "OpenSprinkler Weather Update")
	return nil
}

// FlowAlert handles flow alerts, which arrive as JSON or plain text.
func (h *SprinklerHandlers) FlowAlert(ctx context.Context, msg Message) error {
	message := fmt.Sprintf("Flow Alert: %s", strings.TrimSpace(string(msg.Payload)))

	h.logger.Warn(message, "topic", msg.Topic)
	h.notify(ctx, "flowalert", message, "⚠️ OpenSprinkler Flow Alert")
	return nil
}

func (h *SprinklerHandlers) stationName(topic string) string {
	parts := strings.Split(topic, "/")
	number := "Unknown"
	if len(parts) > 2 {
		number = parts[len(parts)-1]
	}

	if name, ok := h.stations[number]; ok {
		return name
	}
	return fmt.Sprintf("Station %s", number)
}

// notify sends one notification, fire-and-forget: a failed send is logged
// and never fails the message.
func (h *SprinklerHandlers) notify(ctx context.Context, route, message, title string) {
	if err := h.notifier.Send(ctx, message, title); err != nil {
		h.logger.Warn("notification failed", "route", route, "title", title, "error", err)
		return
	}
	if h.metrics != nil {
		h.metrics.NotificationsSent.WithLabelValues(route).Inc()
	}
}

// fallback sends the raw payload when a message cannot be parsed, so the
// event is not lost entirely.
func (h *SprinklerHandlers) fallback(ctx context.Context, route string, msg Message, title string) {
	message := fmt.Sprintf("Received `%s` from `%s` topic", msg.Payload, msg.Topic)
	h.notify(ctx, route, message, title+" (Raw)")
}

// CameraHandlers turns camera motion events into points. These handlers are
// point-only: they never send notifications.
type CameraHandlers struct {
	logger     *slog.Logger
	dispatcher ingest.Dispatcher
	cameras    map[string]string
	now        func() time.Time
}

// CameraConfig holds the configuration for the CameraHandlers.
type CameraConfig struct {
	Logger     *slog.Logger
	Dispatcher ingest.Dispatcher
	// Cameras maps camera MAC addresses to friendly names.
	Cameras map[string]string
	// Now overrides the event timestamp clock (for tests).
	Now func() time.Time
}

// NewCameraHandlers creates the camera handler set.
func NewCameraHandlers(cfg *CameraConfig) (*CameraHandlers, error) {
	if cfg == nil {
		return nil, errors.New("camera config cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.Dispatcher == nil {
		return nil, errors.New("dispatcher cannot be nil")
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &CameraHandlers{
		logger:     cfg.Logger,
		dispatcher: cfg.Dispatcher,
		cameras:    cfg.Cameras,
		now:        now,
	}, nil
}

// Routes returns the handler set's routes.
func (h *CameraHandlers) Routes() []Route {
	return []Route{
		{Filter: "cameras/+/motion", Name: "camera-motion", Handler: h.Motion},
	}
}

// Motion writes one cameraEvents point per motion message. The camera is
// identified by the MAC address in the topic's middle segment.
func (h *CameraHandlers) Motion(ctx context.Context, msg Message) error {
	parts := strings.Split(msg.Topic, "/")
	if len(parts) != 3 {
		return fmt.Errorf("unexpected camera topic %q", msg.Topic)
	}
	mac := parts[1]

	name, ok := h.cameras[mac]
	if !ok {
		name = mac
	}

	p, err := point.New("cameraEvents", map[string]string{
		"camera": name,
		"mac":    mac,
		"event":  "motion",
	}, map[string]any{
		"value": 1,
	}, h.now().UTC())
	if err != nil {
		return fmt.Errorf("building camera point: %w", err)
	}

	batch := point.NewBatch()
	batch.Add(p)

	if _, err := h.dispatcher.Write(ctx, "cameras", batch, false); err != nil {
		return fmt.Errorf("writing camera event: %w", err)
	}

	h.logger.Info("camera motion recorded", "camera", name, "topic", msg.Topic)
	return nil
}
