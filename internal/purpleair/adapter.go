package purpleair

import (
	"errors"
	"log/slog"

	"github.com/rjames86/grafana-collectors/pkg/point"
)

// DefaultLocation tags readings taken by an outdoor sensor.
const DefaultLocation = "Outside"

// Adapter maps one sensor reading into exactly three points, one per
// pollutant. Downstream dashboards depend on the single-field shape, so the
// three concentrations are never merged into one point.
type Adapter struct {
	logger   *slog.Logger
	location string
}

// NewAdapter creates the air-quality adapter. An empty location defaults to
// DefaultLocation.
func NewAdapter(logger *slog.Logger, location string) (*Adapter, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if location == "" {
		location = DefaultLocation
	}
	return &Adapter{logger: logger, location: location}, nil
}

// Points emits the pm10, pm25 and pm100 points for one reading. All three
// share the same measurement, tags and timestamp.
func (a *Adapter) Points(reading Reading) []point.Point {
	tags := map[string]string{
		"location": a.location,
		"host":     reading.SensorName,
		"sensor":   "PurpleAir",
	}

	concentrations := []struct {
		field string
		value float64
	}{
		{"pm10", reading.PM10},
		{"pm25", reading.PM25},
		{"pm100", reading.PM100},
	}

	pts := make([]point.Point, 0, len(concentrations))
	for _, c := range concentrations {
		p, err := point.New("airquality", tags, map[string]any{c.field: c.value}, reading.Time)
		if err != nil {
			a.logger.Warn("skipping invalid air-quality point", "field", c.field, "error", err)
			continue
		}
		pts = append(pts, p)
	}

	return pts
}
