package solaredge

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/rjames86/grafana-collectors/pkg/point"
	"github.com/rjames86/grafana-collectors/pkg/timezone"
)

// Kind selects the metric family a details payload belongs to. Energy and
// power series for the same meter type must never share a measurement name.
type Kind string

// Supported detail kinds.
const (
	KindEnergy Kind = "energy"
	KindPower  Kind = "power"
)

// meterMetrics maps the API's meter types to the metric suffix used in
// measurement and entity names. Unknown meter types are skipped.
var meterMetrics = map[string]string{
	"Production":      "production",
	"Consumption":     "consumption",
	"SelfConsumption": "self_consumption",
	"FeedIn":          "feedin",
	"Purchased":       "import",
}

// Adapter maps details payloads into points.
type Adapter struct {
	logger *slog.Logger
	conv   *timezone.Converter
}

// NewAdapter creates an adapter converting timestamps from the site's local
// zone.
func NewAdapter(logger *slog.Logger, conv *timezone.Converter) (*Adapter, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if conv == nil {
		return nil, fmt.Errorf("timezone converter cannot be nil")
	}
	return &Adapter{logger: logger, conv: conv}, nil
}

// Points flattens a details payload into one point per non-null sample.
// Point order is deterministic: meters in payload order, samples in series
// order. A malformed sample is skipped and logged, never fatal.
func (a *Adapter) Points(details Details, kind Kind) []point.Point {
	var pts []point.Point

	for _, meter := range details.Meters {
		metric, ok := meterMetrics[meter.Type]
		if !ok {
			a.logger.Warn("skipping unknown meter type", "type", meter.Type)
			continue
		}

		measurement := fmt.Sprintf("sensor__%s_%s", kind, metric)
		entityID := fmt.Sprintf("solaredge_%s_%s", kind, metric)

		for _, sample := range meter.Values {
			if sample.Value == nil {
				continue
			}

			ts, err := a.conv.ToUTC(sample.Date)
			if err != nil {
				a.logger.Warn("skipping sample with bad timestamp",
					"meter", meter.Type,
					"date", sample.Date,
					"error", err,
				)
				continue
			}

			// Year/month tags come from the site-local calendar date so a
			// late-evening sample stays in its local month.
			year, month, _ := a.conv.LocalDate(ts)

			p, err := point.New(measurement, map[string]string{
				"entity_id": entityID,
				"domain":    "sensor",
				"year":      strconv.Itoa(year),
				"month":     strconv.Itoa(int(month)),
			}, map[string]any{
				"value": *sample.Value,
			}, ts)
			if err != nil {
				a.logger.Warn("skipping invalid sample",
					"meter", meter.Type,
					"error", err,
				)
				continue
			}

			pts = append(pts, p)
		}
	}

	return pts
}
