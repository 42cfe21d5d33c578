// Package api provides the ingestion API server: it accepts point batches
// from the collectors, writes them to InfluxDB and relays push notifications
// to Pushover.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"

	"github.com/rjames86/grafana-collectors/pkg/metrics"
	"github.com/rjames86/grafana-collectors/pkg/point"
	"github.com/rjames86/grafana-collectors/pkg/timezone"
)

// solarBucket is the bucket the dashboard summary reads from.
const solarBucket = "solar_edge"

// LatestData is the dashboard summary: today's most recent solar readings,
// preformatted as decimal strings.
type LatestData struct {
	Power       string `json:"power"`
	Energy      string `json:"energy"`
	Consumption string `json:"consumption"`
	LastUpdated string `json:"last_updated"`
}

// Store is the destination the write endpoint feeds. It enables mocking in
// tests.
type Store interface {
	WritePoints(ctx context.Context, database string, pts []point.Point) error
	LatestData(ctx context.Context) (*LatestData, error)
}

// InfluxStore writes points to InfluxDB, creating buckets lazily on first
// use.
type InfluxStore struct {
	logger  *slog.Logger
	client  influxdb2.Client
	org     string
	loc     *time.Location
	metrics *metrics.IngestMetrics

	mu      sync.Mutex
	buckets map[string]bool
}

// InfluxConfig holds the configuration for the InfluxStore.
type InfluxConfig struct {
	Logger *slog.Logger
	// URL is the InfluxDB endpoint, e.g. "http://influxdb:8086".
	URL string
	// Token authenticates against InfluxDB.
	Token string
	// Org is the InfluxDB organization owning the buckets.
	Org string
	// Location is the reference zone for the "today so far" summary window.
	Location *time.Location
	Metrics  *metrics.IngestMetrics
}

// NewInfluxStore creates the store. The connection is lazy; the first write
// surfaces connectivity problems.
func NewInfluxStore(cfg *InfluxConfig) (*InfluxStore, error) {
	if cfg == nil {
		return nil, errors.New("influx config cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.URL == "" {
		return nil, errors.New("influx URL cannot be empty")
	}
	if cfg.Org == "" {
		return nil, errors.New("influx org cannot be empty")
	}

	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}

	return &InfluxStore{
		logger:  cfg.Logger,
		client:  influxdb2.NewClient(cfg.URL, cfg.Token),
		org:     cfg.Org,
		loc:     loc,
		metrics: cfg.Metrics,
		buckets: make(map[string]bool),
	}, nil
}

// Close releases the underlying HTTP resources.
func (s *InfluxStore) Close() {
	s.client.Close()
}

// WritePoints writes one batch into the named bucket, creating the bucket if
// it does not exist yet. Null field values are stripped before writing; a
// point whose fields are all null is skipped.
func (s *InfluxStore) WritePoints(ctx context.Context, database string, pts []point.Point) error {
	if err := s.ensureBucket(ctx, database); err != nil {
		if s.metrics != nil {
			s.metrics.WriteFailures.WithLabelValues(database, "bucket").Inc()
		}
		return fmt.Errorf("ensuring bucket %s: %w", database, err)
	}

	start := time.Now()
	writeAPI := s.client.WriteAPIBlocking(s.org, database)

	written := 0
	for _, p := range pts {
		fields := make(map[string]any, len(p.Fields))
		for k, v := range p.Fields {
			if v != nil {
				fields[k] = v
			}
		}
		if len(fields) == 0 {
			s.logger.Debug("skipping point with only null fields", "measurement", p.Measurement)
			continue
		}

		if err := writeAPI.WritePoint(ctx, influxdb2.NewPoint(p.Measurement, p.Tags, fields, p.Time)); err != nil {
			if s.metrics != nil {
				s.metrics.WriteFailures.WithLabelValues(database, "write").Inc()
			}
			return fmt.Errorf("writing to %s: %w", database, err)
		}
		written++
	}

	if s.metrics != nil {
		s.metrics.PointsWritten.WithLabelValues(database).Add(float64(written))
		s.metrics.WriteDuration.WithLabelValues(database).Observe(time.Since(start).Seconds())
	}
	s.logger.Info("points written", "database", database, "count", written)
	return nil
}

// LatestData queries today's most recent power, energy and consumption
// readings. The day boundary is local midnight in the reference zone,
// recomputed per call.
func (s *InfluxStore) LatestData(ctx context.Context) (*LatestData, error) {
	lower, _ := timezone.DayBounds(time.Now(), s.loc)

	query := fmt.Sprintf(`from(bucket: %q)
  |> range(start: time(v: %s))
  |> filter(fn: (r) => r._measurement == "sensor__power_production" or r._measurement == "sensor__energy_production" or r._measurement == "sensor__energy_consumption")
  |> filter(fn: (r) => r._field == "value")
  |> last()`, solarBucket, timezone.FormatISO(time.UnixMilli(lower)))

	result, err := s.client.QueryAPI(s.org).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying latest data: %w", err)
	}

	data := &LatestData{Power: "0.00", Energy: "0.00", Consumption: "0.00"}
	var last time.Time

	for result.Next() {
		record := result.Record()
		value, ok := record.Value().(float64)
		if !ok {
			continue
		}

		formatted := strconv.FormatFloat(value, 'f', 2, 64)
		switch record.Measurement() {
		case "sensor__power_production":
			data.Power = formatted
		case "sensor__energy_production":
			data.Energy = formatted
		case "sensor__energy_consumption":
			data.Consumption = formatted
		}

		if record.Time().After(last) {
			last = record.Time()
		}
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("reading latest data: %w", err)
	}

	if !last.IsZero() {
		data.LastUpdated = timezone.FormatISO(last)
	}
	return data, nil
}

func (s *InfluxStore) ensureBucket(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.buckets[name] {
		return nil
	}

	bucketsAPI := s.client.BucketsAPI()
	if _, err := bucketsAPI.FindBucketByName(ctx, name); err == nil {
		s.buckets[name] = true
		return nil
	}

	org, err := s.client.OrganizationsAPI().FindOrganizationByName(ctx, s.org)
	if err != nil {
		return fmt.Errorf("finding organization %s: %w", s.org, err)
	}
	if _, err := bucketsAPI.CreateBucketWithName(ctx, org, name); err != nil {
		return fmt.Errorf("creating bucket %s: %w", name, err)
	}

	s.logger.Info("bucket created", "bucket", name)
	s.buckets[name] = true
	return nil
}

// Ensure InfluxStore implements Store.
var _ Store = (*InfluxStore)(nil)
