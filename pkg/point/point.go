// Package point defines the uniform time-series measurement record that every
// collector normalizes its upstream data into, and the batch type used to
// submit records to the ingestion API.
package point

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrEmptyMeasurement is returned when a point is constructed without a
	// measurement name.
	ErrEmptyMeasurement = errors.New("point measurement cannot be empty")

	// ErrNoFields is returned when a point is constructed without any fields.
	ErrNoFields = errors.New("point must carry at least one field")
)

// Point is a single normalized time-series observation. Tags are dimensional
// identifiers used for grouping and filtering; numeric tag values (year,
// month) are rendered as decimal strings since tags are never aggregated.
// Fields hold the measured values and may contain nil for optional upstream
// attributes. Time is always UTC by the time a point is constructed.
//
// A Point is immutable once constructed: New copies both maps, and callers
// must not modify a Point after creation.
type Point struct {
	Measurement string
	Tags        map[string]string
	Fields      map[string]any
	Time        time.Time
}

// New constructs a validated Point. It fails when measurement is empty or
// fields is empty; tags may be nil. Both maps are copied so later mutation of
// the caller's maps cannot leak into the point.
func New(measurement string, tags map[string]string, fields map[string]any, t time.Time) (Point, error) {
	if measurement == "" {
		return Point{}, ErrEmptyMeasurement
	}
	if len(fields) == 0 {
		return Point{}, ErrNoFields
	}

	tagsCopy := make(map[string]string, len(tags))
	for k, v := range tags {
		tagsCopy[k] = v
	}

	fieldsCopy := make(map[string]any, len(fields))
	for k, v := range fields {
		fieldsCopy[k] = v
	}

	return Point{
		Measurement: measurement,
		Tags:        tagsCopy,
		Fields:      fieldsCopy,
		Time:        t.UTC(),
	}, nil
}

// pointJSON is the wire shape accepted by the ingestion API. Time is encoded
// as an RFC3339 string in UTC with second precision, matching what the
// destination store expects.
type pointJSON struct {
	Measurement string            `json:"measurement"`
	Tags        map[string]string `json:"tags"`
	Fields      map[string]any    `json:"fields"`
	Time        string            `json:"time"`
}

// MarshalJSON implements json.Marshaler.
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal(pointJSON{
		Measurement: p.Measurement,
		Tags:        p.Tags,
		Fields:      p.Fields,
		Time:        p.Time.UTC().Format(time.RFC3339),
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Point) UnmarshalJSON(data []byte) error {
	var wire pointJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	t, err := time.Parse(time.RFC3339, wire.Time)
	if err != nil {
		return err
	}

	p.Measurement = wire.Measurement
	p.Tags = wire.Tags
	p.Fields = wire.Fields
	p.Time = t.UTC()
	return nil
}

// Batch is an ordered, append-only collection of points assembled for one
// dispatch call. It is created empty at the start of a polling cycle or
// message-processing unit, submitted once, and discarded.
type Batch struct {
	points []Point
}

// NewBatch creates an empty batch.
func NewBatch() *Batch {
	return &Batch{}
}

// Add appends a point to the batch.
func (b *Batch) Add(p Point) {
	b.points = append(b.points, p)
}

// AddAll appends a slice of points, preserving order.
func (b *Batch) AddAll(pts []Point) {
	b.points = append(b.points, pts...)
}

// Points returns the points in insertion order. The returned slice is shared
// with the batch; callers must not modify it.
func (b *Batch) Points() []Point {
	return b.points
}

// Len returns the number of points in the batch.
func (b *Batch) Len() int {
	return len(b.points)
}
