package purpleair

import (
	"context"
	"errors"

	"github.com/rjames86/grafana-collectors/pkg/point"
)

// Source is the PurpleAir polling source: one Collect fetches one sensor
// snapshot and emits its three pollutant points.
type Source struct {
	client  *Client
	adapter *Adapter
}

// SourceConfig holds the configuration for the Source.
type SourceConfig struct {
	Client  *Client
	Adapter *Adapter
}

// NewSource creates the PurpleAir source.
func NewSource(cfg *SourceConfig) (*Source, error) {
	if cfg == nil {
		return nil, errors.New("source config cannot be nil")
	}
	if cfg.Client == nil {
		return nil, errors.New("client cannot be nil")
	}
	if cfg.Adapter == nil {
		return nil, errors.New("adapter cannot be nil")
	}
	return &Source{client: cfg.Client, adapter: cfg.Adapter}, nil
}

// Name implements runner.Source.
func (s *Source) Name() string { return "purpleair" }

// Destination implements runner.Source.
func (s *Source) Destination() string { return "airquality" }

// Collect fetches the current reading and emits its points.
func (s *Source) Collect(ctx context.Context) (*point.Batch, error) {
	reading, err := s.client.Read(ctx)
	if err != nil {
		return nil, err
	}

	batch := point.NewBatch()
	batch.AddAll(s.adapter.Points(*reading))
	return batch, nil
}
