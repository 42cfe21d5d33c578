package solaredge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rjames86/grafana-collectors/pkg/point"
	"github.com/rjames86/grafana-collectors/pkg/timezone"
)

// Source is the SolarEdge polling source: one Collect fetches the energy and
// power detail series for the configured window and flattens both into one
// batch.
type Source struct {
	client      *Client
	adapter     *Adapter
	conv        *timezone.Converter
	begin, end  time.Time
	granularity string
	dryRun      bool
}

// SourceConfig holds the configuration for the Source.
type SourceConfig struct {
	Client  *Client
	Adapter *Adapter
	// Converter supplies the site-local zone for dry-run sample data.
	Converter *timezone.Converter
	// Begin and End bound the query window.
	Begin time.Time
	End   time.Time
	// Granularity is the energy series time unit.
	Granularity string
	// DryRun replaces API fetches with generated sample payloads.
	DryRun bool
}

// NewSource creates the SolarEdge source.
func NewSource(cfg *SourceConfig) (*Source, error) {
	if cfg == nil {
		return nil, errors.New("source config cannot be nil")
	}
	if cfg.Adapter == nil {
		return nil, errors.New("adapter cannot be nil")
	}
	if cfg.Converter == nil {
		return nil, errors.New("timezone converter cannot be nil")
	}
	if cfg.Client == nil && !cfg.DryRun {
		return nil, errors.New("client cannot be nil outside dry runs")
	}
	if !cfg.End.After(cfg.Begin) {
		return nil, errors.New("query window end must be after begin")
	}

	granularity := cfg.Granularity
	if granularity == "" {
		granularity = "QUARTER_OF_AN_HOUR"
	}
	valid := false
	for _, g := range Granularities {
		if g == granularity {
			valid = true
			break
		}
	}
	if !valid {
		return nil, fmt.Errorf("unsupported granularity %q", granularity)
	}

	return &Source{
		client:      cfg.Client,
		adapter:     cfg.Adapter,
		conv:        cfg.Converter,
		begin:       cfg.Begin,
		end:         cfg.End,
		granularity: granularity,
		dryRun:      cfg.DryRun,
	}, nil
}

// Name implements runner.Source.
func (s *Source) Name() string { return "solaredge" }

// Destination implements runner.Source.
func (s *Source) Destination() string { return "solar_edge" }

// Collect fetches energy then power details and emits their points in that
// order.
func (s *Source) Collect(ctx context.Context) (*point.Batch, error) {
	energy, power, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}

	batch := point.NewBatch()
	batch.AddAll(s.adapter.Points(*energy, KindEnergy))
	batch.AddAll(s.adapter.Points(*power, KindPower))
	return batch, nil
}

func (s *Source) fetch(ctx context.Context) (energy, power *Details, err error) {
	if s.dryRun {
		e := SampleDetails(s.conv, s.begin, s.end)
		p := SampleDetails(s.conv, s.begin, s.end)
		return &e, &p, nil
	}

	energy, err = s.client.EnergyDetails(ctx, s.begin, s.end, s.granularity)
	if err != nil {
		return nil, nil, fmt.Errorf("energy details: %w", err)
	}

	power, err = s.client.PowerDetails(ctx, s.begin, s.end)
	if err != nil {
		return nil, nil, fmt.Errorf("power details: %w", err)
	}

	return energy, power, nil
}
