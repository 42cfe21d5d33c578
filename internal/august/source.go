package august

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rjames86/grafana-collectors/pkg/point"
)

// Source is the August polling source: one Collect walks every lock
// (battery plus access codes) and every house's activity log, joining locks
// to houses through the house list fetched at the top of the cycle.
type Source struct {
	client  *Client
	adapter *Adapter
	now     func() time.Time
}

// SourceConfig holds the configuration for the Source.
type SourceConfig struct {
	Client  *Client
	Adapter *Adapter
	// Now overrides the battery-point timestamp clock (for tests).
	Now func() time.Time
}

// NewSource creates the August source.
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

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Source{client: cfg.Client, adapter: cfg.Adapter, now: now}, nil
}

// Name implements runner.Source.
func (s *Source) Name() string { return "august" }

// Destination implements runner.Source.
func (s *Source) Destination() string { return "august_data" }

// Collect fetches the house list, then per lock the detail and access codes,
// then per house the activity log. Point order is deterministic: locks by id,
// houses in list order. Any fetch failure aborts the whole cycle.
func (s *Source) Collect(ctx context.Context) (*point.Batch, error) {
	houses, err := s.client.Houses(ctx)
	if err != nil {
		return nil, fmt.Errorf("houses: %w", err)
	}

	locks, err := s.client.Locks(ctx)
	if err != nil {
		return nil, fmt.Errorf("locks: %w", err)
	}

	now := s.now().UTC()
	batch := point.NewBatch()

	for _, lock := range locks {
		detail, err := s.client.Lock(ctx, lock.DeviceID)
		if err != nil {
			return nil, fmt.Errorf("lock %s: %w", lock.DeviceID, err)
		}

		batch.AddAll(s.adapter.BatteryPoints(now, *detail, houses))

		pins, err := s.client.Pins(ctx, lock.DeviceID)
		if err != nil {
			return nil, fmt.Errorf("pins for %s: %w", lock.DeviceID, err)
		}
		batch.AddAll(s.adapter.PinPoints(*detail, pins, houses))
	}

	for _, house := range houses {
		activities, err := s.client.Activities(ctx, house.ID)
		if err != nil {
			return nil, fmt.Errorf("activities for %s: %w", house.ID, err)
		}
		batch.AddAll(s.adapter.ActivityPoints(activities, houses))
	}

	return batch, nil
}
