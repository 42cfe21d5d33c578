package solaredge

import (
	"fmt"
	"time"

	"github.com/rjames86/grafana-collectors/pkg/timezone"
)

// DefaultLookback is how far back the query window reaches when no explicit
// begin is given. Writes are last-write-wins at the destination, so the wide
// overlap between scheduled runs is harmless and a gap of up to two weeks of
// missed runs backfills on the next one.
const DefaultLookback = 14 * 24 * time.Hour

// QueryWindow resolves the polling window. Begin and end are site-local civil
// strings; an empty begin defaults to now minus DefaultLookback, an empty end
// to now.
func QueryWindow(conv *timezone.Converter, begin, end string, now time.Time) (time.Time, time.Time, error) {
	var lower, upper time.Time
	var err error

	if begin != "" {
		lower, err = conv.ToUTC(begin)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid begin %q: %w", begin, err)
		}
	} else {
		lower = now.Add(-DefaultLookback).UTC()
	}

	if end != "" {
		upper, err = conv.ToUTC(end)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end %q: %w", end, err)
		}
	} else {
		upper = now.UTC()
	}

	return lower, upper, nil
}
