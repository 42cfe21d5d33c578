// Package timezone converts source-local civil timestamps into the single
// reference zone (UTC) used on every emitted point, and computes the local
// start-of-day boundaries used for "today so far" query windows.
package timezone

import (
	"fmt"
	"time"
)

const (
	// LayoutDate is the civil date layout used by the upstream APIs.
	LayoutDate = "2006-01-02"

	// LayoutDateTime is the civil datetime layout used by the upstream APIs.
	LayoutDateTime = "2006-01-02 15:04:05"
)

// Converter localizes civil timestamps reported in one fixed IANA zone and
// converts them to UTC. The upstream sources report a local wall-clock time
// without an offset, so the zone has to be known out of band.
type Converter struct {
	loc *time.Location
}

// NewConverter loads the named IANA zone and returns a converter bound to it.
func NewConverter(name string) (*Converter, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load source timezone %q: %w", name, err)
	}
	return &Converter{loc: loc}, nil
}

// Location returns the converter's source zone.
func (c *Converter) Location() *time.Location {
	return c.loc
}

// ToUTC parses a civil timestamp string ("2006-01-02 15:04:05" or
// "2006-01-02"), localizes it in the source zone and converts it to UTC.
//
// A wall-clock time inside a DST fall-back transition occurs at two instants;
// such timestamps always resolve to the earlier instant. Times inside a
// spring-forward gap normalize forward per time.Date.
func (c *Converter) ToUTC(civil string) (time.Time, error) {
	parsed, err := time.Parse(LayoutDateTime, civil)
	if err != nil {
		parsed, err = time.Parse(LayoutDate, civil)
		if err != nil {
			return time.Time{}, fmt.Errorf("unparseable civil timestamp %q: %w", civil, err)
		}
	}

	return c.localize(parsed).UTC(), nil
}

// Localize interprets an already-parsed civil time (any location is ignored,
// only the wall-clock components are used) in the source zone.
func (c *Converter) Localize(civil time.Time) time.Time {
	return c.localize(civil)
}

// localize maps wall-clock components onto an instant in the source zone,
// deterministically picking the earlier instant for ambiguous times.
func (c *Converter) localize(civil time.Time) time.Time {
	t := time.Date(civil.Year(), civil.Month(), civil.Day(),
		civil.Hour(), civil.Minute(), civil.Second(), 0, c.loc)

	// A repeated civil hour maps to two instants one hour apart and
	// time.Date does not guarantee which one it picks. Probe one hour back:
	// if that instant shows the same wall clock, it is the earlier of the
	// two and wins.
	if earlier := t.Add(-time.Hour); sameCivil(earlier, t, c.loc) {
		return earlier
	}
	return t
}

func sameCivil(a, b time.Time, loc *time.Location) bool {
	return a.In(loc).Format(LayoutDateTime) == b.In(loc).Format(LayoutDateTime)
}

// LocalDate returns the calendar date of an instant as seen in the source
// zone. Year/month tags are derived from this, not from the UTC date.
func (c *Converter) LocalDate(t time.Time) (year int, month time.Month, day int) {
	return t.In(c.loc).Date()
}

// FormatCivil renders an instant as a civil datetime string in the source
// zone, the format the upstream query APIs expect for range parameters.
func (c *Converter) FormatCivil(t time.Time) string {
	return t.In(c.loc).Format(LayoutDateTime)
}

// FormatCivilDate renders an instant as a civil date string in the source zone.
func (c *Converter) FormatCivilDate(t time.Time) string {
	return t.In(c.loc).Format(LayoutDate)
}

// FormatISO renders an instant as an RFC3339 UTC string, the reference
// encoding used on points and in human-facing output.
func FormatISO(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// DayBounds computes the epoch-millisecond bounds of a "today so far" query
// window: local midnight in the given zone up to now. The lower bound changes
// daily, so it is recomputed on every call and never cached.
func DayBounds(now time.Time, loc *time.Location) (lower, upper int64) {
	local := now.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return midnight.UnixMilli(), now.UnixMilli()
}
