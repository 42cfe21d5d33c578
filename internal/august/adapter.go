package august

import (
	"errors"
	"log/slog"
	"time"

	"github.com/rjames86/grafana-collectors/pkg/point"
	"github.com/rjames86/grafana-collectors/pkg/timezone"
)

// Adapter flattens lock-domain entities into points. House names are
// resolved through the Houses lookup built once per cycle.
type Adapter struct {
	logger *slog.Logger
}

// NewAdapter creates the lock-domain adapter.
func NewAdapter(logger *slog.Logger) (*Adapter, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &Adapter{logger: logger}, nil
}

// BatteryPoints emits the battery level of one lock, and of its keypad when
// one is attached. The keypad reports its own raw battery reading under a
// separate type tag so the two series stay distinguishable.
func (a *Adapter) BatteryPoints(now time.Time, lock LockDetail, houses Houses) []point.Point {
	house := houses.NameByID(lock.HouseID)

	pts := make([]point.Point, 0, 2)

	p, err := point.New("augustLockBattery", map[string]string{
		"name":    lock.Name,
		"house":   house,
		"lock_id": lock.DeviceID,
		"type":    "lock",
	}, map[string]any{
		"battery_level": lock.BatteryLevel,
	}, now)
	if err != nil {
		a.logger.Warn("skipping invalid lock battery point", "lock_id", lock.DeviceID, "error", err)
	} else {
		pts = append(pts, p)
	}

	if lock.Keypad != nil {
		kp, err := point.New("augustLockBattery", map[string]string{
			"name":    lock.Name + " Keypad",
			"house":   house,
			"lock_id": lock.DeviceID,
			"type":    "keypad",
		}, map[string]any{
			"battery_level": lock.Keypad.BatteryRaw,
		}, now)
		if err != nil {
			a.logger.Warn("skipping invalid keypad battery point", "lock_id", lock.DeviceID, "error", err)
		} else {
			pts = append(pts, kp)
		}
	}

	return pts
}

// ActivityPoints emits one point per activity-log entry, timestamped at the
// activity itself rather than the poll. The operated_* fields stay null for
// activity types that do not carry them.
func (a *Adapter) ActivityPoints(activities []Activity, houses Houses) []point.Point {
	var pts []point.Point

	for _, activity := range activities {
		p, err := point.New("augustActivities", map[string]string{
			"house":         houses.NameByID(activity.HouseID),
			"house_id":      activity.HouseID,
			"activity_type": activity.ActivityType,
			"device_name":   activity.DeviceName,
			"device_type":   activity.DeviceType,
		}, map[string]any{
			"activity_id":         activity.ID,
			"activity_start_time": timezone.FormatISO(activity.StartTime),
			"activity_end_time":   timezone.FormatISO(activity.EndTime),
			"action":              activity.Action,
			"device_id":           activity.DeviceID,
			"operated_by":         optional(activity.OperatedBy),
			"operated_remote":     optional(activity.OperatedRemote),
			"operated_keypad":     optional(activity.OperatedKeypad),
			"operated_autorelock": optional(activity.OperatedAutoRelock),
		}, activity.StartTime)
		if err != nil {
			a.logger.Warn("skipping invalid activity point", "activity_id", activity.ID, "error", err)
			continue
		}
		pts = append(pts, p)
	}

	return pts
}

// PinPoints emits one point per access code loaded on the given lock,
// timestamped at the code's creation. Permanent codes keep a null access
// window.
func (a *Adapter) PinPoints(lock LockDetail, pins []Pin, houses Houses) []point.Point {
	house := houses.NameByID(lock.HouseID)

	var pts []point.Point
	for _, pin := range pins {
		p, err := point.New("augustPins", map[string]string{
			"house":       house,
			"house_id":    lock.HouseID,
			"lock_id":     lock.DeviceID,
			"access_type": pin.AccessType,
		}, map[string]any{
			"state":             pin.State,
			"pin":               pin.Code,
			"first_name":        pin.FirstName,
			"last_name":         pin.LastName,
			"updated_at":        timezone.FormatISO(pin.UpdatedAt),
			"access_type":       pin.AccessType,
			"access_start_time": optionalTime(pin.AccessStartTime),
			"access_end_time":   optionalTime(pin.AccessEndTime),
		}, pin.CreatedAt)
		if err != nil {
			a.logger.Warn("skipping invalid pin point", "pin_id", pin.ID, "error", err)
			continue
		}
		pts = append(pts, p)
	}

	return pts
}

func optional[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func optionalTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return timezone.FormatISO(*t)
}
