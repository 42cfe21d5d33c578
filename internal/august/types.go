// Package august collects lock battery levels, house activity logs and
// access codes from the August cloud API and normalizes them into points.
package august

import "time"

// House is one house the account can see.
type House struct {
	ID   string `json:"HouseID"`
	Name string `json:"HouseName"`
}

// Houses is the account's house list with name lookup by id.
type Houses []House

// NameByID resolves a house id to its name. Unknown ids (including empty
// ones) resolve to the literal "Unknown"; the lookup never fails.
func (h Houses) NameByID(id string) string {
	for _, house := range h {
		if house.ID == id {
			return house.Name
		}
	}
	return "Unknown"
}

// Keypad is the keypad attached to a lock, when present. Its battery level
// is reported raw, separately from the lock's own.
type Keypad struct {
	BatteryRaw float64 `json:"batteryRaw"`
}

// LockDetail is the full state of one lock. The battery level is a 0..1
// fraction.
type LockDetail struct {
	DeviceID     string  `json:"LockID"`
	Name         string  `json:"LockName"`
	HouseID      string  `json:"HouseID"`
	BatteryLevel float64 `json:"battery"`
	Keypad       *Keypad `json:"keypad"`
}

// lockSummary is one entry of the locks-for-user response; only the ids are
// needed to fetch details.
type lockSummary struct {
	DeviceID string
	HouseID  string
}

// Activity is one entry of a house's activity log. The operated_* attributes
// only exist for some activity types, so they are modeled as explicit
// nullable fields rather than probed dynamically.
type Activity struct {
	ID                 string
	HouseID            string
	DeviceID           string
	DeviceName         string
	DeviceType         string
	ActivityType       string
	Action             string
	StartTime          time.Time
	EndTime            time.Time
	OperatedBy         *string
	OperatedRemote     *bool
	OperatedKeypad     *bool
	OperatedAutoRelock *bool
}

// Pin is one access code registered on a lock. The access window is open
// ended for permanent codes.
type Pin struct {
	ID              string     `json:"_id"`
	State           string     `json:"state"`
	Code            string     `json:"pin"`
	FirstName       string     `json:"firstName"`
	LastName        string     `json:"lastName"`
	AccessType      string     `json:"accessType"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	AccessStartTime *time.Time `json:"accessStartTime"`
	AccessEndTime   *time.Time `json:"accessEndTime"`
}
