// Package solaredge collects energy and power detail series from the
// SolarEdge monitoring API and normalizes them into points. The API reports
// timestamps in the site's local zone without an offset.
package solaredge

// Sample is one (date, value) pair in a meter's series. Value is nil when
// the API has no reading for the slot; such samples produce no points.
type Sample struct {
	Date  string   `json:"date"`
	Value *float64 `json:"value"`
}

// Meter is one series within a details response, keyed by its type
// (Production, Consumption, SelfConsumption, FeedIn, Purchased).
type Meter struct {
	Type   string   `json:"type"`
	Values []Sample `json:"values"`
}

// Details is the body of an energyDetails or powerDetails response.
type Details struct {
	TimeUnit string  `json:"timeUnit"`
	Unit     string  `json:"unit"`
	Meters   []Meter `json:"meters"`
}

// energyDetailsResponse is the envelope of /site/{id}/energyDetails.
type energyDetailsResponse struct {
	EnergyDetails Details `json:"energyDetails"`
}

// powerDetailsResponse is the envelope of /site/{id}/powerDetails.
type powerDetailsResponse struct {
	PowerDetails Details `json:"powerDetails"`
}
