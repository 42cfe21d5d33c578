package solaredge

import (
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/rjames86/grafana-collectors/pkg/timezone"
)

// sampleInterval is the slot width of generated series, matching the API's
// quarter-hour granularity.
const sampleInterval = 15 * time.Minute

// SampleDetails generates a synthetic details payload covering the given
// window, used by dry runs so the pipeline can be exercised without
// credentials. Roughly one slot in ten is left null, as the real API does
// for slots without readings.
func SampleDetails(conv *timezone.Converter, begin, end time.Time) Details {
	meters := make([]Meter, 0, len(meterMetrics))

	for _, meterType := range []string{"Production", "Consumption", "SelfConsumption", "FeedIn", "Purchased"} {
		var values []Sample
		for slot := begin; slot.Before(end); slot = slot.Add(sampleInterval) {
			sample := Sample{Date: conv.FormatCivil(slot)}
			if gofakeit.Number(0, 9) > 0 {
				v := gofakeit.Float64Range(0, 5000)
				sample.Value = &v
			}
			values = append(values, sample)
		}
		meters = append(meters, Meter{Type: meterType, Values: values})
	}

	return Details{
		TimeUnit: "QUARTER_OF_AN_HOUR",
		Unit:     "Wh",
		Meters:   meters,
	}
}
