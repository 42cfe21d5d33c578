package august_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rjames86/grafana-collectors/internal/august"
	"github.com/rjames86/grafana-collectors/pkg/logger"
)

var _ = Describe("Adapter", func() {
	var (
		adapter *august.Adapter
		houses  august.Houses
		now     time.Time
	)

	BeforeEach(func() {
		var err error
		adapter, err = august.NewAdapter(logger.NewDefault())
		Expect(err).NotTo(HaveOccurred())

		houses = august.Houses{{ID: "A", Name: "Central"}}
		now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	})

	Describe("house name resolution", func() {
		It("resolves a known id to its name", func() {
			Expect(houses.NameByID("A")).To(Equal("Central"))
		})

		It("resolves an unknown id to the literal Unknown", func() {
			Expect(houses.NameByID("B")).To(Equal("Unknown"))
			Expect(houses.NameByID("")).To(Equal("Unknown"))
		})
	})

	Describe("BatteryPoints", func() {
		It("emits one point for a lock without a keypad", func() {
			lock := august.LockDetail{
				DeviceID:     "lock-1",
				Name:         "Front Door",
				HouseID:      "A",
				BatteryLevel: 0.82,
			}

			pts := adapter.BatteryPoints(now, lock, houses)
			Expect(pts).To(HaveLen(1))
			Expect(pts[0].Measurement).To(Equal("augustLockBattery"))
			Expect(pts[0].Tags).To(Equal(map[string]string{
				"name":    "Front Door",
				"house":   "Central",
				"lock_id": "lock-1",
				"type":    "lock",
			}))
			Expect(pts[0].Fields["battery_level"]).To(Equal(0.82))
			Expect(pts[0].Time).To(BeTemporally("==", now))
		})

		It("emits a second keypad point with the keypad's own reading", func() {
			lock := august.LockDetail{
				DeviceID:     "lock-1",
				Name:         "Front Door",
				HouseID:      "A",
				BatteryLevel: 0.82,
				Keypad:       &august.Keypad{BatteryRaw: 180.0},
			}

			pts := adapter.BatteryPoints(now, lock, houses)
			Expect(pts).To(HaveLen(2))
			Expect(pts[1].Tags["type"]).To(Equal("keypad"))
			Expect(pts[1].Tags["name"]).To(Equal("Front Door Keypad"))
			Expect(pts[1].Fields["battery_level"]).To(Equal(180.0))
		})

		It("tags locks of an unknown house as Unknown", func() {
			lock := august.LockDetail{DeviceID: "lock-2", Name: "Shed", HouseID: "B", BatteryLevel: 0.5}

			pts := adapter.BatteryPoints(now, lock, houses)
			Expect(pts[0].Tags["house"]).To(Equal("Unknown"))
		})
	})

	Describe("ActivityPoints", func() {
		It("carries the operated attributes when present and null otherwise", func() {
			by := "Jane Doe"
			remote := true
			at := time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)

			activities := []august.Activity{
				{
					ID:             "act-1",
					HouseID:        "A",
					DeviceID:       "lock-1",
					DeviceName:     "Front Door",
					DeviceType:     "lock",
					ActivityType:   "LOCK_OPERATION",
					Action:         "unlock",
					StartTime:      at,
					EndTime:        at,
					OperatedBy:     &by,
					OperatedRemote: &remote,
				},
				{
					ID:           "act-2",
					HouseID:      "A",
					DeviceID:     "lock-1",
					DeviceName:   "Front Door",
					DeviceType:   "lock",
					ActivityType: "DOOR_OPERATION",
					Action:       "doorclosed",
					StartTime:    at.Add(time.Minute),
					EndTime:      at.Add(time.Minute),
				},
			}

			pts := adapter.ActivityPoints(activities, houses)
			Expect(pts).To(HaveLen(2))

			Expect(pts[0].Measurement).To(Equal("augustActivities"))
			Expect(pts[0].Tags["house"]).To(Equal("Central"))
			Expect(pts[0].Tags["activity_type"]).To(Equal("LOCK_OPERATION"))
			Expect(pts[0].Fields["operated_by"]).To(Equal("Jane Doe"))
			Expect(pts[0].Fields["operated_remote"]).To(Equal(true))
			Expect(pts[0].Fields["operated_keypad"]).To(BeNil())
			Expect(pts[0].Fields["activity_start_time"]).To(Equal("2024-06-01T08:30:00Z"))
			Expect(pts[0].Time).To(BeTemporally("==", at))

			Expect(pts[1].Fields["operated_by"]).To(BeNil())
			Expect(pts[1].Fields["operated_autorelock"]).To(BeNil())
		})
	})

	Describe("PinPoints", func() {
		It("keeps the access window null for permanent codes", func() {
			lock := august.LockDetail{DeviceID: "lock-1", Name: "Front Door", HouseID: "A"}
			created := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
			updated := created.Add(time.Hour)

			pins := []august.Pin{{
				ID:         "pin-1",
				State:      "loaded",
				Code:       "4321",
				FirstName:  "Jane",
				LastName:   "Doe",
				AccessType: "always",
				CreatedAt:  created,
				UpdatedAt:  updated,
			}}

			pts := adapter.PinPoints(lock, pins, houses)
			Expect(pts).To(HaveLen(1))
			Expect(pts[0].Measurement).To(Equal("augustPins"))
			Expect(pts[0].Tags).To(Equal(map[string]string{
				"house":       "Central",
				"house_id":    "A",
				"lock_id":     "lock-1",
				"access_type": "always",
			}))
			Expect(pts[0].Fields["pin"]).To(Equal("4321"))
			Expect(pts[0].Fields["access_start_time"]).To(BeNil())
			Expect(pts[0].Fields["access_end_time"]).To(BeNil())
			Expect(pts[0].Time).To(BeTemporally("==", created))
		})

		It("formats a bounded access window as ISO strings", func() {
			lock := august.LockDetail{DeviceID: "lock-1", HouseID: "A"}
			created := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
			start := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
			end := time.Date(2024, 5, 9, 0, 0, 0, 0, time.UTC)

			pins := []august.Pin{{
				ID:              "pin-2",
				State:           "loaded",
				Code:            "9876",
				AccessType:      "temporary",
				CreatedAt:       created,
				UpdatedAt:       created,
				AccessStartTime: &start,
				AccessEndTime:   &end,
			}}

			pts := adapter.PinPoints(lock, pins, houses)
			Expect(pts).To(HaveLen(1))
			Expect(pts[0].Fields["access_start_time"]).To(Equal("2024-05-02T00:00:00Z"))
			Expect(pts[0].Fields["access_end_time"]).To(Equal("2024-05-09T00:00:00Z"))
		})
	})
})
