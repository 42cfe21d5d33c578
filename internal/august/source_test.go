package august_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rjames86/grafana-collectors/internal/august"
	"github.com/rjames86/grafana-collectors/pkg/logger"
)

var _ = Describe("Source", func() {
	var (
		adapter *august.Adapter
		now     time.Time
	)

	BeforeEach(func() {
		var err error
		adapter, err = august.NewAdapter(logger.NewDefault())
		Expect(err).NotTo(HaveOccurred())

		now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	})

	newSource := func(baseURL string) *august.Source {
		client, err := august.NewClient(&august.ClientConfig{
			Logger:      logger.NewDefault(),
			BaseURL:     baseURL,
			AccessToken: "token",
		})
		Expect(err).NotTo(HaveOccurred())

		source, err := august.NewSource(&august.SourceConfig{
			Client:  client,
			Adapter: adapter,
			Now:     func() time.Time { return now },
		})
		Expect(err).NotTo(HaveOccurred())
		return source
	}

	It("collects batteries, pins and activities across all locks and houses", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.Header.Get("x-august-access-token")).To(Equal("token"))

			switch r.URL.Path {
			case "/users/houses/mine":
				_ = json.NewEncoder(w).Encode([]map[string]string{
					{"HouseID": "house-1", "HouseName": "Central"},
				})
			case "/users/locks/mine":
				_ = json.NewEncoder(w).Encode(map[string]map[string]string{
					"lock-1": {"HouseID": "house-1"},
				})
			case "/locks/lock-1":
				_ = json.NewEncoder(w).Encode(map[string]any{
					"LockID":   "lock-1",
					"LockName": "Front Door",
					"HouseID":  "house-1",
					"battery":  0.9,
					"keypad":   map[string]any{"batteryRaw": 175.0},
				})
			case "/locks/lock-1/pins":
				_ = json.NewEncoder(w).Encode(map[string]any{
					"loaded": []map[string]any{{
						"_id":        "pin-1",
						"state":      "loaded",
						"pin":        "1234",
						"firstName":  "Jane",
						"lastName":   "Doe",
						"accessType": "always",
						"createdAt":  "2024-05-01T09:00:00Z",
						"updatedAt":  "2024-05-01T09:00:00Z",
					}},
				})
			case "/houses/house-1/activities":
				Expect(r.URL.Query().Get("limit")).To(Equal("50"))
				_ = json.NewEncoder(w).Encode([]map[string]any{{
					"deviceID":   "lock-1",
					"deviceName": "Front Door",
					"deviceType": "lock",
					"action":     "unlock",
					"house":      "house-1",
					"dateTime":   1717230600000,
					"callingUser": map[string]string{
						"FirstName": "Jane",
						"LastName":  "Doe",
					},
					"info": map[string]any{"remote": true},
				}})
			default:
				http.NotFound(w, r)
			}
		}))
		defer server.Close()

		batch, err := newSource(server.URL).Collect(context.Background())
		Expect(err).NotTo(HaveOccurred())

		// Lock + keypad batteries, one pin, one activity.
		Expect(batch.Len()).To(Equal(4))

		pts := batch.Points()
		Expect(pts[0].Measurement).To(Equal("augustLockBattery"))
		Expect(pts[0].Tags["type"]).To(Equal("lock"))
		Expect(pts[1].Tags["type"]).To(Equal("keypad"))
		Expect(pts[2].Measurement).To(Equal("augustPins"))
		Expect(pts[3].Measurement).To(Equal("augustActivities"))
		Expect(pts[3].Tags["house"]).To(Equal("Central"))
		Expect(pts[3].Fields["operated_by"]).To(Equal("Jane Doe"))
		Expect(pts[3].Fields["operated_remote"]).To(Equal(true))
		Expect(pts[3].Time).To(BeTemporally("==", time.UnixMilli(1717230600000).UTC()))
	})

	It("aborts the cycle when the token is rejected", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "expired", http.StatusUnauthorized)
		}))
		defer server.Close()

		_, err := newSource(server.URL).Collect(context.Background())
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("access token"))
	})

	Describe("LoadAccessToken", func() {
		It("reads the token from a cache file", func() {
			path := filepath.Join(GinkgoT().TempDir(), "auth_cache")
			Expect(os.WriteFile(path, []byte(`{"access_token":"cached-token","access_token_expires":"2099-01-01T00:00:00Z"}`), 0o600)).To(Succeed())

			token, err := august.LoadAccessToken(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(token).To(Equal("cached-token"))
		})

		It("rejects an expired token", func() {
			path := filepath.Join(GinkgoT().TempDir(), "auth_cache")
			Expect(os.WriteFile(path, []byte(`{"access_token":"old","access_token_expires":"2020-01-01T00:00:00Z"}`), 0o600)).To(Succeed())

			_, err := august.LoadAccessToken(path)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("expired"))
		})

		It("rejects a missing cache file", func() {
			_, err := august.LoadAccessToken(filepath.Join(GinkgoT().TempDir(), "nope"))
			Expect(err).To(HaveOccurred())
		})
	})
})
