package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rjames86/grafana-collectors/internal/api"
	"github.com/rjames86/grafana-collectors/pkg/logger"
	"github.com/rjames86/grafana-collectors/pkg/point"
)

type fakeStore struct {
	writeErr   error
	latest     *api.LatestData
	latestErr  error
	databases  []string
	pointsSeen []point.Point
}

func (f *fakeStore) WritePoints(_ context.Context, database string, pts []point.Point) error {
	f.databases = append(f.databases, database)
	f.pointsSeen = append(f.pointsSeen, pts...)
	return f.writeErr
}

func (f *fakeStore) LatestData(_ context.Context) (*api.LatestData, error) {
	return f.latest, f.latestErr
}

type relayCall struct {
	App     string
	Message string
	Title   string
}

type fakeRelay struct {
	err   error
	calls []relayCall
}

func (f *fakeRelay) Send(_ context.Context, app, message, title string) error {
	f.calls = append(f.calls, relayCall{App: app, Message: message, Title: title})
	return f.err
}

var _ = Describe("Server", func() {
	var (
		store  *fakeStore
		relay  *fakeRelay
		server *httptest.Server
	)

	BeforeEach(func() {
		store = &fakeStore{latest: &api.LatestData{
			Power:       "1250.00",
			Energy:      "8400.50",
			Consumption: "6200.25",
			LastUpdated: "2024-06-01T19:45:00Z",
		}}
		relay = &fakeRelay{}

		apiServer, err := api.NewServer(&api.ServerConfig{
			Logger:   logger.NewDefault(),
			HTTPPort: 5000,
			Store:    store,
			Relay:    relay,
		})
		Expect(err).NotTo(HaveOccurred())

		server = httptest.NewServer(apiServer.Routes())
		DeferCleanup(server.Close)
	})

	postJSON := func(path string, body any) *http.Response {
		raw, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())

		resp, err := http.Post(server.URL+path, "application/json", bytes.NewReader(raw))
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	decode := func(resp *http.Response) map[string]any {
		defer resp.Body.Close()
		var body map[string]any
		Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
		return body
	}

	Describe("write endpoint", func() {
		validPoint := func() map[string]any {
			return map[string]any{
				"measurement": "airquality",
				"tags":        map[string]string{"sensor": "PurpleAir"},
				"fields":      map[string]any{"pm25": 7.4},
				"time":        "2024-06-01T12:00:00Z",
			}
		}

		It("writes a valid batch and acknowledges it", func() {
			resp := postJSON("/influx/airquality/write", map[string]any{
				"data_points": []any{validPoint()},
				"verbose":     false,
			})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			body := decode(resp)
			Expect(body["success"]).To(BeTrue())
			Expect(body["message"]).To(Equal("Successfully written"))

			Expect(store.databases).To(Equal([]string{"airquality"}))
			Expect(store.pointsSeen).To(HaveLen(1))
			Expect(store.pointsSeen[0].Measurement).To(Equal("airquality"))
			Expect(store.pointsSeen[0].Time).To(BeTemporally("==", time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)))
		})

		It("rejects a batch containing an invalid point", func() {
			bad := validPoint()
			bad["fields"] = map[string]any{}

			resp := postJSON("/influx/airquality/write", map[string]any{
				"data_points": []any{bad},
			})
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(decode(resp)["success"]).To(BeFalse())
			Expect(store.databases).To(BeEmpty())
		})

		It("rejects an empty batch", func() {
			resp := postJSON("/influx/airquality/write", map[string]any{"data_points": []any{}})
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("reports a store failure with a non-2xx status", func() {
			store.writeErr = errors.New("influx is down")

			resp := postJSON("/influx/airquality/write", map[string]any{
				"data_points": []any{validPoint()},
			})
			Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))

			body := decode(resp)
			Expect(body["success"]).To(BeFalse())
			Expect(body["message"]).To(ContainSubstring("influx is down"))
		})
	})

	Describe("latest data endpoint", func() {
		It("serves the preformatted summary", func() {
			resp, err := http.Get(server.URL + "/latest_data")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			body := decode(resp)
			Expect(body["power"]).To(Equal("1250.00"))
			Expect(body["energy"]).To(Equal("8400.50"))
			Expect(body["consumption"]).To(Equal("6200.25"))
			Expect(body["last_updated"]).To(Equal("2024-06-01T19:45:00Z"))
		})

		It("fails when the store query fails", func() {
			store.latestErr = errors.New("query timeout")

			resp, err := http.Get(server.URL + "/latest_data")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
		})
	})

	Describe("notify endpoint", func() {
		It("relays a notification under the named app", func() {
			resp := postJSON("/pushover/sprinkler/message", map[string]string{
				"message": "Back Yard turned ON - Duration: 45s",
				"title":   "OpenSprinkler Notification",
			})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(decode(resp)["success"]).To(BeTrue())

			Expect(relay.calls).To(Equal([]relayCall{{
				App:     "sprinkler",
				Message: "Back Yard turned ON - Duration: 45s",
				Title:   "OpenSprinkler Notification",
			}}))
		})

		It("rejects an empty message", func() {
			resp := postJSON("/pushover/sprinkler/message", map[string]string{"title": "x"})
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("reports a relay failure", func() {
			relay.err = errors.New("pushover returned 401")

			resp := postJSON("/pushover/sprinkler/message", map[string]string{"message": "hi"})
			Expect(resp.StatusCode).To(Equal(http.StatusBadGateway))
		})
	})

	It("reports health", func() {
		resp, err := http.Get(server.URL + "/healthz")
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(decode(resp)["status"]).To(Equal("ok"))
	})
})
