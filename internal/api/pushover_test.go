package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rjames86/grafana-collectors/internal/api"
	"github.com/rjames86/grafana-collectors/pkg/logger"
)

var _ = Describe("PushoverRelay", func() {
	newRelay := func(baseURL string) *api.PushoverRelay {
		relay, err := api.NewPushoverRelay(&api.PushoverConfig{
			Logger:  logger.NewDefault(),
			BaseURL: baseURL,
			UserKey: "user-key",
			Apps:    map[string]string{"sprinkler": "app-token"},
		})
		Expect(err).NotTo(HaveOccurred())
		return relay
	}

	It("posts the message under the app's token", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/1/messages.json"))
			Expect(r.ParseForm()).To(Succeed())
			Expect(r.PostForm.Get("token")).To(Equal("app-token"))
			Expect(r.PostForm.Get("user")).To(Equal("user-key"))
			Expect(r.PostForm.Get("message")).To(Equal("watering done"))
			Expect(r.PostForm.Get("title")).To(Equal("OpenSprinkler"))
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		err := newRelay(server.URL).Send(context.Background(), "sprinkler", "watering done", "OpenSprinkler")
		Expect(err).NotTo(HaveOccurred())
	})

	It("rejects an unknown app without calling the provider", func() {
		called := false
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))
		defer server.Close()

		err := newRelay(server.URL).Send(context.Background(), "nope", "m", "t")
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("unknown notification app"))
		Expect(called).To(BeFalse())
	})

	It("reports a provider failure", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad token", http.StatusUnauthorized)
		}))
		defer server.Close()

		err := newRelay(server.URL).Send(context.Background(), "sprinkler", "m", "t")
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("401"))
	})
})
