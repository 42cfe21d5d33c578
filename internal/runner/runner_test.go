package runner_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rjames86/grafana-collectors/internal/runner"
	"github.com/rjames86/grafana-collectors/pkg/ingest/mock"
	"github.com/rjames86/grafana-collectors/pkg/logger"
	"github.com/rjames86/grafana-collectors/pkg/point"
)

// fakeSource is a scripted runner.Source.
type fakeSource struct {
	name        string
	destination string
	points      int
	err         error
}

func (s *fakeSource) Name() string        { return s.name }
func (s *fakeSource) Destination() string { return s.destination }

func (s *fakeSource) Collect(_ context.Context) (*point.Batch, error) {
	if s.err != nil {
		return nil, s.err
	}
	b := point.NewBatch()
	for i := 0; i < s.points; i++ {
		p, _ := point.New(s.name, nil, map[string]any{"value": float64(i)}, time.Now())
		b.Add(p)
	}
	return b, nil
}

var _ = Describe("Runner", func() {
	var (
		dispatcher *mock.MockDispatcher
		run        *runner.Runner
	)

	BeforeEach(func() {
		dispatcher = mock.NewMockDispatcher()

		var err error
		run, err = runner.New(&runner.Config{
			Logger:     logger.NewDefault(),
			Dispatcher: dispatcher,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("New", func() {
		It("requires a logger and a dispatcher", func() {
			_, err := runner.New(&runner.Config{Dispatcher: dispatcher})
			Expect(err).To(HaveOccurred())

			_, err = runner.New(&runner.Config{Logger: logger.NewDefault()})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Run", func() {
		It("dispatches each source's batch to its own destination", func() {
			sources := []runner.Source{
				&fakeSource{name: "solaredge", destination: "solar_edge", points: 3},
				&fakeSource{name: "airquality", destination: "airquality", points: 3},
			}

			results, err := run.Run(context.Background(), sources)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))

			calls := dispatcher.Calls()
			Expect(calls).To(HaveLen(2))
			Expect(calls[0].Destination).To(Equal("solar_edge"))
			Expect(calls[1].Destination).To(Equal("airquality"))
			Expect(calls[0].Batch.Len()).To(Equal(3))
		})

		It("continues past a failed source", func() {
			sources := []runner.Source{
				&fakeSource{name: "august", destination: "august_data", err: errors.New("401 unauthorized")},
				&fakeSource{name: "airquality", destination: "airquality", points: 1},
			}

			results, err := run.Run(context.Background(), sources)
			Expect(err).NotTo(HaveOccurred())
			Expect(results[0].Err).To(HaveOccurred())
			Expect(results[1].Err).NotTo(HaveOccurred())
			Expect(results[1].Points).To(Equal(1))
			Expect(dispatcher.Calls()).To(HaveLen(1))
		})

		It("fails only when every source failed", func() {
			sources := []runner.Source{
				&fakeSource{name: "august", destination: "august_data", err: errors.New("down")},
				&fakeSource{name: "airquality", destination: "airquality", err: errors.New("down")},
			}

			_, err := run.Run(context.Background(), sources)
			Expect(err).To(MatchError(runner.ErrAllSourcesFailed))
		})

		It("treats an empty batch as success without dispatching", func() {
			sources := []runner.Source{
				&fakeSource{name: "solaredge", destination: "solar_edge", points: 0},
			}

			results, err := run.Run(context.Background(), sources)
			Expect(err).NotTo(HaveOccurred())
			Expect(results[0].Err).NotTo(HaveOccurred())
			Expect(dispatcher.Calls()).To(BeEmpty())
		})

		It("counts a failed dispatch against the source", func() {
			dispatcher.WriteError = errors.New("api unreachable")
			sources := []runner.Source{
				&fakeSource{name: "solaredge", destination: "solar_edge", points: 2},
			}

			_, err := run.Run(context.Background(), sources)
			Expect(err).To(MatchError(runner.ErrAllSourcesFailed))
		})

		It("rejects an empty source list", func() {
			_, err := run.Run(context.Background(), nil)
			Expect(err).To(HaveOccurred())
		})
	})
})
