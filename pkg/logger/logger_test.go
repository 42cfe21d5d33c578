package logger_test

import (
	"bytes"
	"encoding/json"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rjames86/grafana-collectors/pkg/logger"
)

var _ = Describe("Logger", func() {
	Describe("New", func() {
		It("writes JSON records to the configured output", func() {
			var buf bytes.Buffer
			log := logger.New(&logger.Config{Output: &buf, Level: slog.LevelInfo})

			log.Info("cycle complete", "points", 42)

			var record map[string]any
			Expect(json.Unmarshal(buf.Bytes(), &record)).To(Succeed())
			Expect(record["msg"]).To(Equal("cycle complete"))
			Expect(record["points"]).To(BeEquivalentTo(42))
		})

		It("suppresses records below the configured level", func() {
			var buf bytes.Buffer
			log := logger.New(&logger.Config{Output: &buf, Level: slog.LevelWarn})

			log.Info("hidden")
			Expect(buf.Len()).To(BeZero())

			log.Warn("visible")
			Expect(buf.Len()).NotTo(BeZero())
		})

		It("falls back to defaults for a nil config", func() {
			Expect(logger.New(nil)).NotTo(BeNil())
		})
	})

	Describe("ForSource", func() {
		It("stamps every record with the source name", func() {
			var buf bytes.Buffer
			log := logger.ForSource(logger.New(&logger.Config{Output: &buf}), "solaredge")

			log.Info("fetched")

			var record map[string]any
			Expect(json.Unmarshal(buf.Bytes(), &record)).To(Succeed())
			Expect(record["source"]).To(Equal("solaredge"))
		})
	})

	Describe("ParseLevel", func() {
		It("maps known names to levels", func() {
			Expect(logger.ParseLevel("debug")).To(Equal(slog.LevelDebug))
			Expect(logger.ParseLevel("warn")).To(Equal(slog.LevelWarn))
			Expect(logger.ParseLevel("warning")).To(Equal(slog.LevelWarn))
			Expect(logger.ParseLevel("error")).To(Equal(slog.LevelError))
		})

		It("defaults unknown names to info", func() {
			Expect(logger.ParseLevel("chatty")).To(Equal(slog.LevelInfo))
		})
	})
})
