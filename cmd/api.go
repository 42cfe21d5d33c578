package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rjames86/grafana-collectors/internal/api"
	"github.com/rjames86/grafana-collectors/pkg/metrics"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Run the ingestion API server",
	Long: `Run the ingestion API server that:
- Accepts point batches from the collectors and writes them to InfluxDB
- Creates destination buckets lazily on first write
- Serves the latest-solar-data dashboard summary
- Relays push notifications to Pushover`,
	RunE: runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)

	// API-specific flags
	apiCmd.Flags().Int("http-port", 5000, "HTTP server port")
	apiCmd.Flags().String("influx-url", "http://localhost:8086", "InfluxDB URL")
	apiCmd.Flags().String("influx-token", "", "InfluxDB API token")
	apiCmd.Flags().String("influx-org", "home", "InfluxDB organization")
	apiCmd.Flags().String("timezone", "America/Denver", "reference zone for the dashboard summary window")
	apiCmd.Flags().String("pushover-user", "", "Pushover user key")

	// Bind flags to viper
	_ = viper.BindPFlag("api.http.port", apiCmd.Flags().Lookup("http-port"))
	_ = viper.BindPFlag("api.influx.url", apiCmd.Flags().Lookup("influx-url"))
	_ = viper.BindPFlag("api.influx.token", apiCmd.Flags().Lookup("influx-token"))
	_ = viper.BindPFlag("api.influx.org", apiCmd.Flags().Lookup("influx-org"))
	_ = viper.BindPFlag("api.timezone", apiCmd.Flags().Lookup("timezone"))
	_ = viper.BindPFlag("api.pushover.user_key", apiCmd.Flags().Lookup("pushover-user"))
}

func runAPI(_ *cobra.Command, _ []string) error {
	log := GetLogger()
	log.Info("starting ingestion API service")

	loc, err := time.LoadLocation(viper.GetString("api.timezone"))
	if err != nil {
		return fmt.Errorf("invalid timezone: %w", err)
	}

	ingestMetrics := metrics.NewIngestMetrics("grafana_collectors")

	store, err := api.NewInfluxStore(&api.InfluxConfig{
		Logger:   log,
		URL:      viper.GetString("api.influx.url"),
		Token:    viper.GetString("api.influx.token"),
		Org:      viper.GetString("api.influx.org"),
		Location: loc,
		Metrics:  ingestMetrics,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	relay, err := api.NewPushoverRelay(&api.PushoverConfig{
		Logger:  log,
		UserKey: viper.GetString("api.pushover.user_key"),
		Apps:    viper.GetStringMapString("api.pushover.apps"),
		Metrics: ingestMetrics,
	})
	if err != nil {
		return err
	}

	server, err := api.NewServer(&api.ServerConfig{
		Logger:   log,
		HTTPPort: viper.GetInt("api.http.port"),
		Store:    store,
		Relay:    relay,
	})
	if err != nil {
		return err
	}

	log.Info("ingestion API configuration",
		"http_port", viper.GetInt("api.http.port"),
		"influx_url", viper.GetString("api.influx.url"),
		"influx_org", viper.GetString("api.influx.org"),
	)

	if err := server.Run(context.Background()); err != nil {
		log.Error("ingestion API server error", "error", err)
		return err
	}

	log.Info("ingestion API server stopped")
	return nil
}
