package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rjames86/grafana-collectors/internal/mqtt"
	"github.com/rjames86/grafana-collectors/pkg/ingest"
	"github.com/rjames86/grafana-collectors/pkg/metrics"
	"github.com/rjames86/grafana-collectors/pkg/notify"
)

var mqttCmd = &cobra.Command{
	Use:   "mqtt",
	Short: "Run the event-bus subscriber",
	Long: `Run the long-lived event-bus subscriber that:
- Turns OpenSprinkler station, system, rain-delay, weather and flow messages into push notifications
- Turns camera motion messages into points on the ingestion API
- Reconnects to the broker with capped backoff`,
	RunE: runMQTT,
}

func init() {
	rootCmd.AddCommand(mqttCmd)

	// MQTT-specific flags
	mqttCmd.Flags().String("broker", "tcp://localhost:1883", "MQTT broker URL")
	mqttCmd.Flags().String("client-id", "grafana-collectors-subscriber", "MQTT client id")
	mqttCmd.Flags().String("username", "public", "MQTT username")
	mqttCmd.Flags().String("password", "public", "MQTT password")
	mqttCmd.Flags().String("api-url", "http://localhost:5000", "ingestion API base URL")
	mqttCmd.Flags().Int("metrics-port", 9102, "Prometheus metrics port")

	// Bind flags to viper
	_ = viper.BindPFlag("mqtt.broker", mqttCmd.Flags().Lookup("broker"))
	_ = viper.BindPFlag("mqtt.client_id", mqttCmd.Flags().Lookup("client-id"))
	_ = viper.BindPFlag("mqtt.username", mqttCmd.Flags().Lookup("username"))
	_ = viper.BindPFlag("mqtt.password", mqttCmd.Flags().Lookup("password"))
	_ = viper.BindPFlag("mqtt.api_url", mqttCmd.Flags().Lookup("api-url"))
	_ = viper.BindPFlag("mqtt.metrics_port", mqttCmd.Flags().Lookup("metrics-port"))
}

func runMQTT(_ *cobra.Command, _ []string) error {
	log := GetLogger()
	log.Info("starting event-bus subscriber")

	subscriberMetrics := metrics.NewSubscriberMetrics("grafana_collectors")
	apiURL := viper.GetString("mqtt.api_url")

	notifier, err := notify.NewClient(&notify.ClientConfig{
		Logger:  log,
		BaseURL: apiURL,
		App:     "sprinkler",
	})
	if err != nil {
		return err
	}

	sprinkler, err := mqtt.NewSprinklerHandlers(&mqtt.SprinklerConfig{
		Logger:       log,
		Notifier:     notifier,
		Metrics:      subscriberMetrics,
		StationNames: stationNames(),
	})
	if err != nil {
		return err
	}

	dispatcher, err := ingest.NewClient(&ingest.ClientConfig{
		Logger:  log,
		BaseURL: apiURL + "/influx",
	})
	if err != nil {
		return err
	}

	cameras, err := mqtt.NewCameraHandlers(&mqtt.CameraConfig{
		Logger:     log,
		Dispatcher: dispatcher,
		Cameras:    viper.GetStringMapString("mqtt.cameras"),
	})
	if err != nil {
		return err
	}

	router, err := mqtt.NewRouter(&mqtt.RouterConfig{
		Logger:  log,
		Metrics: subscriberMetrics,
		Routes:  append(sprinkler.Routes(), cameras.Routes()...),
	})
	if err != nil {
		return err
	}

	subscriber, err := mqtt.NewSubscriber(&mqtt.SubscriberConfig{
		Logger:    log,
		Metrics:   subscriberMetrics,
		Router:    router,
		BrokerURL: viper.GetString("mqtt.broker"),
		ClientID:  viper.GetString("mqtt.client_id"),
		Username:  viper.GetString("mqtt.username"),
		Password:  viper.GetString("mqtt.password"),
	})
	if err != nil {
		return err
	}

	// Metrics endpoint for the long-running process.
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", viper.GetInt("mqtt.metrics_port")),
		Handler:           metrics.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server error", "error", err)
		}
	}()

	if err := subscriber.Start(); err != nil {
		return err
	}
	log.Info("subscriber running", "broker", viper.GetString("mqtt.broker"))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigChan
	log.Info("received shutdown signal", "signal", sig.String())

	subscriber.Close()
	_ = metricsServer.Close()
	return nil
}

// stationNames resolves the station-number-to-name map, falling back to the
// built-in defaults when the config has none.
func stationNames() map[string]string {
	if names := viper.GetStringMapString("mqtt.stations"); len(names) > 0 {
		return names
	}
	return mqtt.DefaultStationNames
}
