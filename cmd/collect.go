package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rjames86/grafana-collectors/internal/august"
	"github.com/rjames86/grafana-collectors/internal/purpleair"
	"github.com/rjames86/grafana-collectors/internal/runner"
	"github.com/rjames86/grafana-collectors/internal/solaredge"
	"github.com/rjames86/grafana-collectors/pkg/ingest"
	"github.com/rjames86/grafana-collectors/pkg/logger"
	"github.com/rjames86/grafana-collectors/pkg/metrics"
	"github.com/rjames86/grafana-collectors/pkg/timezone"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Run one polling cycle",
	Long: `Run one polling cycle that:
- Fetches energy and power details from SolarEdge
- Fetches lock batteries, activity logs and access codes from August
- Fetches an air-quality snapshot from PurpleAir
- Ships each source's batch to the ingestion API

Intended to run from cron; a partial failure still exits zero.`,
	RunE: runCollect,
}

func init() {
	rootCmd.AddCommand(collectCmd)

	// Collect-specific flags
	collectCmd.Flags().String("sources", "solaredge,august,purpleair", "comma-separated sources to poll")
	collectCmd.Flags().String("begin", "", "query window start as local civil time (default: 14 days ago)")
	collectCmd.Flags().String("end", "", "query window end as local civil time (default: now)")
	collectCmd.Flags().String("granularity", "QUARTER_OF_AN_HOUR", "energy series granularity")
	collectCmd.Flags().Bool("dry-run", false, "generate sample data instead of calling the SolarEdge API")
	collectCmd.Flags().Bool("verbose", false, "ask the ingestion API to echo every stored point")
	collectCmd.Flags().String("ingest-url", "http://localhost:5000/influx", "ingestion API write prefix")

	// Bind flags to viper
	_ = viper.BindPFlag("collect.sources", collectCmd.Flags().Lookup("sources"))
	_ = viper.BindPFlag("collect.begin", collectCmd.Flags().Lookup("begin"))
	_ = viper.BindPFlag("collect.end", collectCmd.Flags().Lookup("end"))
	_ = viper.BindPFlag("collect.granularity", collectCmd.Flags().Lookup("granularity"))
	_ = viper.BindPFlag("collect.dry_run", collectCmd.Flags().Lookup("dry-run"))
	_ = viper.BindPFlag("collect.verbose", collectCmd.Flags().Lookup("verbose"))
	_ = viper.BindPFlag("ingest.url", collectCmd.Flags().Lookup("ingest-url"))

	viper.SetDefault("solaredge.timezone", "America/Denver")
	viper.SetDefault("august.token_cache", "auth_cache")
	viper.SetDefault("purpleair.location", purpleair.DefaultLocation)
}

func runCollect(_ *cobra.Command, _ []string) error {
	log := GetLogger()
	log.Info("starting collection cycle")

	dispatcher, err := ingest.NewClient(&ingest.ClientConfig{
		Logger:  log,
		BaseURL: viper.GetString("ingest.url"),
	})
	if err != nil {
		return err
	}

	collectorMetrics := metrics.NewCollectorMetrics("grafana_collectors")

	run, err := runner.New(&runner.Config{
		Logger:     log,
		Dispatcher: dispatcher,
		Verbose:    viper.GetBool("collect.verbose"),
		Metrics:    collectorMetrics,
	})
	if err != nil {
		return err
	}

	sources, err := buildSources(log)
	if err != nil {
		return err
	}

	results, err := run.Run(context.Background(), sources)
	for _, res := range results {
		if res.Err != nil {
			fmt.Printf("%s: error: %v\n", res.Source, res.Err)
			continue
		}
		fmt.Printf("%s: %d points\n", res.Source, res.Points)
	}
	return err
}

// buildSources assembles the requested sources in the order they are named.
func buildSources(log *slog.Logger) ([]runner.Source, error) {
	var sources []runner.Source

	for _, name := range strings.Split(viper.GetString("collect.sources"), ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		switch name {
		case "solaredge":
			src, err := buildSolarEdge(log)
			if err != nil {
				return nil, fmt.Errorf("solaredge: %w", err)
			}
			sources = append(sources, src)
		case "august":
			src, err := buildAugust(log)
			if err != nil {
				return nil, fmt.Errorf("august: %w", err)
			}
			sources = append(sources, src)
		case "purpleair":
			src, err := buildPurpleAir(log)
			if err != nil {
				return nil, fmt.Errorf("purpleair: %w", err)
			}
			sources = append(sources, src)
		default:
			return nil, fmt.Errorf("unknown source %q", name)
		}
	}

	return sources, nil
}

func buildSolarEdge(log *slog.Logger) (runner.Source, error) {
	conv, err := timezone.NewConverter(viper.GetString("solaredge.timezone"))
	if err != nil {
		return nil, err
	}

	begin, end, err := solaredge.QueryWindow(conv,
		viper.GetString("collect.begin"),
		viper.GetString("collect.end"),
		time.Now(),
	)
	if err != nil {
		return nil, err
	}

	dryRun := viper.GetBool("collect.dry_run")

	var client *solaredge.Client
	if !dryRun {
		client, err = solaredge.NewClient(&solaredge.ClientConfig{
			Logger:    logger.ForSource(log, "solaredge"),
			APIKey:    viper.GetString("solaredge.api_key"),
			SiteID:    viper.GetInt("solaredge.site_id"),
			Converter: conv,
		})
		if err != nil {
			return nil, err
		}
	}

	adapter, err := solaredge.NewAdapter(logger.ForSource(log, "solaredge"), conv)
	if err != nil {
		return nil, err
	}

	return solaredge.NewSource(&solaredge.SourceConfig{
		Client:      client,
		Adapter:     adapter,
		Converter:   conv,
		Begin:       begin,
		End:         end,
		Granularity: viper.GetString("collect.granularity"),
		DryRun:      dryRun,
	})
}

func buildAugust(log *slog.Logger) (runner.Source, error) {
	token, err := august.LoadAccessToken(viper.GetString("august.token_cache"))
	if err != nil {
		return nil, err
	}

	client, err := august.NewClient(&august.ClientConfig{
		Logger:      logger.ForSource(log, "august"),
		AccessToken: token,
	})
	if err != nil {
		return nil, err
	}

	adapter, err := august.NewAdapter(logger.ForSource(log, "august"))
	if err != nil {
		return nil, err
	}

	return august.NewSource(&august.SourceConfig{Client: client, Adapter: adapter})
}

func buildPurpleAir(log *slog.Logger) (runner.Source, error) {
	client, err := purpleair.NewClient(&purpleair.ClientConfig{
		Logger:   logger.ForSource(log, "purpleair"),
		APIKey:   viper.GetString("purpleair.api_key"),
		SensorID: viper.GetInt("purpleair.sensor_id"),
	})
	if err != nil {
		return nil, err
	}

	adapter, err := purpleair.NewAdapter(logger.ForSource(log, "purpleair"), viper.GetString("purpleair.location"))
	if err != nil {
		return nil, err
	}

	return purpleair.NewSource(&purpleair.SourceConfig{Client: client, Adapter: adapter})
}
