package cmd

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/sentinelgate/execgate/internal/config"
	"github.com/sentinelgate/execgate/internal/telemetry"
)

var metricsAddr string

var serveMetricsCmd = &cobra.Command{
	Use:   "serve-metrics",
	Short: "Expose the optional Prometheus debug surface",
	Long: `serve-metrics starts a standalone HTTP listener exposing the gate's
Prometheus metrics. It is never required for the gate to function — every
other command works identically whether or not this is running.`,
	RunE: runServeMetrics,
}

func init() {
	serveMetricsCmd.Flags().StringVar(&metricsAddr, "addr", ":9464", "address to listen on")
	rootCmd.AddCommand(serveMetricsCmd)
}

func runServeMetrics(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cfg.MetricsEnabled {
		return fmt.Errorf("metrics_enabled is false in config; refusing to start the debug surface")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	telemetry.NewMetrics(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	fmt.Printf("serving metrics on %s/metrics\n", metricsAddr)
	return http.ListenAndServe(metricsAddr, mux)
}
