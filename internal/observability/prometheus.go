package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"careercoach/internal/config"
	"careercoach/internal/errors"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
)

// PrometheusConfig holds Prometheus-specific configuration
type PrometheusConfig struct {
	Enabled  bool
	Endpoint string
	Port     string
}

// SetupPrometheusExporter creates the exporter and the mux serving it
func SetupPrometheusExporter(cfg PrometheusConfig) (metric.Reader, *http.ServeMux, error) {
	if !cfg.Enabled {
		return nil, nil, nil
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "/metrics"
	}
	// promhttp serves the default registry the exporter registers with
	mux := http.NewServeMux()
	mux.Handle(endpoint, promhttp.Handler())

	return exporter, mux, nil
}

// StartPrometheusServer serves mux on its own port in the background. The
// returned function shuts the server down.
func StartPrometheusServer(mux *http.ServeMux, port string, logger *errors.Logger) func(context.Context) error {
	if mux == nil {
		return func(context.Context) error { return nil }
	}
	if logger == nil {
		logger = errors.Discard()
	}

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("Starting Prometheus metrics server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.LogError(err, "Prometheus server error")
		}
	}()

	return server.Shutdown
}

// GetPrometheusConfig reads the Prometheus section of cfg
func GetPrometheusConfig(cfg *config.Config) PrometheusConfig {
	if cfg == nil {
		return PrometheusConfig{Enabled: true, Endpoint: "/metrics", Port: "9090"}
	}
	return PrometheusConfig{
		Enabled:  cfg.Observability.Prometheus.Enabled,
		Endpoint: cfg.Observability.Prometheus.Endpoint,
		Port:     cfg.Observability.Prometheus.Port,
	}
}
