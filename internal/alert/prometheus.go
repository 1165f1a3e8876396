package alert

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"iot-shield/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// PrometheusExporter exposes engine metrics over an HTTP endpoint
type PrometheusExporter struct {
	server  *http.Server
	metrics *metrics.Metrics
	logger  *logrus.Logger
	port    string
}

// Start runs the exporter until the context is cancelled
func (e *PrometheusExporter) Start(ctx context.Context) error {
	e.logger.Infof("Starting Prometheus exporter on port %s", e.port)
	e.logger.Infof("Metrics available at: http://localhost:%s/metrics", e.port)

	go func() {
		if err := e.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			e.logger.Errorf("Failed to start Prometheus exporter: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	e.logger.Info("Shutting down Prometheus exporter...")
	return e.server.Shutdown(shutdownCtx)
}

// Stop shuts the exporter down
func (e *PrometheusExporter) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return e.server.Shutdown(ctx)
}

// GetMetrics returns the exporter's metric instruments
func (e *PrometheusExporter) GetMetrics() *metrics.Metrics {
	return e.metrics
}

// CreateCustomRegistry builds a registry with the standard process and Go
// collectors
func CreateCustomRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()

	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	return registry
}

// StartPrometheusExporterWithCustomRegistry wires the engine metrics into a
// custom registry and returns an exporter ready to Start
func StartPrometheusExporterWithCustomRegistry(port string, logger *logrus.Logger) (*PrometheusExporter, error) {
	m := metrics.New()
	registry := CreateCustomRegistry()

	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register custom metrics: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	server := &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}

	return &PrometheusExporter{
		server:  server,
		metrics: m,
		logger:  logger,
		port:    port,
	}, nil
}
