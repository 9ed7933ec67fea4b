package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// InitMetrics builds the gateway's instruments on an OTel meter backed by
// the Prometheus exporter. The exporter registers with the default
// Prometheus registry, so promhttp serves everything recorded here.
func InitMetrics(ctx context.Context, cfg MetricsConfig) (*PrometheusMetrics, error) {
	if !cfg.Enabled {
		return &PrometheusMetrics{}, nil
	}

	promExporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(promExporter),
	)

	meter := meterProvider.Meter(cfg.Namespace)

	requestsTotal, err := meter.Int64Counter(
		fmt.Sprintf("%s_requests_total", cfg.Namespace),
		metric.WithDescription("Total HTTP requests handled by the gateway"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create requests counter: %w", err)
	}

	requestDuration, err := meter.Float64Histogram(
		fmt.Sprintf("%s_request_duration_seconds", cfg.Namespace),
		metric.WithDescription("HTTP request duration in seconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request duration histogram: %w", err)
	}

	decisionsTotal, err := meter.Int64Counter(
		fmt.Sprintf("%s_ratelimit_decisions_total", cfg.Namespace),
		metric.WithDescription("Rate limit decisions by window and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create decisions counter: %w", err)
	}

	storeFallbacksTotal, err := meter.Int64Counter(
		fmt.Sprintf("%s_ratelimit_store_fallbacks_total", cfg.Namespace),
		metric.WithDescription("Rate limit checks served by the in-process fallback store"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create store fallbacks counter: %w", err)
	}

	return NewPrometheusMetrics(
		requestsTotal,
		requestDuration,
		decisionsTotal,
		storeFallbacksTotal,
	), nil
}
