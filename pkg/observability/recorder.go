package observability

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	globalMetrics Metrics
	metricsMu     sync.RWMutex
)

// Metrics is the recording surface exposed to the rest of the gateway.
type Metrics interface {
	RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration)
	RecordRateLimitDecision(ctx context.Context, window string, allowed bool)
	RecordStoreFallback(ctx context.Context)
}

type PrometheusMetrics struct {
	requestsTotal   metric.Int64Counter
	requestDuration metric.Float64Histogram

	decisionsTotal      metric.Int64Counter
	storeFallbacksTotal metric.Int64Counter
}

func NewPrometheusMetrics(
	requestsTotal metric.Int64Counter,
	requestDuration metric.Float64Histogram,
	decisionsTotal metric.Int64Counter,
	storeFallbacksTotal metric.Int64Counter,
) *PrometheusMetrics {
	return &PrometheusMetrics{
		requestsTotal:       requestsTotal,
		requestDuration:     requestDuration,
		decisionsTotal:      decisionsTotal,
		storeFallbacksTotal: storeFallbacksTotal,
	}
}

func (m *PrometheusMetrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.requestsTotal == nil || m.requestDuration == nil {
		return
	}

	m.requestsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.String("status", strconv.Itoa(statusCode)),
	))
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("path", path),
	))
}

func (m *PrometheusMetrics) RecordRateLimitDecision(ctx context.Context, window string, allowed bool) {
	if m == nil || m.decisionsTotal == nil {
		return
	}

	outcome := "allowed"
	if !allowed {
		outcome = "rejected"
	}

	m.decisionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("window", window),
		attribute.String("outcome", outcome),
	))
}

func (m *PrometheusMetrics) RecordStoreFallback(ctx context.Context) {
	if m == nil || m.storeFallbacksTotal == nil {
		return
	}

	m.storeFallbacksTotal.Add(ctx, 1)
}

func SetGlobalMetrics(m Metrics) {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	globalMetrics = m
}

func GetGlobalMetrics() Metrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return globalMetrics
}
