package observability

import (
	"context"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Manager owns the tracer provider and the metrics recorder for one
// gateway process.
type Manager struct {
	config         Config
	tracerProvider trace.TracerProvider
	metrics        Metrics
	mu             sync.RWMutex
}

func NewManager(cfg Config) *Manager {
	return &Manager{
		config: cfg,
	}
}

// Initialize builds the tracer provider and the metrics instruments and
// installs the metrics recorder as the process-wide default.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tp, err := InitGlobalTracer(ctx, m.config.Tracing)
	if err != nil {
		return err
	}
	m.tracerProvider = tp

	metrics, err := InitMetrics(ctx, m.config.Metrics)
	if err != nil {
		return err
	}
	m.metrics = metrics

	SetGlobalMetrics(m.metrics)

	return nil
}

// Tracer returns a named tracer from this manager's provider.
func (m *Manager) Tracer(name string) trace.Tracer {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.tracerProvider == nil {
		return noop.NewTracerProvider().Tracer(name)
	}
	return m.tracerProvider.Tracer(name)
}

// Metrics returns the active metrics recorder, which may be a no-op.
func (m *Manager) Metrics() Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.metrics == nil {
		return NoopMetrics{}
	}
	return m.metrics
}

// MetricsEnabled reports whether the /metrics endpoint should be mounted.
func (m *Manager) MetricsEnabled() bool {
	return m.config.Metrics.Enabled
}

// MetricsEndpoint returns the configured metrics path.
func (m *Manager) MetricsEndpoint() string {
	if m.config.Metrics.Endpoint == "" {
		return DefaultMetricsPath
	}
	return m.config.Metrics.Endpoint
}

// MetricsHandler returns the Prometheus scrape handler.
func (m *Manager) MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// Shutdown flushes and stops the tracer provider.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if spt, ok := m.tracerProvider.(interface{ Shutdown(context.Context) error }); ok {
		return spt.Shutdown(ctx)
	}
	return nil
}
