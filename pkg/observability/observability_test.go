package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestMetricsRecording_NilInstrumentsAreSafe(t *testing.T) {
	ctx := context.Background()

	// Instruments are nil until InitMetrics runs with metrics enabled.
	metrics := &PrometheusMetrics{}

	metrics.RecordHTTPRequest(ctx, "GET", "/v1/things", 200, 12*time.Millisecond)
	metrics.RecordRateLimitDecision(ctx, "minute", true)
	metrics.RecordRateLimitDecision(ctx, "hour", false)
	metrics.RecordStoreFallback(ctx)

	t.Log("✅ Metrics recorded successfully (nil-safe)")
}

func TestMetricsRecording_NilReceiver(t *testing.T) {
	ctx := context.Background()

	var metrics *PrometheusMetrics
	metrics.RecordHTTPRequest(ctx, "GET", "/health", 200, time.Millisecond)
	metrics.RecordRateLimitDecision(ctx, "minute", true)
	metrics.RecordStoreFallback(ctx)

	t.Log("✅ Nil receiver handled correctly")
}

func TestNoopMetrics(t *testing.T) {
	ctx := context.Background()

	noopMetrics := NoopMetrics{}
	noopMetrics.RecordHTTPRequest(ctx, "POST", "/v1/things", 429, 5*time.Millisecond)
	noopMetrics.RecordRateLimitDecision(ctx, "hour", false)
	noopMetrics.RecordStoreFallback(ctx)

	t.Log("✅ Noop metrics handled correctly")
}

func TestGlobalMetrics(t *testing.T) {
	ctx := context.Background()

	_ = GetGlobalMetrics()

	noopMetrics := NoopMetrics{}
	SetGlobalMetrics(noopMetrics)

	retrieved := GetGlobalMetrics()
	if retrieved == nil {
		t.Error("Expected non-nil metrics after SetGlobalMetrics")
	}

	retrieved.RecordRateLimitDecision(ctx, "minute", true)

	t.Log("✅ Global metrics management works correctly")
}

func TestManager_UninitializedFallsBackToNoop(t *testing.T) {
	m := NewManager(Config{})

	tracer := m.Tracer("test")
	_, span := tracer.Start(context.Background(), "test_span")
	span.End()

	if m.Metrics() == nil {
		t.Error("Expected noop metrics from uninitialized manager")
	}
	if m.MetricsEnabled() {
		t.Error("Expected metrics disabled by default")
	}
	if m.MetricsEndpoint() != DefaultMetricsPath {
		t.Errorf("Expected default metrics path, got %s", m.MetricsEndpoint())
	}
	if err := m.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown of uninitialized manager failed: %v", err)
	}
}

func TestManager_InitializeWithEverythingDisabled(t *testing.T) {
	cfg := Config{}
	cfg.SetDefaults()

	m := NewManager(cfg)
	if err := m.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer m.Shutdown(context.Background())

	if m.Metrics() == nil {
		t.Error("Expected metrics recorder after Initialize")
	}
	if GetGlobalMetrics() == nil {
		t.Error("Expected Initialize to install the global recorder")
	}

	tracer := m.Tracer("test")
	_, span := tracer.Start(context.Background(), "test_span")
	span.End()

	t.Log("✅ Disabled observability initializes to no-ops")
}

func TestNoopManager(t *testing.T) {
	m := NoopManager()

	if m.MetricsEnabled() {
		t.Error("NoopManager should report metrics disabled")
	}
	m.Metrics().RecordStoreFallback(context.Background())

	t.Log("✅ Noop manager works correctly")
}

func TestConfig_SetDefaults(t *testing.T) {
	cfg := Config{}
	cfg.SetDefaults()

	if cfg.Tracing.ServiceName != DefaultServiceName {
		t.Errorf("expected service name %q, got %q", DefaultServiceName, cfg.Tracing.ServiceName)
	}
	if cfg.Tracing.SamplingRate != DefaultSamplingRate {
		t.Errorf("expected sampling rate %v, got %v", DefaultSamplingRate, cfg.Tracing.SamplingRate)
	}
	if cfg.Tracing.Exporter != "otlp" {
		t.Errorf("expected otlp exporter, got %q", cfg.Tracing.Exporter)
	}
	if cfg.Tracing.Endpoint != DefaultOTLPEndpoint {
		t.Errorf("expected endpoint %q, got %q", DefaultOTLPEndpoint, cfg.Tracing.Endpoint)
	}
	if !cfg.Tracing.IsInsecure() {
		t.Error("expected insecure default for local development")
	}
	if cfg.Tracing.Timeout != 10*time.Second {
		t.Errorf("expected 10s timeout, got %s", cfg.Tracing.Timeout)
	}
	if cfg.Metrics.Endpoint != DefaultMetricsPath {
		t.Errorf("expected metrics path %q, got %q", DefaultMetricsPath, cfg.Metrics.Endpoint)
	}
	if cfg.Metrics.Namespace != DefaultServiceName {
		t.Errorf("expected namespace %q, got %q", DefaultServiceName, cfg.Metrics.Namespace)
	}
}

func TestTracingConfig_Validate(t *testing.T) {
	disabled := TracingConfig{}
	if err := disabled.Validate(); err != nil {
		t.Errorf("disabled tracing should validate: %v", err)
	}

	enabled := TracingConfig{Enabled: true}
	enabled.SetDefaults()
	if err := enabled.Validate(); err != nil {
		t.Errorf("enabled tracing with defaults should validate: %v", err)
	}

	badRate := TracingConfig{Enabled: true, Endpoint: "localhost:4317", Exporter: "otlp", SamplingRate: 1.5}
	if err := badRate.Validate(); err == nil {
		t.Error("expected error for sampling rate above 1")
	}

	badExporter := TracingConfig{Enabled: true, Endpoint: "localhost:4317", Exporter: "jaeger", SamplingRate: 0.5}
	if err := badExporter.Validate(); err == nil {
		t.Error("expected error for unknown exporter")
	}
}

func TestInitGlobalTracer_Disabled(t *testing.T) {
	tp, err := InitGlobalTracer(context.Background(), TracingConfig{})
	if err != nil {
		t.Fatalf("disabled tracing should not error: %v", err)
	}
	if tp == nil {
		t.Fatal("expected noop provider")
	}

	_, span := tp.Tracer("test").Start(context.Background(), "test_span")
	span.End()
}

func TestInitGlobalTracer_StdoutExporter(t *testing.T) {
	cfg := TracingConfig{Enabled: true, Exporter: "stdout"}
	cfg.SetDefaults()

	tp, err := InitGlobalTracer(context.Background(), cfg)
	if err != nil {
		t.Fatalf("stdout exporter should initialize: %v", err)
	}

	if spt, ok := tp.(interface{ Shutdown(context.Context) error }); ok {
		if err := spt.Shutdown(context.Background()); err != nil {
			t.Errorf("provider shutdown failed: %v", err)
		}
	}
}

func TestInitGlobalTracer_UnknownExporter(t *testing.T) {
	cfg := TracingConfig{Enabled: true, Exporter: "jaeger", Endpoint: "localhost:4317"}
	if _, err := InitGlobalTracer(context.Background(), cfg); err == nil {
		t.Fatal("expected error for unknown exporter")
	}
}

// capturingMetrics records the last HTTP observation for assertions.
type capturingMetrics struct {
	NoopMetrics
	method   string
	path     string
	status   int
	duration time.Duration
}

func (m *capturingMetrics) RecordHTTPRequest(_ context.Context, method, path string, statusCode int, duration time.Duration) {
	m.method = method
	m.path = path
	m.status = statusCode
	m.duration = duration
}

func TestHTTPMiddleware_RecordsStatusAndPath(t *testing.T) {
	metrics := &capturingMetrics{}
	tracer := NoopManager().Tracer("test")

	handler := HTTPMiddleware(tracer, metrics)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/v1/things", nil))

	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", rec.Code)
	}
	if metrics.method != "POST" || metrics.path != "/v1/things" {
		t.Errorf("expected POST /v1/things recorded, got %s %s", metrics.method, metrics.path)
	}
	if metrics.status != http.StatusTooManyRequests {
		t.Errorf("expected status 429 recorded, got %d", metrics.status)
	}
}

func TestHTTPMiddleware_ImplicitOKStatus(t *testing.T) {
	metrics := &capturingMetrics{}

	handler := HTTPMiddleware(nil, metrics)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	if metrics.status != http.StatusOK {
		t.Errorf("expected implicit 200 recorded, got %d", metrics.status)
	}
}

func TestResponseWriter_FirstStatusWins(t *testing.T) {
	rec := httptest.NewRecorder()
	wrapped := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}

	wrapped.WriteHeader(http.StatusBadGateway)
	wrapped.WriteHeader(http.StatusOK)

	if wrapped.statusCode != http.StatusBadGateway {
		t.Errorf("expected first status to stick, got %d", wrapped.statusCode)
	}
	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected recorder to see 502, got %d", rec.Code)
	}
}

func BenchmarkMetricsRecording(b *testing.B) {
	ctx := context.Background()
	metrics := &PrometheusMetrics{}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		metrics.RecordRateLimitDecision(ctx, "minute", true)
	}
}
