package ratelimit

import (
	"context"

	"github.com/kadirpekel/cerberus/pkg/observability"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

func startEvaluateSpan(ctx context.Context, identity, endpoint string) (context.Context, trace.Span) {
	tracer := observability.GetTracer("cerberus.ratelimit")

	return tracer.Start(ctx, observability.SpanRateLimitCheck,
		trace.WithAttributes(
			attribute.String(observability.AttrClientIdentity, identity),
			attribute.String(observability.AttrEndpoint, endpoint),
		),
	)
}

func finishEvaluateSpan(span trace.Span, decision Decision) {
	span.SetAttributes(
		attribute.Bool(observability.AttrAllowed, decision.Allowed),
		attribute.String(observability.AttrWindow, string(decision.Window)),
		attribute.Int64(observability.AttrRemaining, decision.Remaining),
	)
}

func recordDecision(ctx context.Context, decision Decision) {
	metrics := observability.GetGlobalMetrics()
	if metrics == nil {
		return
	}

	metrics.RecordRateLimitDecision(ctx, string(decision.Window), decision.Allowed)
}

func recordStoreFallback(ctx context.Context) {
	metrics := observability.GetGlobalMetrics()
	if metrics == nil {
		return
	}

	metrics.RecordStoreFallback(ctx)
}
