package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "sparkier"

// StartIntakeSpan starts a span for resolving a client's intake of a spark.
func StartIntakeSpan(ctx context.Context, slug, clientID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "intake.resolve",
		trace.WithAttributes(
			attribute.String("spark.slug", slug),
			attribute.String("client.id", clientID),
		),
	)
}

// StartRequestSpan starts a span for a request status transition.
func StartRequestSpan(ctx context.Context, requestID, status string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "request.transition",
		trace.WithAttributes(
			attribute.String("request.id", requestID),
			attribute.String("request.status", status),
		),
	)
}

// StartDeliverySpan starts a span for notification delivery.
func StartDeliverySpan(ctx context.Context, provider, source string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "notification.delivery",
		trace.WithAttributes(
			attribute.String("notifier.provider", provider),
			attribute.String("notification.source", source),
		),
	)
}
