package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "accessdesk"

// StartToggleSpan starts a span covering one optimistic access toggle.
func StartToggleSpan(ctx context.Context, employeeID, system string, newStatus bool) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "toggle",
		trace.WithAttributes(
			attribute.String("employee.id", employeeID),
			attribute.String("access.system", system),
			attribute.Bool("access.new_status", newStatus),
		),
	)
}

// StartLoadSpan starts a span for a directory load.
func StartLoadSpan(ctx context.Context, source string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "directory.load",
		trace.WithAttributes(
			attribute.String("directory.source", source),
		),
	)
}

// StartAuditSpan starts a span for an audit slot write.
func StartAuditSpan(ctx context.Context, key string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "audit.append",
		trace.WithAttributes(
			attribute.String("audit.key", key),
		),
	)
}
