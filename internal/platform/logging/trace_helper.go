package logging

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// NewSpanStarter returns two helpers scoped to one tracer name:
//
//   - root(ctx, name) always starts a span — used at true entry points
//     (an inbound RPC call) where there is no parent to inherit.
//   - nested(ctx, name) only starts a span if the context already carries
//     a recording parent, the same "don't create standalone root spans
//     for internal helpers" discipline the rest of this stack uses.
func NewSpanStarter(tracerName string) (
	root func(ctx context.Context, spanName string) (context.Context, trace.Span),
	nested func(ctx context.Context, spanName string) (context.Context, trace.Span),
) {
	tracer := otel.Tracer(tracerName)
	noop := trace.SpanFromContext(context.Background())

	root = func(ctx context.Context, spanName string) (context.Context, trace.Span) {
		if spanName == "" {
			return ctx, noop
		}
		return tracer.Start(ctx, spanName)
	}

	nested = func(ctx context.Context, spanName string) (context.Context, trace.Span) {
		if spanName == "" {
			return ctx, noop
		}
		if !trace.SpanContextFromContext(ctx).IsValid() {
			return ctx, noop
		}
		return tracer.Start(ctx, spanName)
	}

	return root, nested
}
