package tracing

import (
	"context"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/trezcool/sanaa/core"
)

// Setup registers an OTLP/HTTP tracer provider for the service.
//
// Tracing is opt-in: without an endpoint, or when disabled, no provider is registered
// and the returned shutdown func does nothing. The returned shutdown func flushes pending spans.
func Setup(ctx context.Context, conf *core.Config, serviceName string) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }

	// propagate incoming trace contexts even when not exporting
	otel.SetTextMapPropagator(propagation.TraceContext{})

	if !conf.Telemetry.Enabled || conf.Telemetry.Endpoint == "" {
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(conf.Telemetry.Endpoint))
	if err != nil {
		return noop, errors.Wrap(err, "creating OTLP exporter")
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(conf.Build),
			semconv.DeploymentEnvironment(conf.Env),
		),
	)
	if err != nil {
		return noop, errors.Wrap(err, "creating OTEL resource")
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}
