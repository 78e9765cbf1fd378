// Package telemetry configures OpenTelemetry tracing and metrics.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gitlab.com/yelinaung/tripfund-bot/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ServiceName identifies this process in exported telemetry.
const ServiceName = "tripfund-bot"

const metricInterval = 30 * time.Second

// ShutdownFunc flushes and stops the providers installed by Setup.
type ShutdownFunc func(context.Context) error

// ErrUnknownExporter is returned for an exporter name Setup does not know.
var ErrUnknownExporter = errors.New("unknown telemetry exporter")

// Setup installs global tracer and meter providers for exporter (one of the config.Exporter* values).
// With config.ExporterNone the global no-op providers stay in place.
func Setup(ctx context.Context, exporter, version string) (ShutdownFunc, error) {
	if exporter == "" || exporter == config.ExporterNone {
		return func(context.Context) error { return nil }, nil
	}

	spanExp, metricExp, err := newExporters(ctx, exporter)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			attribute.String("service.name", ServiceName),
			attribute.String("service.version", version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build telemetry resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(spanExp),
		sdktrace.WithResource(res),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp, sdkmetric.WithInterval(metricInterval))),
		sdkmetric.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}

func newExporters(ctx context.Context, exporter string) (sdktrace.SpanExporter, sdkmetric.Exporter, error) {
	var (
		spanExp   sdktrace.SpanExporter
		metricExp sdkmetric.Exporter
		err       error
	)
	switch exporter {
	case config.ExporterStdout:
		if spanExp, err = stdouttrace.New(stdouttrace.WithPrettyPrint()); err == nil {
			metricExp, err = stdoutmetric.New()
		}
	case config.ExporterOTLPHTTP:
		if spanExp, err = otlptracehttp.New(ctx); err == nil {
			metricExp, err = otlpmetrichttp.New(ctx)
		}
	case config.ExporterOTLPGRPC:
		if spanExp, err = otlptracegrpc.New(ctx); err == nil {
			metricExp, err = otlpmetricgrpc.New(ctx)
		}
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownExporter, exporter)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s exporter: %w", exporter, err)
	}
	return spanExp, metricExp, nil
}
