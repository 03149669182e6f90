// Package otel wires up OpenTelemetry tracing, metrics and logs with OTLP
// HTTP exporters. Exporter endpoints come from the standard OTEL_* environment
// variables.
package otel

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
)

func Setup(name, version string) error {
	ctx := context.Background()

	resource := sdkresource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(name),
		semconv.ServiceVersion(version),
	)

	if err := setupTraces(ctx, resource); err != nil {
		return err
	}

	if err := setupMetrics(ctx, resource); err != nil {
		return err
	}

	if err := setupLogs(ctx, resource, name); err != nil {
		return err
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return nil
}

func setupTraces(ctx context.Context, resource *sdkresource.Resource) error {
	exporter, err := otlptracehttp.New(ctx)

	if err != nil {
		return err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(resource),
		sdktrace.WithBatcher(exporter),
	)

	otel.SetTracerProvider(provider)

	return nil
}

func setupMetrics(ctx context.Context, resource *sdkresource.Resource) error {
	exporter, err := otlpmetrichttp.New(ctx)

	if err != nil {
		return err
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(resource),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
	)

	otel.SetMeterProvider(provider)

	return nil
}

func setupLogs(ctx context.Context, resource *sdkresource.Resource, name string) error {
	exporter, err := otlploghttp.New(ctx)

	if err != nil {
		return err
	}

	provider := sdklog.NewLoggerProvider(
		sdklog.WithResource(resource),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)

	global.SetLoggerProvider(provider)

	slog.SetDefault(otelslog.NewLogger(name, otelslog.WithLoggerProvider(provider)))

	return nil
}
