// Package obs wires the process's OpenTelemetry tracing and metrics,
// combining the teacher's internal/telemetry (tracing bring-up) and
// internal/rag/obs (metrics adapter) into the single cross-cutting package
// SPEC_FULL.md's package table names.
package obs

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"corectx/internal/config"
)

// Shutdown flushes and stops whatever providers Setup installed.
type Shutdown func(context.Context) error

// Setup builds the tracer/meter pair the rest of the process instruments
// against. When cfg is disabled or carries no endpoint it returns no-op
// implementations and a no-op shutdown, mirroring the teacher's Setup early
// return — every caller gets a non-nil Tracer/Meter whether or not an
// OTLP collector is actually configured.
func Setup(ctx context.Context, cfg config.TelemetryConfig) (trace.Tracer, metric.Meter, Shutdown, error) {
	name := cfg.ServiceName
	if name == "" {
		name = "corectx"
	}

	if !cfg.Enabled || cfg.Endpoint == "" {
		tracer := nooptrace.NewTracerProvider().Tracer(name)
		meter := noopmetric.NewMeterProvider().Meter(name)
		return tracer, meter, func(context.Context) error { return nil }, nil
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(name)))
	if err != nil {
		return nil, nil, nil, err
	}

	traceOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		traceOpts = append(traceOpts, otlptracehttp.WithInsecure())
	}
	traceExporter, err := otlptracehttp.New(ctx, traceOpts...)
	if err != nil {
		return nil, nil, nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	metricOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		metricOpts = append(metricOpts, otlpmetrichttp.WithInsecure())
	}
	metricExporter, err := otlpmetrichttp.New(ctx, metricOpts...)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, nil, nil, err
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	shutdown := func(ctx context.Context) error {
		tErr := tp.Shutdown(ctx)
		mErr := mp.Shutdown(ctx)
		if tErr != nil {
			return tErr
		}
		return mErr
	}
	return tp.Tracer(name), mp.Meter(name), shutdown, nil
}
