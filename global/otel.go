package global

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otelglobal "go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/multierr"
)

var (
	loggerProvider *log.LoggerProvider

	Tracer trace.Tracer = tracenoop.NewTracerProvider().Tracer("")
	Meter  metric.Meter = metricnoop.NewMeterProvider().Meter("")
)

func serviceName() string {
	if Conf.Otel.ServiceName != "" {
		return Conf.Otel.ServiceName
	}
	return "covalic"
}

// provider sets up one signal and returns its shutdown.
type provider func(ctx context.Context, r *resource.Resource) (func(context.Context) error, error)

func traces(ctx context.Context, r *resource.Resource) (func(context.Context) error, error) {
	exp, err := otlptracegrpc.New(ctx)
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(r),
	)
	otel.SetTracerProvider(tp)
	Tracer = tp.Tracer(serviceName())
	return tp.Shutdown, nil
}

func metrics(ctx context.Context, r *resource.Resource) (func(context.Context) error, error) {
	exp, err := otlpmetricgrpc.New(ctx)
	if err != nil {
		return nil, err
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)),
		sdkmetric.WithResource(r),
	)
	otel.SetMeterProvider(mp)
	Meter = mp.Meter(serviceName())
	return mp.Shutdown, nil
}

func logs(ctx context.Context, r *resource.Resource) (func(context.Context) error, error) {
	exp, err := otlploggrpc.New(ctx)
	if err != nil {
		return nil, err
	}
	loggerProvider = log.NewLoggerProvider(
		log.WithProcessor(log.NewBatchProcessor(exp)),
		log.WithResource(r),
	)
	otelglobal.SetLoggerProvider(loggerProvider)
	return loggerProvider.Shutdown, nil
}

// SetupOTelSDK bootstraps the OpenTelemetry pipeline when tracing is
// turned on, and does nothing otherwise.
// If it does not return an error, make sure to call shutdown for proper cleanup.
func SetupOTelSDK(ctx context.Context) (shutdown func(context.Context) error, err error) {
	var shutdowns []func(context.Context) error
	shutdown = func(ctx context.Context) error {
		var merr error
		for _, fn := range shutdowns {
			merr = multierr.Append(merr, fn(ctx))
		}
		shutdowns = nil
		return merr
	}
	if !Conf.Otel.Tracing {
		return shutdown, nil
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	r, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName()),
			semconv.ServiceVersion(Version),
		),
	)
	if err != nil {
		return nil, err
	}

	for _, setup := range []provider{traces, metrics, logs} {
		fn, nerr := setup(ctx, r)
		if nerr != nil {
			return nil, multierr.Append(nerr, shutdown(ctx))
		}
		shutdowns = append(shutdowns, fn)
	}
	return shutdown, nil
}
