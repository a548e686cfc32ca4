package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	ProtocolGrpc = "grpc"
	ProtocolHttp = "http"

	setupTimeout  = time.Second * 15
	dialTimeout   = time.Second * 3
	flushInterval = time.Second * 5
)

// Exporter is one OTLP collector endpoint. An empty Endpoint disables the signal.
type Exporter struct {
	// Protocol is either "grpc" or "http", it defaults to "http".
	Protocol string            `json:"protocol" validate:"omitempty,oneof=grpc http"`
	Endpoint string            `json:"endpoint" validate:"omitempty,url"`
	Headers  map[string]string `json:"headers"`
}

func (e Exporter) enabled() bool {
	return e.Endpoint != ""
}

func (e Exporter) grpc() bool {
	return e.Protocol == ProtocolGrpc
}

func (e Exporter) logConfiguring(signal string) {
	protocol := ProtocolHttp
	if e.grpc() {
		protocol = ProtocolGrpc
	}
	slog.Info(
		"configuring otlp exporter",
		"signal", signal,
		"protocol", protocol,
		"endpoint", e.Endpoint,
		"headers", len(e.Headers) > 0,
	)
}

// Config selects where traces and metrics of a run are shipped to.
type Config struct {
	Traces  Exporter `json:"traces"`
	Metrics Exporter `json:"metrics"`
}

// Enabled is false when neither signal has an endpoint, the global otel
// providers then stay no-ops.
func (c Config) Enabled() bool {
	return c.Traces.enabled() || c.Metrics.enabled()
}

// Providers holds whatever Setup installed globally, either field may be nil.
type Providers struct {
	Tracer *sdktrace.TracerProvider
	Meter  *sdkmetric.MeterProvider
}

// Shutdown flushes pending spans and metric points.
func (p Providers) Shutdown(ctx context.Context) error {
	var errs []error
	if p.Tracer != nil {
		errs = append(errs, p.Tracer.Shutdown(ctx))
	}
	if p.Meter != nil {
		errs = append(errs, p.Meter.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// Setup installs global trace and metric providers for the configured signals.
func Setup(ctx context.Context, serviceName string, config Config) (Providers, error) {
	ctx, cancel := context.WithTimeout(ctx, setupTimeout)
	defer cancel()

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return Providers{}, fmt.Errorf("otel resource: %w", err)
	}

	var providers Providers
	if config.Traces.enabled() {
		exporter, err := newSpanExporter(ctx, config.Traces)
		if err != nil {
			return Providers{}, fmt.Errorf("trace exporter: %w", err)
		}
		providers.Tracer = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(providers.Tracer)
	}

	if config.Metrics.enabled() {
		exporter, err := newMetricExporter(ctx, config.Metrics)
		if err != nil {
			return providers, errors.Join(fmt.Errorf("metric exporter: %w", err), providers.Shutdown(ctx))
		}
		providers.Meter = sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(flushInterval))),
			sdkmetric.WithResource(res),
		)
		otel.SetMeterProvider(providers.Meter)
	}

	return providers, nil
}

func newSpanExporter(ctx context.Context, e Exporter) (sdktrace.SpanExporter, error) {
	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	e.logConfiguring("traces")
	if e.grpc() {
		return otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpointURL(e.Endpoint),
			otlptracegrpc.WithHeaders(e.Headers),
		)
	}
	return otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(e.Endpoint),
		otlptracehttp.WithHeaders(e.Headers),
	)
}

func newMetricExporter(ctx context.Context, e Exporter) (sdkmetric.Exporter, error) {
	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	e.logConfiguring("metrics")
	if e.grpc() {
		return otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpointURL(e.Endpoint),
			otlpmetricgrpc.WithHeaders(e.Headers),
		)
	}
	return otlpmetrichttp.New(ctx,
		otlpmetrichttp.WithEndpointURL(e.Endpoint),
		otlpmetrichttp.WithHeaders(e.Headers),
	)
}
