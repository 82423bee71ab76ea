// Package telemetry sets up OpenTelemetry tracing for the replay pipeline.
//
// Tracing is off unless an OTLP endpoint is configured; spans are then
// recorded against the global no-op provider and cost nothing.
package telemetry

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/pithecene-io/replaycast/log"
)

// TracerName is the instrumentation scope of every replaycast span.
const TracerName = "github.com/pithecene-io/replaycast"

// EndpointEnv is the environment variable that enables tracing.
const EndpointEnv = "OTEL_EXPORTER_OTLP_ENDPOINT"

// exporterTimeout bounds exporter setup and shutdown.
const exporterTimeout = 5 * time.Second

// Config configures tracing.
type Config struct {
	// ServiceName is reported as service.name.
	ServiceName string
	// ServiceVersion is reported as service.version.
	ServiceVersion string
	// Endpoint is the OTLP/gRPC collector address. Empty falls back to
	// OTEL_EXPORTER_OTLP_ENDPOINT; if both are empty tracing stays disabled.
	Endpoint string
	// Insecure disables TLS to the collector.
	Insecure bool
}

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(ctx context.Context) error

// InitTracing installs an OTLP/gRPC tracer provider as the global provider.
// The returned shutdown function is always non-nil.
func InitTracing(ctx context.Context, cfg Config, logger *log.Logger) (ShutdownFunc, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = os.Getenv(EndpointEnv)
	}
	if endpoint == "" {
		logger.Debug("tracing disabled", map[string]any{"reason": EndpointEnv + " not set"})
		return func(context.Context) error { return nil }, nil
	}

	setupCtx, cancel := context.WithTimeout(ctx, exporterTimeout)
	defer cancel()

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(setupCtx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(setupCtx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	logger.Info("tracing initialized", map[string]any{
		"service":  cfg.ServiceName,
		"endpoint": endpoint,
	})

	return func(ctx context.Context) error {
		shutdownCtx, cancel := context.WithTimeout(ctx, exporterTimeout)
		defer cancel()
		return tp.Shutdown(shutdownCtx)
	}, nil
}

// StartSpan starts a span on the replaycast tracer.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordError records err on span and marks it failed. Nil errors are ignored.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
