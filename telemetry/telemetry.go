package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

const (
	defaultServiceName    = "dungen"
	defaultServiceVersion = "1.0.0"
	defaultTimeout        = 5 * time.Second
)

// ErrInvalidSampleRatio is returned when the sample ratio is outside [0, 1].
var ErrInvalidSampleRatio = errors.New("sample ratio must be between 0 and 1")

var tracerProvider *sdktrace.TracerProvider //nolint:gochecknoglobals

// Config holds the OpenTelemetry configuration.
type Config struct {
	ServiceName    string        `json:"serviceName"    yaml:"serviceName"`
	ServiceVersion string        `json:"serviceVersion" yaml:"serviceVersion"`
	Environment    string        `json:"environment"    yaml:"environment"`
	Endpoint       string        `json:"endpoint"       yaml:"endpoint"`
	Enabled        bool          `json:"enabled"        yaml:"enabled"`
	Timeout        time.Duration `json:"timeout"        yaml:"timeout"`
	// SampleRatio is the fraction of traces kept. Every tick of every actor
	// can produce transition spans, so hosts with many actors sample.
	SampleRatio float64 `json:"sampleRatio" yaml:"sampleRatio"`
}

// ApplyDefaults fills unset fields. An empty endpoint is left for the
// exporter, which reads the standard OTEL_EXPORTER_OTLP_* variables.
func (c *Config) ApplyDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = defaultServiceName
	}

	if c.ServiceVersion == "" {
		c.ServiceVersion = defaultServiceVersion
	}

	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}

	if c.SampleRatio == 0 {
		c.SampleRatio = 1
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.SampleRatio < 0 || c.SampleRatio > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidSampleRatio, c.SampleRatio)
	}

	return nil
}

// Initialize sets up OpenTelemetry tracing with the given configuration.
func Initialize(ctx context.Context, config *Config) error {
	if !config.Enabled {
		slog.Info("OpenTelemetry tracing is disabled")

		return nil
	}

	err := config.Validate()
	if err != nil {
		return err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
			semconv.ServiceVersionKey.String(config.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	exporterOpts := []otlptracehttp.Option{otlptracehttp.WithTimeout(config.Timeout)}
	if config.Endpoint != "" {
		exporterOpts = append(exporterOpts, otlptracehttp.WithEndpointURL(config.Endpoint))
	}

	exporter, err := otlptracehttp.New(ctx, exporterOpts...)
	if err != nil {
		return fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(config.SampleRatio))),
	)

	otel.SetTracerProvider(tracerProvider)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	slog.Info("OpenTelemetry tracing initialized",
		"service", config.ServiceName,
		"version", config.ServiceVersion,
		"environment", config.Environment,
		"endpoint", config.Endpoint,
		"sample_ratio", config.SampleRatio,
	)

	return nil
}

// Shutdown flushes pending spans and shuts down the tracer provider.
func Shutdown(ctx context.Context) error {
	if tracerProvider == nil {
		return nil
	}

	slog.Info("Shutting down OpenTelemetry tracer provider")

	return tracerProvider.Shutdown(ctx)
}
