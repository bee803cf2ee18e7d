// Package observability installs the OpenTelemetry tracer provider used by
// the gateway. Spans come from otelgin on inbound requests, from the services
// and the upstream client, and from the GORM tracing plugin; all of them share
// the provider and the W3C propagator set here. The upstream client injects
// the propagator into every call, so a submission shows up as one trace from
// the form request down to the accounting API.
package observability

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc/credentials"

	"github.com/tbourn/agritrade-gateway/internal/config"
)

// ServiceNamespace groups the gateway with the rest of the agritrade services
// in trace backends.
const ServiceNamespace = "agritrade"

// Sampler names, as read from OTEL_TRACES_SAMPLER.
const (
	SamplerAlwaysOn           = "always_on"
	SamplerAlwaysOff          = "always_off"
	SamplerRatio              = "traceidratio"
	SamplerParentBasedRatio   = "parentbased_traceidratio"
	attrDeploymentEnvironment = "deployment.environment"
)

// Shutdown flushes and stops the tracer provider.
type Shutdown func(context.Context) error

var (
	newExporterFn = func(ctx context.Context, cfg config.OTELConfig) (sdktrace.SpanExporter, error) {
		return otlptrace.New(ctx, otlptracegrpc.NewClient(exporterOptions(cfg)...))
	}
	newProcessorFn       = func(exp sdktrace.SpanExporter) sdktrace.SpanProcessor { return sdktrace.NewBatchSpanProcessor(exp) }
	newServiceResourceFn = serviceResource
)

// NewSampler maps a sampler name to an SDK sampler. An empty name selects
// parentbased_traceidratio, so an upstream caller's sampling decision wins
// and root spans are sampled at ratio.
func NewSampler(name string, ratio float64) (sdktrace.Sampler, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case SamplerAlwaysOn:
		return sdktrace.AlwaysSample(), nil
	case SamplerAlwaysOff:
		return sdktrace.NeverSample(), nil
	case SamplerRatio:
		return sdktrace.TraceIDRatioBased(ratio), nil
	case SamplerParentBasedRatio, "":
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio)), nil
	default:
		return nil, fmt.Errorf("unknown trace sampler %q", name)
	}
}

// exporterOptions builds the OTLP gRPC client options: endpoint, TLS or
// plaintext, gzip compression, plus collector headers and the export timeout
// when set.
func exporterOptions(cfg config.OTELConfig) []otlptracegrpc.Option {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithCompressor("gzip"),
	}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	} else {
		opts = append(opts, otlptracegrpc.WithTLSCredentials(credentials.NewClientTLSFromCert(nil, "")))
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(cfg.Headers))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, otlptracegrpc.WithTimeout(cfg.Timeout))
	}
	return opts
}

func serviceResource(ctx context.Context, cfg config.OTELConfig, version string) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(version),
		semconv.ServiceNamespace(ServiceNamespace),
	}
	if cfg.Environment != "" {
		attrs = append(attrs, attribute.String(attrDeploymentEnvironment, cfg.Environment))
	}
	return resource.New(ctx, resource.WithAttributes(attrs...))
}

// SetupOTel configures OpenTelemetry tracing and returns its Shutdown. When
// tracing is disabled it installs nothing and returns a no-op Shutdown; the
// global no-op provider then makes every span free. On error the globals are
// left untouched.
func SetupOTel(ctx context.Context, cfg config.OTELConfig, version string) (Shutdown, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	sampler, err := NewSampler(cfg.Sampler, cfg.SampleRatio)
	if err != nil {
		return nil, err
	}
	exp, err := newExporterFn(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("otlp exporter: %w", err)
	}
	res, err := newServiceResourceFn(ctx, cfg, version)
	if err != nil {
		_ = exp.Shutdown(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("otel resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(newProcessorFn(exp)),
		sdktrace.WithSampler(sampler),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))
	return tp.Shutdown, nil
}
