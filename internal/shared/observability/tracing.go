package observability

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Tracer is resolved through the global provider, so spans started before
// Init are simply dropped.
var Tracer trace.Tracer = otel.Tracer("pyanalyzer")

type TracingConfig struct {
	Endpoint    string
	ServiceName string
	Insecure    bool
}

var (
	initOnce     sync.Once
	initShutdown func(context.Context) error
	initErr      error
)

// Init installs an OTLP gRPC trace exporter when cfg.Endpoint is set. It runs
// once per process; later calls return the first result.
func Init(ctx context.Context, cfg TracingConfig) (func(context.Context) error, error) {
	initOnce.Do(func() {
		initShutdown, initErr = setupTracing(ctx, cfg)
	})
	return initShutdown, initErr
}

func setupTracing(ctx context.Context, cfg TracingConfig) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if cfg.Endpoint == "" {
		return noop, nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return noop, fmt.Errorf("create otlp exporter: %w", err)
	}

	name := cfg.ServiceName
	if name == "" {
		name = "pyanalyzer"
	}
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", name))),
	)
	otel.SetTracerProvider(provider)
	return provider.Shutdown, nil
}
