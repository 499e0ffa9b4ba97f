// internal/telemetry/telemetry.go
// Package telemetry installs the OpenTelemetry tracer provider that the
// instrumented service clients report to.
package telemetry

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.30.0"
)

const (
	serviceName = "foundrychat"
	tracesPath  = "/v1/traces"
)

var (
	mu       sync.Mutex
	provider *sdktrace.TracerProvider
)

// Init exports spans over OTLP/HTTP to endpoint. An empty endpoint leaves the
// global no-op provider in place. Calling Init again replaces the previous
// provider after flushing it.
func Init(ctx context.Context, endpoint string) error {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil
	}
	target, err := tracesURL(endpoint)
	if err != nil {
		return err
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(target))
	if err != nil {
		return fmt.Errorf("create trace exporter: %w", err)
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(time.Second),
		),
		sdktrace.WithResource(res),
	)

	mu.Lock()
	previous := provider
	provider = tp
	mu.Unlock()
	if previous != nil {
		_ = previous.Shutdown(ctx)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	otel.SetTracerProvider(tp)
	return nil
}

// Enabled reports whether a provider is installed.
func Enabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return provider != nil
}

// Shutdown flushes pending spans and stops the exporter. It is a no-op when
// Init never installed a provider.
func Shutdown(ctx context.Context) error {
	mu.Lock()
	tp := provider
	provider = nil
	mu.Unlock()
	if tp == nil {
		return nil
	}
	if err := tp.Shutdown(ctx); err != nil {
		return fmt.Errorf("shut down tracer provider: %w", err)
	}
	return nil
}

// tracesURL appends the standard OTLP traces path when endpoint names only a
// collector root.
func tracesURL(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid traces endpoint %q", endpoint)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = tracesPath
	}
	return u.String(), nil
}
