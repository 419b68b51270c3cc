// Package telemetry wires sterling's package-level OTel instruments to a
// real provider. Grounded in the teacher's internal/storage/dolt idiom
// (doltTracer/doltMetrics: package vars created against otel.Tracer/
// otel.Meter's global delegating provider at init time, which is a
// no-op until telemetry.Init runs) — Init here is the piece that
// pattern assumes exists but that the retrieved pack didn't include, so
// it's built from the otel SDK conventions the rest of the examples use.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Exporter selects where metrics/traces are sent.
type Exporter string

const (
	// ExporterNone leaves the global no-op providers in place.
	ExporterNone Exporter = "none"
	// ExporterStdout writes newline-delimited JSON to an io.Writer.
	ExporterStdout Exporter = "stdout"
	// ExporterOTLP sends metrics to an OTLP/HTTP collector; traces are
	// not exported in this mode.
	ExporterOTLP Exporter = "otlp"
)

// Options configures Init.
type Options struct {
	Exporter   Exporter
	OTLPEndpoint string
	Stdout     io.Writer // defaults to os.Stdout when Exporter is stdout
	ServiceName string
}

// Shutdown flushes and stops the providers Init installed.
type Shutdown func(context.Context) error

// Init installs global OTel meter/trace providers so the package-level
// instruments obtained via otel.Meter(...)/otel.Tracer(...) throughout
// the codebase (see internal/packet, internal/ledger) start forwarding
// real data instead of silently discarding it. Returns a Shutdown that
// must be called on process exit to flush buffered data.
func Init(ctx context.Context, opts Options) (Shutdown, error) {
	if opts.Exporter == "" || opts.Exporter == ExporterNone {
		return func(context.Context) error { return nil }, nil
	}

	serviceName := opts.ServiceName
	if serviceName == "" {
		serviceName = "sterling"
	}
	res, err := resource.New(ctx, resource.WithAttributes(attribute.String("service.name", serviceName)))
	if err != nil {
		return nil, fmt.Errorf("telemetry.Init: build resource: %w", err)
	}

	var (
		mp *metric.MeterProvider
		tp *sdktrace.TracerProvider
	)

	switch opts.Exporter {
	case ExporterStdout:
		w := opts.Stdout
		if w == nil {
			w = os.Stdout
		}
		metricExp, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("telemetry.Init: stdout metric exporter: %w", err)
		}
		traceExp, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("telemetry.Init: stdout trace exporter: %w", err)
		}
		mp = metric.NewMeterProvider(metric.WithResource(res), metric.WithReader(metric.NewPeriodicReader(metricExp)))
		tp = sdktrace.NewTracerProvider(sdktrace.WithResource(res), sdktrace.WithBatcher(traceExp))

	case ExporterOTLP:
		if opts.OTLPEndpoint == "" {
			return nil, fmt.Errorf("telemetry.Init: otlp exporter requires an endpoint")
		}
		metricExp, err := otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpoint(opts.OTLPEndpoint), otlpmetrichttp.WithInsecure())
		if err != nil {
			return nil, fmt.Errorf("telemetry.Init: otlp metric exporter: %w", err)
		}
		mp = metric.NewMeterProvider(metric.WithResource(res), metric.WithReader(metric.NewPeriodicReader(metricExp)))
		tp = sdktrace.NewTracerProvider(sdktrace.WithResource(res))

	default:
		return nil, fmt.Errorf("telemetry.Init: unknown exporter %q", opts.Exporter)
	}

	otel.SetMeterProvider(mp)
	otel.SetTracerProvider(tp)

	return func(shutdownCtx context.Context) error {
		var errs []error
		if err := mp.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		if err := tp.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		if len(errs) > 0 {
			return fmt.Errorf("telemetry.Shutdown: %v", errs)
		}
		return nil
	}, nil
}
