// Package telemetry installs the OpenTelemetry meter provider backing the
// daemon's metrics. Instruments are exported through a Prometheus reader
// into the registry the /metrics endpoint serves.
package telemetry

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// Telemetry owns the meter provider and its shutdown.
type Telemetry struct {
	meterProvider *sdkmetric.MeterProvider
}

// New builds a meter provider exporting into registerer (nil means the
// default Prometheus registerer) and installs it as the global provider,
// so instruments created via otel.Meter record into it.
func New(serviceName string, registerer prometheus.Registerer) (*Telemetry, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	exporter, err := otelprom.New(otelprom.WithRegisterer(registerer))
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	// Standalone resource to avoid schema URL conflicts with
	// resource.Default(), which uses a different semconv version.
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
	)

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	return &Telemetry{meterProvider: mp}, nil
}

// Shutdown flushes and stops the meter provider.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil || t.meterProvider == nil {
		return nil
	}
	return t.meterProvider.Shutdown(ctx)
}
