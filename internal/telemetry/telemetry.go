// Package telemetry wires tracing, metering and the prometheus registry.
package telemetry

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName identifies this module to otel.
const InstrumentationName = "workflow-governance/backend"

// Tracer returns the module tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}

// Meter returns the module meter from the global provider.
func Meter() metric.Meter {
	return otel.Meter(InstrumentationName)
}

// ActionCounter counts governance actions by name and outcome.
type ActionCounter struct {
	counter metric.Int64Counter
}

// NewActionCounter creates the counter on m. A nil meter means Meter().
func NewActionCounter(m metric.Meter) (*ActionCounter, error) {
	if m == nil {
		m = Meter()
	}
	c, err := m.Int64Counter("governance.actions",
		metric.WithDescription("Governance service operations"),
		metric.WithUnit("{action}"))
	if err != nil {
		return nil, err
	}
	return &ActionCounter{counter: c}, nil
}

// Add records one action. A nil counter is a no-op.
func (a *ActionCounter) Add(ctx context.Context, action string, err error) {
	if a == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	a.counter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("outcome", outcome),
	))
}

// NewRegistry returns a prometheus registry with the Go and process
// collectors installed.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler exposes reg in the prometheus text format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
