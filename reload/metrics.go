package reload

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// MeterName instrumentation scope of the reload instruments
const MeterName = "yogan-logconf/reload"

// Reload results recorded on logconf_reloads_total
const (
	ResultSuccess  = "success"
	ResultFailure  = "failure"
	ResultDeferred = "deferred"
)

// Metrics reload trigger instruments
type Metrics struct {
	checksTotal    metric.Int64Counter     // Total change checks
	reloadsTotal   metric.Int64Counter     // Reconfigurations by result
	reloadDuration metric.Float64Histogram // Reconfiguration duration
}

// NewMetrics registers the instruments with meter
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.checksTotal, err = meter.Int64Counter(
		"logconf_reload_checks_total",
		metric.WithDescription("Total number of configuration change checks"),
		metric.WithUnit("{check}"),
	)
	if err != nil {
		return nil, err
	}

	m.reloadsTotal, err = meter.Int64Counter(
		"logconf_reloads_total",
		metric.WithDescription("Total number of reconfigurations triggered by a change"),
		metric.WithUnit("{reload}"),
	)
	if err != nil {
		return nil, err
	}

	m.reloadDuration, err = meter.Float64Histogram(
		"logconf_reload_duration_seconds",
		metric.WithDescription("Reconfiguration duration distribution"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// defaultMetrics instruments on the global meter provider, no-op if registration fails
func defaultMetrics() *Metrics {
	if m, err := NewMetrics(otel.Meter(MeterName)); err == nil {
		return m
	}
	m, _ := NewMetrics(noop.NewMeterProvider().Meter(MeterName))
	return m
}

func (m *Metrics) recordCheck(ctx context.Context, src string) {
	m.checksTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("source", src)))
}

func (m *Metrics) recordReload(ctx context.Context, src, result string, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("source", src), attribute.String("result", result))
	m.reloadsTotal.Add(ctx, 1, attrs)
	m.reloadDuration.Record(ctx, elapsed.Seconds(), attrs)
}
