package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Metrics are the settlement pipeline counters.
type Metrics struct {
	settlements    metric.Int64Counter
	charges        metric.Int64Counter
	voids          metric.Int64Counter
	refunds        metric.Int64Counter
	syncs          metric.Int64Counter
	webhooks       metric.Int64Counter
	settleDuration metric.Float64Histogram
}

// NewMetrics registers the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.settlements, err = meter.Int64Counter("mms.settlements",
		metric.WithDescription("Checkout settlements by outcome"),
		metric.WithUnit("{settlement}"),
	); err != nil {
		return nil, err
	}
	if m.charges, err = meter.Int64Counter("mms.processor.charges",
		metric.WithDescription("Per-item processor charges by outcome"),
		metric.WithUnit("{charge}"),
	); err != nil {
		return nil, err
	}
	if m.voids, err = meter.Int64Counter("mms.processor.voids",
		metric.WithDescription("Compensating voids by outcome"),
		metric.WithUnit("{void}"),
	); err != nil {
		return nil, err
	}
	if m.refunds, err = meter.Int64Counter("mms.refunds",
		metric.WithDescription("Per-sale refunds by outcome"),
		metric.WithUnit("{refund}"),
	); err != nil {
		return nil, err
	}
	if m.syncs, err = meter.Int64Counter("mms.sales.sync",
		metric.WithDescription("Sale replications into merchant ledgers by outcome"),
		metric.WithUnit("{sale}"),
	); err != nil {
		return nil, err
	}
	if m.webhooks, err = meter.Int64Counter("mms.webhooks",
		metric.WithDescription("Ingested webhook events by kind"),
		metric.WithUnit("{event}"),
	); err != nil {
		return nil, err
	}
	if m.settleDuration, err = meter.Float64Histogram("mms.settlement.duration",
		metric.WithDescription("Settle call duration"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// NoopMetrics records nothing.
func NoopMetrics() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider().Meter(""))
	return m
}

func outcomeAttr(outcome string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("outcome", outcome))
}

func (m *Metrics) settlement(ctx context.Context, outcome string, started time.Time) {
	m.settlements.Add(ctx, 1, outcomeAttr(outcome))
	m.settleDuration.Record(ctx, time.Since(started).Seconds(), outcomeAttr(outcome))
}

func (m *Metrics) charge(ctx context.Context, outcome string) {
	m.charges.Add(ctx, 1, outcomeAttr(outcome))
}

func (m *Metrics) void(ctx context.Context, ok bool) {
	m.voids.Add(ctx, 1, outcomeAttr(okOutcome(ok)))
}

func (m *Metrics) refund(ctx context.Context, ok bool) {
	m.refunds.Add(ctx, 1, outcomeAttr(okOutcome(ok)))
}

func (m *Metrics) sync(ctx context.Context, outcome string) {
	m.syncs.Add(ctx, 1, outcomeAttr(outcome))
}

func (m *Metrics) webhook(ctx context.Context, kind, outcome string) {
	m.webhooks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("outcome", outcome),
	))
}

func okOutcome(ok bool) string {
	if ok {
		return "ok"
	}
	return "failed"
}
