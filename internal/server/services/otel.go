package services

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/dmitrijs2005/gophmsg/internal/server/services"

type instrumentation struct {
	tracer       trace.Tracer
	duration     metric.Float64Histogram
	stored       metric.Int64Counter
	acknowledged metric.Int64Counter
}

// newInstrumentation uses the global providers, which are no-ops unless the
// host installs an SDK.
func newInstrumentation() (*instrumentation, error) {
	meter := otel.GetMeterProvider().Meter(instrumentationName)
	o := &instrumentation{tracer: otel.GetTracerProvider().Tracer(instrumentationName)}

	var err error
	o.duration, err = meter.Float64Histogram(
		"gophmsg.messaging.duration",
		metric.WithDescription("Duration of messaging operations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	o.stored, err = meter.Int64Counter(
		"gophmsg.messages.stored",
		metric.WithDescription("Number of mailbox entries written"),
	)
	if err != nil {
		return nil, err
	}

	o.acknowledged, err = meter.Int64Counter(
		"gophmsg.messages.acknowledged",
		metric.WithDescription("Number of mailbox entries deleted by acknowledge"),
	)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// start opens a span named messaging.<op>. The returned func ends it and
// records the outcome.
func (o *instrumentation) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	begin := time.Now()
	ctx, span := o.tracer.Start(ctx, "messaging."+op,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	return ctx, func(err error) {
		o.duration.Record(ctx, time.Since(begin).Seconds(),
			metric.WithAttributes(attribute.String("op", op), attribute.Bool("error", err != nil)))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

func (o *instrumentation) recordStored(ctx context.Context, n int64, group bool) {
	o.stored.Add(ctx, n, metric.WithAttributes(attribute.Bool("group", group)))
}

func (o *instrumentation) recordAcknowledged(ctx context.Context, n int64) {
	o.acknowledged.Add(ctx, n)
}
