package observe

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/lguimbarda/parflow/flow/core"
)

// MeterName is the instrumentation scope used by NoopInstruments and
// recommended for meters passed to NewInstruments.
const MeterName = "github.com/lguimbarda/parflow"

// Instruments holds the OpenTelemetry instruments computations report to.
type Instruments struct {
	computations metric.Int64Counter
	workers      metric.Int64Histogram
	chunks       metric.Int64Counter
	items        metric.Int64Counter
	duration     metric.Float64Histogram
}

// NewInstruments creates the instruments on meter.
func NewInstruments(meter metric.Meter) (*Instruments, error) {
	computations, err := meter.Int64Counter("parflow.computations",
		metric.WithDescription("Finished computations"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating parflow.computations counter: %w", err)
	}

	workers, err := meter.Int64Histogram("parflow.workers",
		metric.WithDescription("Workers per computation, calling goroutine included"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating parflow.workers histogram: %w", err)
	}

	chunks, err := meter.Int64Counter("parflow.chunks",
		metric.WithDescription("Batches pulled from sources"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating parflow.chunks counter: %w", err)
	}

	items, err := meter.Int64Counter("parflow.items",
		metric.WithDescription("Source items pulled"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating parflow.items counter: %w", err)
	}

	duration, err := meter.Float64Histogram("parflow.duration",
		metric.WithDescription("Wall-clock duration of computations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating parflow.duration histogram: %w", err)
	}

	return &Instruments{
		computations: computations,
		workers:      workers,
		chunks:       chunks,
		items:        items,
		duration:     duration,
	}, nil
}

// NoopInstruments returns instruments that record nothing.
func NoopInstruments() *Instruments {
	in, err := NewInstruments(noop.NewMeterProvider().Meter(MeterName))
	if err != nil {
		// The noop meter never fails.
		panic(err)
	}
	return in
}

// Record reports one finished computation.
func (in *Instruments) Record(ctx context.Context, s core.Stats) {
	status := "ok"
	switch {
	case s.Failed:
		status = "failed"
	case s.Stopped:
		status = "stopped"
	}
	attrs := metric.WithAttributes(
		attribute.String("mode", s.Mode),
		attribute.String("status", status),
	)
	mode := metric.WithAttributes(attribute.String("mode", s.Mode))

	in.computations.Add(ctx, 1, attrs)
	in.workers.Record(ctx, int64(s.Workers), mode)
	in.chunks.Add(ctx, s.Chunks, mode)
	in.items.Add(ctx, s.Items, mode)
	in.duration.Record(ctx, s.Duration().Seconds(), attrs)
}

// WithInstruments reports every computation started with the returned
// context to in.
func WithInstruments(ctx context.Context, in *Instruments) context.Context {
	return WithStatsHook(ctx, func(s core.Stats) {
		in.Record(context.WithoutCancel(ctx), s)
	})
}
