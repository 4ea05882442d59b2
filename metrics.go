package a2ui

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "github.com/pthm/a2ui"

// Origin tells where a data mutation came from.
type Origin string

const (
	OriginLocal  Origin = "local"
	OriginRemote Origin = "remote"
)

// instruments holds the counters shared by the dispatcher and the resolver.
type instruments struct {
	events    metric.Int64Counter
	failures  metric.Int64Counter
	mutations metric.Int64Counter
}

func newInstruments(mp metric.MeterProvider) *instruments {
	meter := mp.Meter(instrumentationName)

	in := &instruments{}
	var err error
	if in.events, err = meter.Int64Counter("a2ui.dispatch.events",
		metric.WithDescription("Events dispatched, by channel")); err != nil {
		in.events = noop.Int64Counter{}
	}
	if in.failures, err = meter.Int64Counter("a2ui.dispatch.subscriber_failures",
		metric.WithDescription("Subscriber invocations that panicked, by channel")); err != nil {
		in.failures = noop.Int64Counter{}
	}
	if in.mutations, err = meter.Int64Counter("a2ui.binding.mutations",
		metric.WithDescription("Bound-data mutations applied, by origin")); err != nil {
		in.mutations = noop.Int64Counter{}
	}
	return in
}

func (in *instruments) dispatched(ch Channel) {
	in.events.Add(context.Background(), 1, metric.WithAttributes(attribute.String("channel", string(ch))))
}

func (in *instruments) failed(ch Channel) {
	in.failures.Add(context.Background(), 1, metric.WithAttributes(attribute.String("channel", string(ch))))
}

func (in *instruments) mutated(origin Origin) {
	in.mutations.Add(context.Background(), 1, metric.WithAttributes(attribute.String("origin", string(origin))))
}
