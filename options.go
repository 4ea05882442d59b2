package a2ui

import (
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// PathPolicy decides what a write does when an intermediate container on
// its path is missing.
type PathPolicy int

const (
	// PathPolicyCreate creates every missing intermediate container: a
	// mapping, or a sequence when the next segment is an index.
	PathPolicyCreate PathPolicy = iota

	// PathPolicyStrict rejects writes whose parent container does not
	// exist, and index writes that would leave a gap in a sequence.
	// Writing at the current length appends.
	PathPolicyStrict
)

// DefaultMaxSequenceGap bounds how many nil placeholders a single index
// write may append under PathPolicyCreate.
const DefaultMaxSequenceGap = 1024

func (p PathPolicy) String() string {
	switch p {
	case PathPolicyCreate:
		return "create"
	case PathPolicyStrict:
		return "strict"
	}
	return fmt.Sprintf("PathPolicy(%d)", int(p))
}

// ParsePathPolicy parses "create" or "strict" (case-insensitive).
func ParsePathPolicy(s string) (PathPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "create":
		return PathPolicyCreate, nil
	case "strict":
		return PathPolicyStrict, nil
	}
	return 0, fmt.Errorf("a2ui: unknown path policy %q", s)
}

// Option configures a Session, Dispatcher or Processor.
type Option func(*options)

type options struct {
	clock         Clock
	logger        *slog.Logger
	policy        PathPolicy
	maxGap        int
	meterProvider metric.MeterProvider
}

// WithClock sets the clock used to timestamp constructed messages. The clock
// is wrapped so readings are UTC and non-decreasing.
func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = newMonotonicClock(c)
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithPathPolicy sets how writes treat missing intermediate containers.
// Defaults to PathPolicyCreate.
func WithPathPolicy(p PathPolicy) Option {
	return func(o *options) { o.policy = p }
}

// WithMaxSequenceGap sets how far past the end of a sequence an index write
// may land. Zero or negative means unlimited.
func WithMaxSequenceGap(n int) Option {
	return func(o *options) { o.maxGap = n }
}

// WithMeterProvider sets the OpenTelemetry meter provider for dispatch and
// binding counters. Defaults to the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		if mp != nil {
			o.meterProvider = mp
		}
	}
}

func buildOptions(opts []Option) *options {
	o := &options{
		clock:  systemClock,
		logger: slog.Default().With("component", "a2ui"),
		policy: PathPolicyCreate,
		maxGap: DefaultMaxSequenceGap,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.meterProvider == nil {
		o.meterProvider = otel.GetMeterProvider()
	}
	return o
}
