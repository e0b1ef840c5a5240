package core

import (
	"context"
	"time"
)

// Logger is the structured logging surface used by the registry. It matches
// the method set of *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// MetricsRecorder receives timing and outcome for registry operations.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// RefreshRecorder is implemented by metrics recorders that also track entity
// churn per refresh.
type RefreshRecorder interface {
	RecordRefresh(ctx context.Context, stats RefreshStats)
}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

// TraceSpan is an in-flight traced operation.
type TraceSpan interface {
	End(err error)
}

// Tracer starts spans around registry operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

type noopTracer struct{}

type noopSpan struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

func (noopSpan) End(error) {}

// Clock supplies wall time for metrics.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// DefaultExpiringTicks is the remaining lifetime at or below which a unit is
// considered about to expire.
const DefaultExpiringTicks = 150

type registryOptions struct {
	logger        Logger
	metrics       MetricsRecorder
	tracer        Tracer
	clock         Clock
	expiringTicks int
}

// RegistryOption customizes a Registry.
type RegistryOption func(*registryOptions)

func defaultRegistryOptions() registryOptions {
	return registryOptions{
		logger:        noopLogger{},
		metrics:       noopMetricsRecorder{},
		tracer:        noopTracer{},
		clock:         ClockFunc(func() time.Time { return time.Now().UTC() }),
		expiringTicks: DefaultExpiringTicks,
	}
}

// WithLogger sets the registry logger. Nil is ignored.
func WithLogger(logger Logger) RegistryOption {
	return func(o *registryOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetricsRecorder sets the metrics recorder. Nil is ignored.
func WithMetricsRecorder(rec MetricsRecorder) RegistryOption {
	return func(o *registryOptions) {
		if rec != nil {
			o.metrics = rec
		}
	}
}

// WithTracer sets the tracer. Nil is ignored.
func WithTracer(tracer Tracer) RegistryOption {
	return func(o *registryOptions) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithClock overrides the clock used for timing.
func WithClock(clock Clock) RegistryOption {
	return func(o *registryOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithExpiringTicks sets the lifetime threshold used by ActiveUnitsByJob.
func WithExpiringTicks(ticks int) RegistryOption {
	return func(o *registryOptions) {
		if ticks > 0 {
			o.expiringTicks = ticks
		}
	}
}
