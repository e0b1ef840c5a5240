// Package loop drives the tick core: it gates each tick on the host's CPU
// bucket, refreshes the registry, runs behavior, schedules memory cleanup and
// recovers from faults by resetting the registry.
package loop

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"colonybot/internal/config"
	"colonybot/internal/core"
	"colonybot/internal/host"
)

// Behavior is the per-tick decision logic run after the registry refresh.
type Behavior interface {
	Run(ctx context.Context, reg *core.Registry, h host.Host) error
}

// BehaviorFunc adapts a function to Behavior.
type BehaviorFunc func(ctx context.Context, reg *core.Registry, h host.Host) error

// Run implements Behavior.
func (f BehaviorFunc) Run(ctx context.Context, reg *core.Registry, h host.Host) error {
	return f(ctx, reg, h)
}

// Observer receives the report of every tick, including skipped ones.
type Observer interface {
	ObserveTick(ctx context.Context, report TickReport) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, report TickReport) error

// ObserveTick implements Observer.
func (f ObserverFunc) ObserveTick(ctx context.Context, report TickReport) error {
	return f(ctx, report)
}

// TickReport summarizes one driver step.
type TickReport struct {
	Time          uint64             `json:"time"`
	CPUBucket     int                `json:"cpu_bucket"`
	Skipped       bool               `json:"skipped,omitempty"`
	Refresh       *core.RefreshStats `json:"refresh,omitempty"`
	BehaviorError string             `json:"behavior_error,omitempty"`
	Cleaned       int                `json:"cleaned,omitempty"`
	CleanupError  string             `json:"cleanup_error,omitempty"`
	Recovered     string             `json:"recovered,omitempty"`
	Duration      time.Duration      `json:"duration_ns"`
}

// Driver runs ticks against one registry.
type Driver struct {
	reg       *core.Registry
	behavior  Behavior
	cfg       config.Config
	logger    core.Logger
	observers []Observer
	clock     core.Clock
}

// Option customizes a Driver.
type Option func(*Driver)

// WithLogger sets the driver logger. Nil is ignored.
func WithLogger(logger core.Logger) Option {
	return func(d *Driver) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithObserver adds a tick observer.
func WithObserver(o Observer) Option {
	return func(d *Driver) {
		if o != nil {
			d.observers = append(d.observers, o)
		}
	}
}

// WithClock overrides the clock used for tick durations.
func WithClock(clock core.Clock) Option {
	return func(d *Driver) {
		if clock != nil {
			d.clock = clock
		}
	}
}

type discardLogger struct{}

func (discardLogger) Debug(string, ...any) {}
func (discardLogger) Info(string, ...any)  {}
func (discardLogger) Warn(string, ...any)  {}
func (discardLogger) Error(string, ...any) {}

// New constructs a driver. behavior may be nil.
func New(reg *core.Registry, behavior Behavior, cfg config.Config, opts ...Option) *Driver {
	d := &Driver{
		reg:      reg,
		behavior: behavior,
		cfg:      cfg,
		logger:   discardLogger{},
		clock:    core.ClockFunc(time.Now),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Registry returns the driven registry.
func (d *Driver) Registry() *core.Registry { return d.reg }

// Tick runs one step against h. A tick whose CPU bucket is below the
// configured minimum is skipped without touching the registry. A panic from
// refresh, behavior or cleanup is recovered, logged and followed by a
// registry reset; the next tick starts from persisted state.
func (d *Driver) Tick(ctx context.Context, h host.Host) TickReport {
	started := d.clock.Now()
	report := TickReport{Time: h.Time(), CPUBucket: h.CPUBucket()}
	if report.CPUBucket < d.cfg.MinCPUBucket {
		report.Skipped = true
		d.logger.Info("cpu bucket low, skipping tick", "time", report.Time, "bucket", report.CPUBucket, "min", d.cfg.MinCPUBucket)
	} else {
		d.step(ctx, h, &report)
	}
	report.Duration = d.clock.Now().Sub(started)
	d.notify(ctx, report)
	return report
}

func (d *Driver) step(ctx context.Context, h host.Host, report *TickReport) {
	defer func() {
		if r := recover(); r != nil {
			report.Recovered = fmt.Sprint(r)
			d.logger.Error("tick panicked, resetting registry", "time", report.Time, "panic", report.Recovered, "stack", string(debug.Stack()))
			d.reg.Reset()
		}
	}()

	stats := d.reg.Refresh(ctx, h)
	report.Refresh = &stats

	if d.behavior != nil {
		if err := d.behavior.Run(ctx, d.reg, h); err != nil {
			report.BehaviorError = err.Error()
			d.logger.Warn("behavior failed", "time", report.Time, "error", err)
		}
	}

	if d.cfg.CleanupDue(report.Time) {
		n, err := d.reg.CleanupMemory(ctx, h)
		report.Cleaned = n
		if err != nil {
			report.CleanupError = err.Error()
			d.logger.Warn("memory cleanup failed", "time", report.Time, "error", err)
		}
	}
}

func (d *Driver) notify(ctx context.Context, report TickReport) {
	for _, o := range d.observers {
		if err := o.ObserveTick(ctx, report); err != nil {
			d.logger.Warn("tick observer failed", "time", report.Time, "error", err)
		}
	}
}

// World is a host that can be stepped forward, such as the simulated host.
type World interface {
	host.Host
	Advance()
}

// Run ticks w until ctx is done or ticks steps have run (ticks <= 0 runs
// until cancellation). Between steps it waits interval when positive.
func (d *Driver) Run(ctx context.Context, w World, ticks int, interval time.Duration) error {
	var pace <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		pace = ticker.C
	}
	for i := 0; ticks <= 0 || i < ticks; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		d.Tick(ctx, w)
		w.Advance()
		if pace == nil {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-pace:
		}
	}
	return nil
}
