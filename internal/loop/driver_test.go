package loop

import (
	"context"
	"errors"
	"testing"
	"time"

	"colonybot/internal/config"
	"colonybot/internal/core"
	"colonybot/internal/host"
	"colonybot/internal/host/simhost"
	"colonybot/internal/infra/persistence/memory"
	"colonybot/pkg/domain"
)

type captureObserver struct {
	reports []TickReport
}

func (c *captureObserver) ObserveTick(_ context.Context, r TickReport) error {
	c.reports = append(c.reports, r)
	return nil
}

func fixture(t *testing.T) (*simhost.World, *memory.Store, *core.Registry) {
	t.Helper()
	w := simhost.New()
	w.AddStructure(simhost.StructureSpec{ID: "Spawn1", Pos: host.Position{X: 25, Y: 25, Region: "R1"}})
	w.AddUnit(simhost.UnitSpec{Name: "Builder:1", Pos: host.Position{X: 1, Y: 1, Region: "R1"}})
	store := memory.NewStore()
	return w, store, core.NewRegistry(store)
}

func TestTickSkipsWhenBucketLow(t *testing.T) {
	w, _, reg := fixture(t)
	w.SetCPUBucket(499)
	obs := &captureObserver{}
	ran := false
	d := New(reg, BehaviorFunc(func(context.Context, *core.Registry, host.Host) error {
		ran = true
		return nil
	}), config.Default(), WithObserver(obs))

	report := d.Tick(context.Background(), w)
	if !report.Skipped || report.Refresh != nil || ran {
		t.Fatalf("expected skipped tick, got %+v ran=%v", report, ran)
	}
	if reg.Tick() != 0 || len(reg.Units()) != 0 {
		t.Fatalf("skipped tick must not touch the registry")
	}
	if len(obs.reports) != 1 || !obs.reports[0].Skipped {
		t.Fatalf("observer should see the skipped tick")
	}

	w.SetCPUBucket(500)
	report = d.Tick(context.Background(), w)
	if report.Skipped || report.Refresh == nil || report.Refresh.Units.Created != 1 || !ran {
		t.Fatalf("expected a full tick at the threshold, got %+v", report)
	}
}

func TestTickRecoversAndResets(t *testing.T) {
	ctx := context.Background()
	w, _, reg := fixture(t)
	fail := true
	d := New(reg, BehaviorFunc(func(context.Context, *core.Registry, host.Host) error {
		if fail {
			panic("boom")
		}
		return nil
	}), config.Default())

	report := d.Tick(ctx, w)
	if report.Recovered != "boom" {
		t.Fatalf("expected recovered panic, got %+v", report)
	}
	if reg.Tick() != 0 || len(reg.Units()) != 0 || len(reg.Groups()) != 0 {
		t.Fatalf("registry should be reset after a fault")
	}

	fail = false
	w.Advance()
	report = d.Tick(ctx, w)
	if report.Recovered != "" || reg.Tick() != 1 {
		t.Fatalf("driver should continue after a fault: %+v", report)
	}
	if _, ok := reg.Unit("Builder:1"); !ok {
		t.Fatalf("cache should be rebuilt")
	}
}

func TestTickReportsBehaviorError(t *testing.T) {
	w, _, reg := fixture(t)
	d := New(reg, BehaviorFunc(func(context.Context, *core.Registry, host.Host) error {
		return errors.New("no plan")
	}), config.Default())
	if report := d.Tick(context.Background(), w); report.BehaviorError != "no plan" {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestTickRunsCleanupOnCadence(t *testing.T) {
	ctx := context.Background()
	w, store, reg := fixture(t)
	_ = store.Set(ctx, domain.UnitKey("Gone:1", domain.FieldTasks), "[]")
	cfg := config.Default()
	cfg.CleanupEveryTicks = 4
	cfg.CleanupOffset = 2
	d := New(reg, nil, cfg)

	if report := d.Tick(ctx, w); report.Cleaned != 0 {
		t.Fatalf("cleanup ran off cadence at time %d", report.Time)
	}
	w.Advance()
	report := d.Tick(ctx, w)
	if report.Time != 2 || report.Cleaned != 1 {
		t.Fatalf("expected cleanup at time 2, got %+v", report)
	}
	if ok, _ := store.Exists(ctx, domain.UnitKey("Gone:1", domain.FieldTasks)); ok {
		t.Fatalf("dead unit memory survived")
	}
}

type fixedClock struct {
	now  time.Time
	step time.Duration
}

func (c *fixedClock) Now() time.Time {
	c.now = c.now.Add(c.step)
	return c.now
}

func TestRunStopsAfterTicks(t *testing.T) {
	w, _, reg := fixture(t)
	obs := &captureObserver{}
	d := New(reg, nil, config.Default(), WithObserver(obs), WithClock(&fixedClock{step: time.Millisecond}))
	if err := d.Run(context.Background(), w, 3, 0); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(obs.reports) != 3 || w.Time() != 4 {
		t.Fatalf("reports=%d time=%d", len(obs.reports), w.Time())
	}
	if obs.reports[2].Time != 3 || obs.reports[2].Duration != time.Millisecond {
		t.Fatalf("unexpected last report %+v", obs.reports[2])
	}
	if d.Registry() != reg {
		t.Fatalf("unexpected registry")
	}
}

func TestRunHonoursCancellation(t *testing.T) {
	w, _, reg := fixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	ticks := 0
	d := New(reg, nil, config.Default(), WithObserver(ObserverFunc(func(context.Context, TickReport) error {
		ticks++
		if ticks == 2 {
			cancel()
		}
		return nil
	})))
	err := d.Run(ctx, w, 0, time.Millisecond)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if ticks != 2 {
		t.Fatalf("ticks = %d, want 2", ticks)
	}
}
