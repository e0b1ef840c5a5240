package core

import (
	"context"
	"testing"

	"colonybot/internal/host/simhost"
	"colonybot/pkg/domain"
)

func TestUnitsByJob(t *testing.T) {
	ctx := context.Background()
	w, _, reg := newFixture()
	w.AddUnit(simhost.UnitSpec{Name: "Builder:2", Pos: at(1, 1), TicksToLive: 100})
	w.AddUnit(simhost.UnitSpec{Name: "Builder:1", Pos: at(1, 2)})
	w.AddUnit(simhost.UnitSpec{Name: "Builder:3", Pos: at(1, 3), TicksToLive: DefaultExpiringTicks})
	w.AddUnit(simhost.UnitSpec{Name: "Upgrader:1", Pos: at(1, 4)})
	w.AddUnit(simhost.UnitSpec{Name: "Hauler:1", Pos: at(1, 5)})
	reg.Refresh(ctx, w)

	all := reg.UnitsByJob(domain.JobBuilder, false)
	if len(all) != 3 || all[0].ID() != "Builder:1" {
		t.Fatalf("unexpected builders %d", len(all))
	}
	active := reg.ActiveUnitsByJob(domain.JobBuilder)
	if len(active) != 1 || active[0].ID() != "Builder:1" {
		t.Fatalf("expected only Builder:1 to be active, got %d", len(active))
	}
	if got := reg.UnitsByJob(domain.JobUnassigned, false); len(got) != 1 || got[0].ID() != "Hauler:1" {
		t.Fatalf("unknown prefixes should be unassigned")
	}
	if got := reg.UnitsByJob(domain.JobStarter, false); len(got) != 0 {
		t.Fatalf("expected no starters")
	}
}

func TestExpiringThresholdOption(t *testing.T) {
	ctx := context.Background()
	w, _, reg := newFixture(WithExpiringTicks(50))
	w.AddUnit(simhost.UnitSpec{Name: "Builder:2", Pos: at(1, 1), TicksToLive: 100})
	reg.Refresh(ctx, w)
	if got := reg.ActiveUnitsByJob(domain.JobBuilder); len(got) != 1 {
		t.Fatalf("expected Builder:2 to be active with a lower threshold")
	}
}

func TestCleanupMemoryDeletesDeadUnits(t *testing.T) {
	ctx := context.Background()
	metrics := &captureMetricsRecorder{}
	tracer := &captureTracer{}
	w, store, reg := newFixture(WithMetricsRecorder(metrics), WithTracer(tracer))
	w.AddUnit(simhost.UnitSpec{Name: "Builder:1", Pos: at(1, 1)})
	_ = store.Set(ctx, domain.UnitKey("Builder:1", domain.FieldTasks), "[]")
	_ = store.Set(ctx, domain.UnitKey("Gone:1", domain.FieldTasks), "[]")
	_ = store.Set(ctx, domain.GroupKey("R9", domain.FieldPhase), "running")

	deleted, err := reg.CleanupMemory(ctx, w)
	if err != nil || deleted != 1 {
		t.Fatalf("cleanup = %d %v", deleted, err)
	}
	if ok, _ := store.Exists(ctx, domain.UnitKey("Gone:1", domain.FieldTasks)); ok {
		t.Fatalf("dead unit state survived cleanup")
	}
	if ok, _ := store.Exists(ctx, domain.UnitKey("Builder:1", domain.FieldTasks)); !ok {
		t.Fatalf("live unit state was deleted")
	}
	if ok, _ := store.Exists(ctx, domain.GroupKey("R9", domain.FieldPhase)); !ok {
		t.Fatalf("group state must not be touched")
	}
	if !metrics.has("registry.cleanup", true) || !tracer.has("registry.cleanup", true) {
		t.Fatalf("expected cleanup observability")
	}
}
