package core

import (
	"context"
	"testing"

	"colonybot/internal/host"
	"colonybot/internal/host/simhost"
	"colonybot/internal/infra/persistence/memory"
	"colonybot/pkg/domain"
)

var starterBody = []host.Part{host.PartWork, host.PartCarry, host.PartMove}

func TestSpawnUnitNamesAndLimitsOncePerTick(t *testing.T) {
	ctx := context.Background()
	w, _, reg := newFixture()
	reg.Refresh(ctx, w)
	s, _ := reg.Structure("Spawn1")
	if s.Region() != "R1" || s.Energy() != 300 || s.EnergyCapacity() != simhost.DefaultSpawnEnergy {
		t.Fatalf("unexpected structure snapshot region=%s energy=%d/%d", s.Region(), s.Energy(), s.EnergyCapacity())
	}

	name, code := s.SpawnUnit(starterBody, domain.JobStarter, reg.Tick())
	if code != host.OK || name != "Starter:10" {
		t.Fatalf("spawn = %q %s", name, code)
	}
	if _, code := s.SpawnUnit(starterBody, domain.JobStarter, reg.Tick()); code != host.Busy {
		t.Fatalf("second spawn in the same tick = %s, want BUSY", code)
	}
	spawns := 0
	for _, c := range w.Commands() {
		if c.Verb == "spawn" {
			spawns++
		}
	}
	if spawns != 1 {
		t.Fatalf("busy spawn must not reach the host, saw %d spawn commands", spawns)
	}

	w.Advance()
	reg.Refresh(ctx, w)
	u, ok := reg.Unit("Starter:10")
	if !ok {
		t.Fatalf("spawned unit not cached")
	}
	if u.Job() != domain.JobStarter || !u.Spawning() {
		t.Fatalf("job=%s spawning=%v", u.Job(), u.Spawning())
	}
	if s.Energy() != 100 {
		t.Fatalf("energy after spawn = %d, want 100", s.Energy())
	}
}

func TestSpawnUnitRetriesNameConflicts(t *testing.T) {
	ctx := context.Background()
	w, _, reg := newFixture()
	w.AddUnit(simhost.UnitSpec{Name: "Builder:10", Pos: at(1, 1)})
	w.AddUnit(simhost.UnitSpec{Name: "Builder:11", Pos: at(1, 2)})
	reg.Refresh(ctx, w)
	s, _ := reg.Structure("Spawn1")
	name, code := s.SpawnUnit(starterBody, domain.JobBuilder, reg.Tick())
	if code != host.OK || name != "Builder:12" {
		t.Fatalf("spawn = %q %s", name, code)
	}
}

func TestSpawnUnitReportsHostRejection(t *testing.T) {
	ctx := context.Background()
	w := simhost.New()
	w.AddStructure(simhost.StructureSpec{ID: "Spawn1", Pos: at(25, 25), Energy: 50})
	reg := NewRegistry(memory.NewStore())
	reg.Refresh(ctx, w)
	s, _ := reg.Structure("Spawn1")
	if name, code := s.SpawnUnit(starterBody, domain.JobUpgrader, reg.Tick()); code != host.NotEnough || name != "" {
		t.Fatalf("spawn = %q %s, want NOT_ENOUGH", name, code)
	}

	w.Advance()
	w.AddStructure(simhost.StructureSpec{ID: "Spawn1", Pos: at(25, 25), Energy: 300})
	reg.Refresh(ctx, w)
	if name, code := s.SpawnUnit(starterBody, domain.JobUpgrader, reg.Tick()); code != host.OK || name != "Upgrader:20" {
		t.Fatalf("spawn on next tick = %q %s", name, code)
	}
}

func TestSpawnUnitOnEvictedStructure(t *testing.T) {
	ctx := context.Background()
	w, _, reg := newFixture()
	reg.Refresh(ctx, w)
	s, _ := reg.Structure("Spawn1")
	w.RemoveStructure("Spawn1")
	w.Advance()
	reg.Refresh(ctx, w)
	if s.Live() {
		t.Fatalf("evicted structure reports live")
	}
	if _, code := s.SpawnUnit(starterBody, domain.JobStarter, reg.Tick()); code != host.NotFound {
		t.Fatalf("spawn on evicted structure = %s", code)
	}
}
