package simhost

import (
	"errors"
	"testing"

	"colonybot/internal/host"
)

func pos(x, y int) host.Position { return host.Position{X: x, Y: y, Region: "R1"} }

func TestHandlesGoStaleAfterAdvance(t *testing.T) {
	w := New()
	w.AddUnit(UnitSpec{Name: "Starter:1", Pos: pos(1, 1), CarryCapacity: 50})
	units := w.Units()
	if len(units) != 1 {
		t.Fatalf("expected one unit, got %d", len(units))
	}
	u := units[0]
	w.Advance()
	if code := u.MoveTo(pos(5, 5)); code != host.NotFound {
		t.Fatalf("stale handle move = %s, want NOT_FOUND", code)
	}
	if _, err := u.Pos(); err == nil {
		t.Fatalf("stale handle position should fail")
	}
}

func TestSpawnUnitChecks(t *testing.T) {
	w := New()
	w.AddStructure(StructureSpec{ID: "Spawn1", Pos: pos(5, 5), Energy: 300})
	w.AddUnit(UnitSpec{Name: "Starter:1", Pos: pos(1, 1)})
	s := w.Structures()[0]
	body := []host.Part{host.PartWork, host.PartCarry, host.PartMove}

	if code := s.SpawnUnit(body, "Starter:1"); code != host.NameExists {
		t.Fatalf("expected NAME_EXISTS, got %s", code)
	}
	if code := s.SpawnUnit(nil, "Starter:2"); code != host.InvalidArgs {
		t.Fatalf("expected INVALID_ARGS, got %s", code)
	}
	if code := s.SpawnUnit(body, "Starter:2"); code != host.OK {
		t.Fatalf("expected OK, got %s", code)
	}
	if code := s.SpawnUnit(body, "Starter:3"); code != host.Busy {
		t.Fatalf("expected BUSY while spawning, got %s", code)
	}
	if got := w.StructureEnergy("Spawn1"); got != 100 {
		t.Fatalf("energy after spawn = %d, want 100", got)
	}

	var spawned host.Unit
	for _, u := range w.Units() {
		if u.Name() == "Starter:2" {
			spawned = u
		}
	}
	if spawned == nil || !spawned.Spawning() {
		t.Fatalf("spawned unit should be listed and spawning")
	}
	if _, err := spawned.TicksToLive(); !errors.Is(err, host.ErrSpawning) {
		t.Fatalf("expected ErrSpawning, got %v", err)
	}
	if spawned.CarryCapacity() != CarryPerPart {
		t.Fatalf("carry capacity = %d", spawned.CarryCapacity())
	}
}

func TestSpawnUnitNotEnoughEnergy(t *testing.T) {
	w := New()
	w.AddStructure(StructureSpec{ID: "Spawn1", Pos: pos(5, 5), Energy: 50})
	if code := w.Structures()[0].SpawnUnit([]host.Part{host.PartWork}, "Builder:1"); code != host.NotEnough {
		t.Fatalf("expected NOT_ENOUGH, got %s", code)
	}
}

func TestLookupErrors(t *testing.T) {
	w := New()
	w.AddSource(SourceSpec{ID: "src1", Pos: pos(3, 3), Energy: 10})
	if _, err := w.LookupSource("src1"); err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if _, err := w.LookupSource("src2"); !errors.Is(err, host.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var conv *host.ConversionError
	if _, err := w.LookupStructure("bad id"); !errors.As(err, &conv) {
		t.Fatalf("expected ConversionError, got %v", err)
	}
	if _, err := w.LookupController("ctrl"); !errors.Is(err, host.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for controller, got %v", err)
	}
}

func TestAdvanceRegeneratesAndExpires(t *testing.T) {
	w := New()
	w.AddSource(SourceSpec{ID: "src1", Pos: pos(3, 3), Energy: 10, RegenTicks: 2})
	w.SetSourceEnergy("src1", 0, 1)
	w.AddUnit(UnitSpec{Name: "Old:1", Pos: pos(1, 1), TicksToLive: 1})
	w.Advance()
	src, err := w.LookupSource("src1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if src.Energy() != 10 || src.TicksToRegeneration() != 2 {
		t.Fatalf("source not regenerated: energy=%d regen=%d", src.Energy(), src.TicksToRegeneration())
	}
	if len(w.Units()) != 0 {
		t.Fatalf("expired unit still listed")
	}
	if w.Time() != 2 {
		t.Fatalf("time = %d", w.Time())
	}
}

func TestCorruptPosition(t *testing.T) {
	w := New()
	w.AddStructure(StructureSpec{ID: "Spawn1", Pos: pos(5, 5)})
	w.CorruptPosition("Spawn1")
	if _, err := w.Structures()[0].Pos(); err == nil {
		t.Fatalf("expected position error")
	}
}

func TestMoveAcrossRegionsHasNoPath(t *testing.T) {
	w := New()
	w.AddUnit(UnitSpec{Name: "Starter:1", Pos: pos(1, 1)})
	code := w.Units()[0].MoveTo(host.Position{X: 1, Y: 1, Region: "R2"})
	if code != host.NoPath {
		t.Fatalf("expected NO_PATH, got %s", code)
	}
	if cmds := w.Commands(); len(cmds) != 1 || cmds[0].Verb != "move" || cmds[0].Actor != "Starter:1" {
		t.Fatalf("unexpected command log %+v", cmds)
	}
}
