package tasks

import (
	"testing"

	"colonybot/internal/host"
	"colonybot/internal/host/simhost"
)

type unitActor struct {
	host.Unit
	pos host.Position
}

func (a unitActor) ID() string         { return a.Name() }
func (a unitActor) Pos() host.Position { return a.pos }

func actorFor(t *testing.T, w *simhost.World, name string) Actor {
	t.Helper()
	for _, u := range w.Units() {
		if u.Name() != name {
			continue
		}
		pos, err := u.Pos()
		if err != nil {
			t.Fatalf("pos of %s: %v", name, err)
		}
		return unitActor{Unit: u, pos: pos}
	}
	t.Fatalf("unit %s not in world", name)
	return nil
}

type recordingLogger struct {
	warns []string
}

func (*recordingLogger) Debug(string, ...any) {}
func (*recordingLogger) Info(string, ...any)  {}
func (*recordingLogger) Error(string, ...any) {}
func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.warns = append(l.warns, msg)
}

// stubActor returns fixed command results.
type stubActor struct {
	id    string
	pos   host.Position
	carry int
	cap   int
	code  host.ReturnCode
	calls []string
}

func (a *stubActor) ID() string         { return a.id }
func (a *stubActor) CarryTotal() int    { return a.carry }
func (a *stubActor) CarryCapacity() int { return a.cap }
func (a *stubActor) Pos() host.Position { return a.pos }
func (a *stubActor) MoveTo(host.Position) host.ReturnCode {
	a.calls = append(a.calls, "move")
	return a.code
}
func (a *stubActor) Harvest(string) host.ReturnCode {
	a.calls = append(a.calls, "harvest")
	return a.code
}
func (a *stubActor) UpgradeController(string) host.ReturnCode {
	a.calls = append(a.calls, "upgrade")
	return a.code
}
func (a *stubActor) Transfer(string) host.ReturnCode {
	a.calls = append(a.calls, "transfer")
	return a.code
}

func at(x, y int) host.Position { return host.Position{X: x, Y: y, Region: "R1"} }
