// Package behavior contains the decision logic run by the tick driver on top
// of the registry. Demo keeps a group supplied with starter units that cycle
// between harvesting, filling structures and upgrading the controller.
package behavior

import (
	"context"
	"errors"

	"colonybot/internal/core"
	"colonybot/internal/host"
	"colonybot/internal/tasks"
	"colonybot/pkg/domain"
)

// Defaults for Demo.
const (
	DefaultStarters  = 4
	DefaultRunningAt = 3
)

// StarterBody is the body requested for starter units.
var StarterBody = []host.Part{host.PartWork, host.PartCarry, host.PartMove, host.PartMove}

// Demo is a minimal colony behavior.
type Demo struct {
	// Starters is the number of starter units each tick tries to maintain.
	Starters int
	// RunningAt is the number of active starters that moves a group to the
	// running phase.
	RunningAt int
	Logger    core.Logger
}

// NewDemo returns a Demo with default targets.
func NewDemo(logger core.Logger) *Demo {
	return &Demo{Starters: DefaultStarters, RunningAt: DefaultRunningAt, Logger: logger}
}

func (d *Demo) logger() core.Logger {
	if d.Logger == nil {
		return nopLogger{}
	}
	return d.Logger
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Run spawns missing starters, advances groups and drives every live unit's
// active task. Task errors that drop the task are expected and only logged;
// any other task error is returned after all units have run.
func (d *Demo) Run(ctx context.Context, reg *core.Registry, h host.Host) error {
	starters := reg.UnitsByJob(domain.JobStarter, false)
	active := reg.ActiveUnitsByJob(domain.JobStarter)
	for _, g := range reg.Groups() {
		if len(starters) < d.Starters {
			d.spawn(reg, g, h.Time())
		}
		if g.Phase() == domain.PhaseBootstrap && len(active) >= d.RunningAt {
			if err := g.Advance(ctx, domain.PhaseRunning); err != nil {
				return err
			}
			d.logger().Info("group running", "group", g.Region(), "starters", len(active))
		}
	}

	env := reg.Env(h)
	var errs []error
	for _, u := range reg.Units() {
		if !u.Live() || u.Spawning() {
			continue
		}
		if _, ok := u.ActiveTask(); !ok {
			if err := u.AssignTask(ctx, d.nextTask(u, h), env); err != nil {
				errs = append(errs, err)
				continue
			}
		}
		err := u.ExecuteActive(ctx, env)
		switch {
		case err == nil:
		case tasks.Discard(err):
			d.logger().Debug("task finished", "unit", u.ID(), "reason", err.Error())
		default:
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *Demo) spawn(reg *core.Registry, g *core.Group, tick uint64) {
	for _, id := range g.Roster() {
		s, ok := reg.Structure(id)
		if !ok || !s.Live() {
			continue
		}
		name, code := s.SpawnUnit(StarterBody, domain.JobStarter, tick)
		if code == host.OK {
			d.logger().Info("spawn requested", "group", g.Region(), "structure", id, "unit", name)
			return
		}
	}
}

// nextTask picks the follow-up for an idle unit: harvest when empty, fill a
// structure of the region when one has room, otherwise upgrade.
func (d *Demo) nextTask(u *core.Unit, h host.Host) tasks.Task {
	if u.CarryTotal() == 0 {
		return &tasks.Harvest{}
	}
	for _, s := range h.StructuresIn(u.Pos().Region) {
		if s.Energy() < s.EnergyCapacity() {
			return &tasks.Transfer{}
		}
	}
	return &tasks.Upgrade{}
}
