package core

import (
	"context"
	"errors"
	"fmt"

	"colonybot/internal/host"
	"colonybot/internal/tasks"
	"colonybot/pkg/domain"
)

// SpawningTicksToLive stands in for the lifetime of a unit that is still
// spawning, when the host cannot report one.
const SpawningTicksToLive = 1500

// Unit is the cached view of a mobile entity. It holds snapshot data that
// survives across ticks plus a handle slot that is rebound on every refresh.
type Unit struct {
	id  string
	job domain.Job

	carryTotal    int
	carryCapacity int
	ticksToLive   int
	pos           host.Position
	spawning      bool

	handle host.Unit

	tasks    []tasks.Task
	rawTasks string

	store  domain.PersistentStore
	logger Logger
}

var _ tasks.Actor = (*Unit)(nil)

func newUnit(id string, store domain.PersistentStore, logger Logger) *Unit {
	return &Unit{
		id:          id,
		job:         domain.JobFromID(id),
		ticksToLive: SpawningTicksToLive,
		store:       store,
		logger:      logger,
	}
}

// ID returns the unit identifier.
func (u *Unit) ID() string { return u.id }

// Job returns the classification derived from the ID when the unit was first
// observed.
func (u *Unit) Job() domain.Job { return u.job }

func (u *Unit) CarryTotal() int    { return u.carryTotal }
func (u *Unit) CarryCapacity() int { return u.carryCapacity }
func (u *Unit) TicksToLive() int   { return u.ticksToLive }
func (u *Unit) Pos() host.Position { return u.pos }
func (u *Unit) Spawning() bool     { return u.spawning }

// Live reports whether the unit holds a usable handle this tick.
func (u *Unit) Live() bool { return u.handle != nil }

// Tasks returns a copy of the unit's task list.
func (u *Unit) Tasks() []tasks.Task {
	out := make([]tasks.Task, len(u.tasks))
	copy(out, u.tasks)
	return out
}

// ActiveTask returns the first task of the list.
func (u *Unit) ActiveTask() (tasks.Task, bool) {
	if len(u.tasks) == 0 {
		return nil, false
	}
	return u.tasks[0], true
}

// MoveTo forwards to the live handle.
func (u *Unit) MoveTo(target host.Position) host.ReturnCode {
	if u.handle == nil {
		return host.NotFound
	}
	return u.handle.MoveTo(target)
}

// Harvest forwards to the live handle.
func (u *Unit) Harvest(sourceID string) host.ReturnCode {
	if u.handle == nil {
		return host.NotFound
	}
	return u.handle.Harvest(sourceID)
}

// UpgradeController forwards to the live handle.
func (u *Unit) UpgradeController(controllerID string) host.ReturnCode {
	if u.handle == nil {
		return host.NotFound
	}
	return u.handle.UpgradeController(controllerID)
}

// Transfer forwards to the live handle.
func (u *Unit) Transfer(targetID string) host.ReturnCode {
	if u.handle == nil {
		return host.NotFound
	}
	return u.handle.Transfer(targetID)
}

// refresh rebinds the unit to this tick's handle. pos has already been read
// from the handle by the caller.
func (u *Unit) refresh(ctx context.Context, h host.Unit, pos host.Position) {
	u.pos = pos
	u.carryTotal = h.CarryTotal()
	u.carryCapacity = h.CarryCapacity()
	u.spawning = h.Spawning()
	if !u.spawning {
		ttl, err := h.TicksToLive()
		switch {
		case err == nil:
			u.ticksToLive = ttl
		case !errors.Is(err, host.ErrSpawning):
			u.logger.Warn("read ticks to live", "unit", u.id, "error", err)
		}
	}
	u.reloadTasks(ctx)
	u.handle = h
}

func (u *Unit) reloadTasks(ctx context.Context) {
	raw, _, err := u.store.Get(ctx, domain.UnitKey(u.id, domain.FieldTasks))
	if err != nil {
		u.logger.Warn("read task list", "unit", u.id, "error", err)
		return
	}
	if raw == u.rawTasks {
		return
	}
	u.rawTasks = raw
	list, err := tasks.DecodeList(raw)
	if err != nil {
		u.logger.Warn("decode task list, keeping previous tasks", "unit", u.id, "error", err)
		return
	}
	u.tasks = list
}

// AssignTask starts t against the unit and appends it to the task list. The
// in-memory list only changes once the new list is persisted.
func (u *Unit) AssignTask(ctx context.Context, t tasks.Task, env tasks.Env) error {
	t.Start(u, env)
	next := make([]tasks.Task, 0, len(u.tasks)+1)
	next = append(next, u.tasks...)
	return u.persistTasks(ctx, append(next, t))
}

// SetTasks replaces the task list without starting the tasks.
func (u *Unit) SetTasks(ctx context.Context, list []tasks.Task) error {
	return u.persistTasks(ctx, append([]tasks.Task(nil), list...))
}

// ExecuteActive runs the active task. When the task reports itself invalid it
// is dropped and the shortened list persisted; the task error is still
// returned so the caller can assign a replacement. Conversion and other
// errors leave the list untouched, as does a failed write of the shortened
// list. A unit without tasks is a no-op.
func (u *Unit) ExecuteActive(ctx context.Context, env tasks.Env) error {
	active, ok := u.ActiveTask()
	if !ok {
		return nil
	}
	err := active.Execute(u, env)
	if err == nil {
		return nil
	}
	if tasks.Discard(err) {
		if perr := u.persistTasks(ctx, append([]tasks.Task(nil), u.tasks[1:]...)); perr != nil {
			err = errors.Join(err, perr)
		}
	}
	return fmt.Errorf("unit %s: %s: %w", u.id, active.Name(), err)
}

// persistTasks writes list and adopts it as the unit's task list on success.
func (u *Unit) persistTasks(ctx context.Context, list []tasks.Task) error {
	raw, err := tasks.EncodeList(list)
	if err != nil {
		return err
	}
	if err := u.store.Set(ctx, domain.UnitKey(u.id, domain.FieldTasks), raw); err != nil {
		return fmt.Errorf("persist tasks for %s: %w", u.id, err)
	}
	u.tasks = list
	u.rawTasks = raw
	return nil
}

// OnEvict is called when the unit leaves the cache.
func (u *Unit) OnEvict() {
	u.handle = nil
	u.logger.Debug("unit evicted", "unit", u.id, "job", u.job.String())
}
