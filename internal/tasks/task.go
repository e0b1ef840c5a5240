// Package tasks implements the unit task framework: a closed set of task
// variants that run as small per-tick state machines and persist as JSON
// records between ticks.
//
// A task is started once when it is assigned to a unit and executed on every
// tick it remains the unit's active task. Execute re-validates its
// preconditions each time; when they no longer hold it reports ErrInvalid (or
// ErrMissingValue) without issuing any command and the caller discards it.
package tasks

import (
	"colonybot/internal/host"
)

// Logger is the structured logging surface used by tasks. *slog.Logger
// satisfies it.
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

// Actor is the unit a task runs on. Values are only valid for the current
// tick.
type Actor interface {
	ID() string
	CarryTotal() int
	CarryCapacity() int
	Pos() host.Position
	MoveTo(target host.Position) host.ReturnCode
	Harvest(sourceID string) host.ReturnCode
	UpgradeController(controllerID string) host.ReturnCode
	Transfer(targetID string) host.ReturnCode
}

// World is the subset of the host a task needs to resolve its targets.
type World interface {
	Sources(region string) []host.Source
	StructuresIn(region string) []host.Structure
	Controller(region string) (host.Controller, bool)
	LookupSource(id string) (host.Source, error)
	LookupStructure(id string) (host.Structure, error)
	LookupController(id string) (host.Controller, error)
}

// Env carries the collaborators of a task call.
type Env struct {
	World  World
	Logger Logger
}

func (e Env) logger() Logger {
	if e.Logger == nil {
		return noopLogger{}
	}
	return e.Logger
}

// Kind discriminates the task variants in persisted records.
type Kind string

// Known task kinds.
const (
	KindHarvest  Kind = "harvest"
	KindUpgrade  Kind = "upgrade"
	KindTransfer Kind = "transfer"
)

// Task is implemented by *Harvest, *Upgrade and *Transfer only.
type Task interface {
	Kind() Kind
	Name() string
	// Start runs once per assignment and may resolve targets. Failures leave
	// the targets empty so Execute reports them.
	Start(a Actor, env Env)
	Execute(a Actor, env Env) error
	sealed()
}

// tolerated reports whether a command result is a temporary condition that
// does not warrant a warning.
func tolerated(code host.ReturnCode, extra ...host.ReturnCode) bool {
	switch code {
	case host.OK, host.NotEnough, host.Tired, host.Busy:
		return true
	}
	for _, c := range extra {
		if code == c {
			return true
		}
	}
	return false
}

func report(env Env, task Task, a Actor, command string, code host.ReturnCode, extra ...host.ReturnCode) {
	if tolerated(code, extra...) {
		return
	}
	env.logger().Warn("unexpected command result",
		"task", task.Name(), "unit", a.ID(), "command", command, "code", code.String())
}
