package domain

import "fmt"

// Phase is the lifecycle stage of a group. Phases only move forward.
type Phase string

// Group phases in advancement order.
const (
	PhaseBootstrap Phase = "bootstrap"
	PhaseRunning   Phase = "running"
)

var phaseRank = map[Phase]int{
	PhaseBootstrap: 0,
	PhaseRunning:   1,
}

// ParsePhase decodes a persisted phase. Unknown values fall back to
// PhaseBootstrap.
func ParsePhase(raw string) Phase {
	p := Phase(raw)
	if _, ok := phaseRank[p]; ok {
		return p
	}
	return PhaseBootstrap
}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	_, ok := phaseRank[p]
	return ok
}

// Before reports whether p precedes other.
func (p Phase) Before(other Phase) bool {
	return phaseRank[p] < phaseRank[other]
}

func (p Phase) String() string { return string(p) }

// ErrPhaseRegression is returned when a transition would move a group
// backwards.
type ErrPhaseRegression struct {
	Group string
	From  Phase
	To    Phase
}

func (e ErrPhaseRegression) Error() string {
	return fmt.Sprintf("group %s: phase %s cannot regress to %s", e.Group, e.From, e.To)
}
