package core

import (
	"fmt"

	"colonybot/internal/host"
	"colonybot/pkg/domain"
)

// maxSpawnNameAttempts bounds the NameExists retries of SpawnUnit.
const maxSpawnNameAttempts = 10

// Structure is the cached view of a spawner. It carries no persisted state.
type Structure struct {
	id             string
	pos            host.Position
	energy         int
	energyCapacity int

	handle        host.Structure
	lastCommandAt uint64
	commanded     bool

	logger Logger
}

func newStructure(id string, logger Logger) *Structure {
	return &Structure{id: id, logger: logger}
}

func (s *Structure) ID() string          { return s.id }
func (s *Structure) Pos() host.Position  { return s.pos }
func (s *Structure) Region() string      { return s.pos.Region }
func (s *Structure) Energy() int         { return s.energy }
func (s *Structure) EnergyCapacity() int { return s.energyCapacity }

// Live reports whether the structure holds a usable handle this tick.
func (s *Structure) Live() bool { return s.handle != nil }

func (s *Structure) refresh(h host.Structure, pos host.Position) {
	s.pos = pos
	s.energy = h.Energy()
	s.energyCapacity = h.EnergyCapacity()
	s.handle = h
}

// SpawnUnit asks the structure to produce a unit named "<job>:<tick><n>",
// retrying with the next n while the host reports a name conflict. Only one
// command is accepted per structure per tick; later calls in the same tick
// return host.Busy without reaching the host.
func (s *Structure) SpawnUnit(body []host.Part, job domain.Job, tick uint64) (string, host.ReturnCode) {
	if s.handle == nil {
		return "", host.NotFound
	}
	if s.commanded && s.lastCommandAt == tick {
		return "", host.Busy
	}
	s.commanded = true
	s.lastCommandAt = tick
	for n := 0; n < maxSpawnNameAttempts; n++ {
		name := fmt.Sprintf("%s%s%d%d", job, domain.JobSeparator, tick, n)
		code := s.handle.SpawnUnit(body, name)
		if code == host.NameExists {
			continue
		}
		if code != host.OK {
			s.logger.Debug("spawn rejected", "structure", s.id, "name", name, "code", code.String())
			return "", code
		}
		s.logger.Info("spawning unit", "structure", s.id, "name", name)
		return name, code
	}
	return "", host.NameExists
}

// OnEvict is called when the structure leaves the cache.
func (s *Structure) OnEvict() {
	s.handle = nil
	s.logger.Debug("structure evicted", "structure", s.id)
}
