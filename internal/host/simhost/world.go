// Package simhost implements host.Host as a small deterministic in-memory
// world. It drives the tick core in tests and in the CLI. Handles it returns
// are bound to the tick that produced them and report NotFound (or errors)
// once the world has advanced.
//
// World is not safe for concurrent use.
package simhost

import (
	"errors"
	"fmt"
	"regexp"
	"sort"

	"colonybot/internal/host"
)

// Defaults applied by the simulation.
const (
	DefaultUnitLifetime    = 1500
	DefaultSourceEnergy    = 3000
	DefaultRegenTicks      = 300
	DefaultSpawnEnergy     = 300
	DefaultCPUBucket       = 10000
	HarvestPerWork         = 2
	SpawnTicksPerPart      = 3
	CarryPerPart           = 50
	controllerUpgradeRange = 3
)

var partCost = map[host.Part]int{
	host.PartMove:  50,
	host.PartWork:  100,
	host.PartCarry: 50,
}

var validID = regexp.MustCompile(`^[A-Za-z0-9:_\-]+$`)

// Command records one command issued through a handle.
type Command struct {
	Tick   uint64
	Actor  string
	Verb   string
	Target string
	Code   host.ReturnCode
}

// UnitSpec seeds a unit.
type UnitSpec struct {
	Name          string
	Pos           host.Position
	CarryCapacity int
	Carry         int
	TicksToLive   int
	SpawningTicks int
	WorkParts     int
}

// StructureSpec seeds a structure.
type StructureSpec struct {
	ID             string
	Pos            host.Position
	Energy         int
	EnergyCapacity int
}

// SourceSpec seeds a source.
type SourceSpec struct {
	ID         string
	Pos        host.Position
	Energy     int
	RegenTicks int
}

type unitState struct {
	spec     UnitSpec
	pos      host.Position
	carry    int
	ttl      int
	spawning int
	badPos   bool
}

type structureState struct {
	spec     StructureSpec
	energy   int
	spawning int
	badPos   bool
}

type sourceState struct {
	spec   SourceSpec
	energy int
	regen  int
}

type controllerState struct {
	id       string
	pos      host.Position
	level    int
	progress int
}

// World is the simulated host.
type World struct {
	tick        uint64
	bucket      int
	units       map[string]*unitState
	structures  map[string]*structureState
	sources     map[string]*sourceState
	controllers map[string]*controllerState
	commands    []Command
}

var _ host.Host = (*World)(nil)

// New returns an empty world at tick 1.
func New() *World {
	return &World{
		tick:        1,
		bucket:      DefaultCPUBucket,
		units:       make(map[string]*unitState),
		structures:  make(map[string]*structureState),
		sources:     make(map[string]*sourceState),
		controllers: make(map[string]*controllerState),
	}
}

// Time returns the current tick.
func (w *World) Time() uint64 { return w.tick }

// CPUBucket returns the remaining computation budget.
func (w *World) CPUBucket() int { return w.bucket }

// SetCPUBucket overrides the computation budget.
func (w *World) SetCPUBucket(v int) { w.bucket = v }

// AddUnit places a unit in the world.
func (w *World) AddUnit(spec UnitSpec) {
	if spec.TicksToLive == 0 {
		spec.TicksToLive = DefaultUnitLifetime
	}
	if spec.WorkParts == 0 {
		spec.WorkParts = 1
	}
	w.units[spec.Name] = &unitState{spec: spec, pos: spec.Pos, carry: spec.Carry, ttl: spec.TicksToLive, spawning: spec.SpawningTicks}
}

// RemoveUnit deletes a unit from the live listing.
func (w *World) RemoveUnit(name string) { delete(w.units, name) }

// AddStructure places a structure in the world.
func (w *World) AddStructure(spec StructureSpec) {
	if spec.EnergyCapacity == 0 {
		spec.EnergyCapacity = DefaultSpawnEnergy
	}
	w.structures[spec.ID] = &structureState{spec: spec, energy: spec.Energy}
}

// RemoveStructure deletes a structure from the live listing.
func (w *World) RemoveStructure(id string) { delete(w.structures, id) }

// AddSource places a source in the world.
func (w *World) AddSource(spec SourceSpec) {
	if spec.RegenTicks == 0 {
		spec.RegenTicks = DefaultRegenTicks
	}
	w.sources[spec.ID] = &sourceState{spec: spec, energy: spec.Energy, regen: spec.RegenTicks}
}

// SetSourceEnergy overrides a source's energy and regeneration countdown.
func (w *World) SetSourceEnergy(id string, energy, regen int) {
	if s, ok := w.sources[id]; ok {
		s.energy = energy
		s.regen = regen
	}
}

// AddController places the controller of a region.
func (w *World) AddController(id string, pos host.Position) {
	w.controllers[pos.Region] = &controllerState{id: id, pos: pos, level: 1}
}

// ControllerProgress returns the accumulated upgrade points of a region.
func (w *World) ControllerProgress(region string) int {
	if c, ok := w.controllers[region]; ok {
		return c.progress
	}
	return 0
}

// CorruptPosition makes Pos() fail for the unit or structure with id.
func (w *World) CorruptPosition(id string) {
	if u, ok := w.units[id]; ok {
		u.badPos = true
	}
	if s, ok := w.structures[id]; ok {
		s.badPos = true
	}
}

// UnitState exposes simulation-side values for assertions.
func (w *World) UnitState(name string) (pos host.Position, carry int, ok bool) {
	u, ok := w.units[name]
	if !ok {
		return host.Position{}, 0, false
	}
	return u.pos, u.carry, true
}

// StructureEnergy returns the stored energy of a structure.
func (w *World) StructureEnergy(id string) int {
	if s, ok := w.structures[id]; ok {
		return s.energy
	}
	return 0
}

// Commands returns the commands issued since the last ResetCommands.
func (w *World) Commands() []Command {
	out := make([]Command, len(w.commands))
	copy(out, w.commands)
	return out
}

// ResetCommands clears the command log.
func (w *World) ResetCommands() { w.commands = nil }

// Advance ends the current tick: spawning progresses, lifetimes count down,
// sources regenerate and every handle handed out so far becomes invalid.
func (w *World) Advance() {
	w.tick++
	for name, u := range w.units {
		if u.spawning > 0 {
			u.spawning--
			continue
		}
		u.ttl--
		if u.ttl <= 0 {
			delete(w.units, name)
		}
	}
	for _, s := range w.structures {
		if s.spawning > 0 {
			s.spawning--
		}
	}
	for _, src := range w.sources {
		if src.regen > 0 {
			src.regen--
		}
		if src.regen == 0 {
			src.energy = src.spec.Energy
			src.regen = src.spec.RegenTicks
		}
	}
}

// Units returns the live unit listing ordered by name.
func (w *World) Units() []host.Unit {
	names := make([]string, 0, len(w.units))
	for name := range w.units {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]host.Unit, 0, len(names))
	for _, name := range names {
		out = append(out, &unitHandle{w: w, name: name, epoch: w.tick})
	}
	return out
}

// Structures returns the live structure listing ordered by ID.
func (w *World) Structures() []host.Structure {
	return w.structuresWhere(func(*structureState) bool { return true })
}

// StructuresIn returns the structures located in region.
func (w *World) StructuresIn(region string) []host.Structure {
	return w.structuresWhere(func(s *structureState) bool { return s.spec.Pos.Region == region })
}

func (w *World) structuresWhere(keep func(*structureState) bool) []host.Structure {
	ids := make([]string, 0, len(w.structures))
	for id, s := range w.structures {
		if keep(s) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	out := make([]host.Structure, 0, len(ids))
	for _, id := range ids {
		out = append(out, &structureHandle{w: w, id: id, epoch: w.tick})
	}
	return out
}

// Sources returns the sources of region ordered by ID.
func (w *World) Sources(region string) []host.Source {
	ids := make([]string, 0)
	for id, s := range w.sources {
		if s.spec.Pos.Region == region {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	out := make([]host.Source, 0, len(ids))
	for _, id := range ids {
		out = append(out, &sourceHandle{w: w, id: id, epoch: w.tick})
	}
	return out
}

// Controller returns the controller of region.
func (w *World) Controller(region string) (host.Controller, bool) {
	c, ok := w.controllers[region]
	if !ok {
		return nil, false
	}
	return &controllerHandle{w: w, region: region, id: c.id, epoch: w.tick}, true
}

// LookupSource resolves a source by ID.
func (w *World) LookupSource(id string) (host.Source, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	if _, ok := w.sources[id]; !ok {
		return nil, fmt.Errorf("source %s: %w", id, host.ErrNotFound)
	}
	return &sourceHandle{w: w, id: id, epoch: w.tick}, nil
}

// LookupStructure resolves a structure by ID.
func (w *World) LookupStructure(id string) (host.Structure, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	if _, ok := w.structures[id]; !ok {
		return nil, fmt.Errorf("structure %s: %w", id, host.ErrNotFound)
	}
	return &structureHandle{w: w, id: id, epoch: w.tick}, nil
}

// LookupController resolves a controller by ID.
func (w *World) LookupController(id string) (host.Controller, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	for region, c := range w.controllers {
		if c.id == id {
			return &controllerHandle{w: w, region: region, id: id, epoch: w.tick}, nil
		}
	}
	return nil, fmt.Errorf("controller %s: %w", id, host.ErrNotFound)
}

func checkID(id string) error {
	if !validID.MatchString(id) {
		return &host.ConversionError{ID: id, Reason: "not a valid object id"}
	}
	return nil
}

func (w *World) record(actor, verb, target string, code host.ReturnCode) host.ReturnCode {
	w.commands = append(w.commands, Command{Tick: w.tick, Actor: actor, Verb: verb, Target: target, Code: code})
	return code
}

var errStaleHandle = errors.New("simhost: handle used after its tick ended")

type unitHandle struct {
	w     *World
	name  string
	epoch uint64
}

func (h *unitHandle) state() (*unitState, bool) {
	if h.w.tick != h.epoch {
		return nil, false
	}
	u, ok := h.w.units[h.name]
	return u, ok
}

func (h *unitHandle) Name() string { return h.name }

func (h *unitHandle) Spawning() bool {
	u, ok := h.state()
	return ok && u.spawning > 0
}

func (h *unitHandle) CarryTotal() int {
	if u, ok := h.state(); ok {
		return u.carry
	}
	return 0
}

func (h *unitHandle) CarryCapacity() int {
	if u, ok := h.state(); ok {
		return u.spec.CarryCapacity
	}
	return 0
}

func (h *unitHandle) TicksToLive() (int, error) {
	u, ok := h.state()
	if !ok {
		return 0, errStaleHandle
	}
	if u.spawning > 0 {
		return 0, host.ErrSpawning
	}
	return u.ttl, nil
}

func (h *unitHandle) Pos() (host.Position, error) {
	u, ok := h.state()
	if !ok {
		return host.Position{}, errStaleHandle
	}
	if u.badPos {
		return host.Position{}, fmt.Errorf("simhost: unit %s has no readable position", h.name)
	}
	return u.pos, nil
}

func (h *unitHandle) MoveTo(target host.Position) host.ReturnCode {
	u, ok := h.state()
	if !ok {
		return h.w.record(h.name, "move", target.String(), host.NotFound)
	}
	if u.spawning > 0 {
		return h.w.record(h.name, "move", target.String(), host.Busy)
	}
	if target.Region != u.pos.Region {
		return h.w.record(h.name, "move", target.String(), host.NoPath)
	}
	u.pos.X += step(u.pos.X, target.X)
	u.pos.Y += step(u.pos.Y, target.Y)
	return h.w.record(h.name, "move", target.String(), host.OK)
}

func step(from, to int) int {
	switch {
	case to > from:
		return 1
	case to < from:
		return -1
	default:
		return 0
	}
}

func (h *unitHandle) Harvest(sourceID string) host.ReturnCode {
	u, ok := h.state()
	if !ok {
		return h.w.record(h.name, "harvest", sourceID, host.NotFound)
	}
	src, ok := h.w.sources[sourceID]
	if !ok {
		return h.w.record(h.name, "harvest", sourceID, host.InvalidTarget)
	}
	if !u.pos.IsNearTo(src.spec.Pos) {
		return h.w.record(h.name, "harvest", sourceID, host.NotInRange)
	}
	if src.energy == 0 {
		return h.w.record(h.name, "harvest", sourceID, host.NotEnough)
	}
	amount := min(HarvestPerWork*u.spec.WorkParts, src.energy, u.spec.CarryCapacity-u.carry)
	src.energy -= amount
	u.carry += amount
	return h.w.record(h.name, "harvest", sourceID, host.OK)
}

func (h *unitHandle) UpgradeController(controllerID string) host.ReturnCode {
	u, ok := h.state()
	if !ok {
		return h.w.record(h.name, "upgrade", controllerID, host.NotFound)
	}
	var ctrl *controllerState
	for _, c := range h.w.controllers {
		if c.id == controllerID {
			ctrl = c
		}
	}
	if ctrl == nil {
		return h.w.record(h.name, "upgrade", controllerID, host.InvalidTarget)
	}
	if !u.pos.InRangeTo(ctrl.pos, controllerUpgradeRange) {
		return h.w.record(h.name, "upgrade", controllerID, host.NotInRange)
	}
	if u.carry == 0 {
		return h.w.record(h.name, "upgrade", controllerID, host.NotEnough)
	}
	amount := min(u.spec.WorkParts, u.carry)
	u.carry -= amount
	ctrl.progress += amount
	return h.w.record(h.name, "upgrade", controllerID, host.OK)
}

func (h *unitHandle) Transfer(targetID string) host.ReturnCode {
	u, ok := h.state()
	if !ok {
		return h.w.record(h.name, "transfer", targetID, host.NotFound)
	}
	s, ok := h.w.structures[targetID]
	if !ok {
		return h.w.record(h.name, "transfer", targetID, host.InvalidTarget)
	}
	if !u.pos.IsNearTo(s.spec.Pos) {
		return h.w.record(h.name, "transfer", targetID, host.NotInRange)
	}
	if u.carry == 0 {
		return h.w.record(h.name, "transfer", targetID, host.NotEnough)
	}
	free := s.spec.EnergyCapacity - s.energy
	if free <= 0 {
		return h.w.record(h.name, "transfer", targetID, host.Full)
	}
	amount := min(free, u.carry)
	u.carry -= amount
	s.energy += amount
	return h.w.record(h.name, "transfer", targetID, host.OK)
}

type structureHandle struct {
	w     *World
	id    string
	epoch uint64
}

func (h *structureHandle) state() (*structureState, bool) {
	if h.w.tick != h.epoch {
		return nil, false
	}
	s, ok := h.w.structures[h.id]
	return s, ok
}

func (h *structureHandle) ID() string { return h.id }

func (h *structureHandle) Pos() (host.Position, error) {
	s, ok := h.state()
	if !ok {
		return host.Position{}, errStaleHandle
	}
	if s.badPos {
		return host.Position{}, fmt.Errorf("simhost: structure %s has no readable position", h.id)
	}
	return s.spec.Pos, nil
}

func (h *structureHandle) Energy() int {
	if s, ok := h.state(); ok {
		return s.energy
	}
	return 0
}

func (h *structureHandle) EnergyCapacity() int {
	if s, ok := h.state(); ok {
		return s.spec.EnergyCapacity
	}
	return 0
}

func (h *structureHandle) SpawnUnit(body []host.Part, name string) host.ReturnCode {
	s, ok := h.state()
	if !ok {
		return h.w.record(h.id, "spawn", name, host.NotFound)
	}
	if len(body) == 0 {
		return h.w.record(h.id, "spawn", name, host.InvalidArgs)
	}
	if _, exists := h.w.units[name]; exists {
		return h.w.record(h.id, "spawn", name, host.NameExists)
	}
	if s.spawning > 0 {
		return h.w.record(h.id, "spawn", name, host.Busy)
	}
	cost, carry, work := 0, 0, 0
	for _, p := range body {
		cost += partCost[p]
		switch p {
		case host.PartCarry:
			carry++
		case host.PartWork:
			work++
		}
	}
	if cost > s.energy {
		return h.w.record(h.id, "spawn", name, host.NotEnough)
	}
	s.energy -= cost
	s.spawning = SpawnTicksPerPart * len(body)
	h.w.units[name] = &unitState{
		spec:     UnitSpec{Name: name, Pos: s.spec.Pos, CarryCapacity: carry * CarryPerPart, WorkParts: max(work, 1)},
		pos:      s.spec.Pos,
		ttl:      DefaultUnitLifetime,
		spawning: s.spawning,
	}
	return h.w.record(h.id, "spawn", name, host.OK)
}

type sourceHandle struct {
	w     *World
	id    string
	epoch uint64
}

func (h *sourceHandle) state() (*sourceState, bool) {
	if h.w.tick != h.epoch {
		return nil, false
	}
	s, ok := h.w.sources[h.id]
	return s, ok
}

func (h *sourceHandle) ID() string { return h.id }

func (h *sourceHandle) Pos() host.Position {
	if s, ok := h.state(); ok {
		return s.spec.Pos
	}
	return host.Position{}
}

func (h *sourceHandle) Energy() int {
	if s, ok := h.state(); ok {
		return s.energy
	}
	return 0
}

func (h *sourceHandle) TicksToRegeneration() int {
	if s, ok := h.state(); ok {
		return s.regen
	}
	return 0
}

type controllerHandle struct {
	w      *World
	region string
	id     string
	epoch  uint64
}

func (h *controllerHandle) state() (*controllerState, bool) {
	if h.w.tick != h.epoch {
		return nil, false
	}
	c, ok := h.w.controllers[h.region]
	return c, ok
}

func (h *controllerHandle) ID() string { return h.id }

func (h *controllerHandle) Pos() host.Position {
	if c, ok := h.state(); ok {
		return c.pos
	}
	return host.Position{}
}

func (h *controllerHandle) Level() int {
	if c, ok := h.state(); ok {
		return c.level
	}
	return 0
}
