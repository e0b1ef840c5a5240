// Package host declares the contract between the tick core and the
// simulation host. Handles returned by a Host are only valid for the tick in
// which they were obtained and must never be retained past it.
package host

import (
	"errors"
	"fmt"
)

// ReturnCode is the status of a command issued to a live handle.
type ReturnCode int

// Command status codes reported by the host.
const (
	OK            ReturnCode = 0
	NotOwner      ReturnCode = -1
	NoPath        ReturnCode = -2
	NameExists    ReturnCode = -3
	Busy          ReturnCode = -4
	NotFound      ReturnCode = -5
	NotEnough     ReturnCode = -6
	InvalidTarget ReturnCode = -7
	Full          ReturnCode = -8
	NotInRange    ReturnCode = -9
	InvalidArgs   ReturnCode = -10
	Tired         ReturnCode = -11
	NoBodypart    ReturnCode = -12
	RclNotEnough  ReturnCode = -14
	GclNotEnough  ReturnCode = -15
)

var returnCodeNames = map[ReturnCode]string{
	OK:            "OK",
	NotOwner:      "NOT_OWNER",
	NoPath:        "NO_PATH",
	NameExists:    "NAME_EXISTS",
	Busy:          "BUSY",
	NotFound:      "NOT_FOUND",
	NotEnough:     "NOT_ENOUGH",
	InvalidTarget: "INVALID_TARGET",
	Full:          "FULL",
	NotInRange:    "NOT_IN_RANGE",
	InvalidArgs:   "INVALID_ARGS",
	Tired:         "TIRED",
	NoBodypart:    "NO_BODYPART",
	RclNotEnough:  "RCL_NOT_ENOUGH",
	GclNotEnough:  "GCL_NOT_ENOUGH",
}

func (c ReturnCode) String() string {
	if name, ok := returnCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(c))
}

// Part is a unit body part requested when spawning.
type Part string

// Body parts.
const (
	PartMove  Part = "move"
	PartWork  Part = "work"
	PartCarry Part = "carry"
)

// Position is a tile inside a region.
type Position struct {
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Region string `json:"region"`
}

// RangeTo returns the Chebyshev distance to other, or -1 when the positions
// are in different regions.
func (p Position) RangeTo(other Position) int {
	if p.Region != other.Region {
		return -1
	}
	dx := abs(p.X - other.X)
	dy := abs(p.Y - other.Y)
	if dx > dy {
		return dx
	}
	return dy
}

// InRangeTo reports whether other is within r tiles in the same region.
func (p Position) InRangeTo(other Position, r int) bool {
	d := p.RangeTo(other)
	return d >= 0 && d <= r
}

// IsNearTo reports adjacency (distance of at most one tile).
func (p Position) IsNearTo(other Position) bool { return p.InRangeTo(other, 1) }

func (p Position) String() string { return fmt.Sprintf("[%s %d,%d]", p.Region, p.X, p.Y) }

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// ErrNotFound is returned by lookups when the identified object no longer
// exists this tick.
var ErrNotFound = errors.New("host: object not found")

// ErrSpawning is returned when a field that is undefined while a unit is
// still spawning is read.
var ErrSpawning = errors.New("host: unit is spawning")

// ConversionError reports an identifier that could not be turned into a
// usable handle.
type ConversionError struct {
	ID     string
	Reason string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("host: cannot convert %q: %s", e.ID, e.Reason)
}

// Unit is a tick-scoped handle to a mobile entity.
type Unit interface {
	Name() string
	Spawning() bool
	CarryTotal() int
	CarryCapacity() int
	// TicksToLive returns ErrSpawning while the unit is spawning.
	TicksToLive() (int, error)
	Pos() (Position, error)
	MoveTo(target Position) ReturnCode
	Harvest(sourceID string) ReturnCode
	UpgradeController(controllerID string) ReturnCode
	Transfer(targetID string) ReturnCode
}

// Structure is a tick-scoped handle to a stationary spawner.
type Structure interface {
	ID() string
	Pos() (Position, error)
	Energy() int
	EnergyCapacity() int
	SpawnUnit(body []Part, name string) ReturnCode
}

// Source is a tick-scoped handle to a harvestable resource node.
type Source interface {
	ID() string
	Pos() Position
	Energy() int
	TicksToRegeneration() int
}

// Controller is a tick-scoped handle to a region controller.
type Controller interface {
	ID() string
	Pos() Position
	Level() int
}

// Host is the live view of the simulation for the current tick.
type Host interface {
	Time() uint64
	CPUBucket() int
	// Units and Structures are the authoritative live listings.
	Units() []Unit
	Structures() []Structure
	Sources(region string) []Source
	StructuresIn(region string) []Structure
	Controller(region string) (Controller, bool)
	LookupSource(id string) (Source, error)
	LookupStructure(id string) (Structure, error)
	LookupController(id string) (Controller, error)
}
