// Package core holds the cross-tick entity cache. A Registry reconciles the
// host's live listings against its cached Units, Structures and Groups once
// per tick and exposes the cached state to behavior logic.
package core

import (
	"context"
	"sort"

	"colonybot/internal/host"
	"colonybot/internal/tasks"
	"colonybot/pkg/domain"
)

// KindStats counts the reconciliation outcome for one entity kind.
type KindStats struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Evicted int `json:"evicted"`
	Skipped int `json:"skipped"`
}

// RefreshStats summarizes one Refresh call.
type RefreshStats struct {
	Tick          uint64    `json:"tick"`
	Units         KindStats `json:"units"`
	Structures    KindStats `json:"structures"`
	GroupsCreated int       `json:"groups_created"`
	CachedUnits   int       `json:"cached_units"`
	CachedStructs int       `json:"cached_structures"`
	CachedGroups  int       `json:"cached_groups"`
}

// Registry is the root entity cache. It is owned by a single tick driver and
// is not safe for concurrent use.
type Registry struct {
	store domain.PersistentStore
	opts  registryOptions

	tick       uint64
	units      map[string]*Unit
	structures map[string]*Structure
	groups     map[string]*Group
}

// NewRegistry constructs an empty registry backed by store.
func NewRegistry(store domain.PersistentStore, opts ...RegistryOption) *Registry {
	o := defaultRegistryOptions()
	for _, opt := range opts {
		opt(&o)
	}
	r := &Registry{store: store, opts: o}
	r.Reset()
	return r
}

// Reset drops every cached entity and the tick counter. Persisted state is
// untouched and is reloaded by the next Refresh.
func (r *Registry) Reset() {
	r.tick = 0
	r.units = make(map[string]*Unit)
	r.structures = make(map[string]*Structure)
	r.groups = make(map[string]*Group)
}

// Store returns the backing persistent store.
func (r *Registry) Store() domain.PersistentStore { return r.store }

// Tick returns the number of Refresh calls since construction or Reset.
func (r *Registry) Tick() uint64 { return r.tick }

// Env builds the task environment for the current tick.
func (r *Registry) Env(h host.Host) tasks.Env {
	return tasks.Env{World: h, Logger: r.opts.logger}
}

// Refresh reconciles the cache with the host's live listings: structures
// first, then units. For each kind every live object is inserted or updated
// before any cached object missing from the listing is evicted.
func (r *Registry) Refresh(ctx context.Context, h host.Host) RefreshStats {
	ctx, span := r.opts.tracer.Start(ctx, "registry.refresh")
	started := r.opts.clock.Now()

	r.tick++
	stats := RefreshStats{Tick: r.tick}
	stats.Structures, stats.GroupsCreated = r.refreshStructures(ctx, h.Structures())
	stats.Units = r.refreshUnits(ctx, h.Units())
	stats.CachedUnits = len(r.units)
	stats.CachedStructs = len(r.structures)
	stats.CachedGroups = len(r.groups)

	r.opts.logger.Debug("registry refreshed",
		"tick", stats.Tick,
		"units_created", stats.Units.Created,
		"units_updated", stats.Units.Updated,
		"units_evicted", stats.Units.Evicted,
		"units_skipped", stats.Units.Skipped,
		"structures_created", stats.Structures.Created,
		"structures_updated", stats.Structures.Updated,
		"structures_evicted", stats.Structures.Evicted,
		"structures_skipped", stats.Structures.Skipped,
	)
	r.opts.metrics.Observe(ctx, "registry.refresh", true, r.opts.clock.Now().Sub(started))
	if rec, ok := r.opts.metrics.(RefreshRecorder); ok {
		rec.RecordRefresh(ctx, stats)
	}
	span.End(nil)
	return stats
}

func (r *Registry) refreshStructures(ctx context.Context, live []host.Structure) (KindStats, int) {
	var stats KindStats
	groupsCreated := 0
	seen := make(map[string]struct{}, len(live))
	for _, h := range live {
		id := h.ID()
		seen[id] = struct{}{}
		cached, ok := r.structures[id]
		pos, err := h.Pos()
		if err != nil {
			r.opts.logger.Warn("skip structure with unreadable position", "structure", id, "error", err)
			stats.Skipped++
			if ok {
				cached.handle = nil
			}
			continue
		}
		if ok {
			cached.refresh(h, pos)
			stats.Updated++
			continue
		}
		s := newStructure(id, r.opts.logger)
		s.refresh(h, pos)
		r.structures[id] = s
		if r.registerStructure(ctx, s) {
			groupsCreated++
		}
		stats.Created++
	}
	for id, s := range r.structures {
		if _, ok := seen[id]; ok {
			continue
		}
		s.OnEvict()
		delete(r.structures, id)
		stats.Evicted++
	}
	return stats, groupsCreated
}

// registerStructure adds s to the group of its region, creating the group
// when the region has not been seen. It reports whether a group was created.
// Calling it twice for the same structure registers it twice.
func (r *Registry) registerStructure(ctx context.Context, s *Structure) bool {
	region := s.Region()
	g, ok := r.groups[region]
	if !ok {
		var err error
		g, err = loadGroup(ctx, region, r.store)
		if err != nil {
			r.opts.logger.Error("group state unavailable, using bootstrap", "group", region, "error", err)
		}
		r.groups[region] = g
		r.opts.logger.Info("group created", "group", region, "phase", g.Phase().String())
	}
	g.register(s.ID())
	return !ok
}

func (r *Registry) refreshUnits(ctx context.Context, live []host.Unit) KindStats {
	var stats KindStats
	seen := make(map[string]struct{}, len(live))
	for _, h := range live {
		id := h.Name()
		seen[id] = struct{}{}
		cached, ok := r.units[id]
		pos, err := h.Pos()
		if err != nil {
			r.opts.logger.Warn("skip unit with unreadable position", "unit", id, "error", err)
			stats.Skipped++
			if ok {
				cached.handle = nil
			}
			continue
		}
		if ok {
			cached.refresh(ctx, h, pos)
			stats.Updated++
			continue
		}
		u := newUnit(id, r.store, r.opts.logger)
		u.refresh(ctx, h, pos)
		r.units[id] = u
		stats.Created++
	}
	for id, u := range r.units {
		if _, ok := seen[id]; ok {
			continue
		}
		u.OnEvict()
		delete(r.units, id)
		stats.Evicted++
	}
	return stats
}

// Unit returns the cached unit with id.
func (r *Registry) Unit(id string) (*Unit, bool) {
	u, ok := r.units[id]
	return u, ok
}

// Structure returns the cached structure with id.
func (r *Registry) Structure(id string) (*Structure, bool) {
	s, ok := r.structures[id]
	return s, ok
}

// Group returns the group of region.
func (r *Registry) Group(region string) (*Group, bool) {
	g, ok := r.groups[region]
	return g, ok
}

// Units returns the cached units ordered by ID.
func (r *Registry) Units() []*Unit {
	out := make([]*Unit, 0, len(r.units))
	for _, u := range r.units {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Structures returns the cached structures ordered by ID.
func (r *Registry) Structures() []*Structure {
	out := make([]*Structure, 0, len(r.structures))
	for _, s := range r.structures {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Groups returns the groups ordered by region.
func (r *Registry) Groups() []*Group {
	out := make([]*Group, 0, len(r.groups))
	for _, g := range r.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].region < out[j].region })
	return out
}
