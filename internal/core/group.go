package core

import (
	"context"
	"fmt"

	"colonybot/pkg/domain"
)

// Group clusters the structures of one region. Its phase is persisted and
// only moves forward through Advance.
type Group struct {
	region string
	phase  domain.Phase
	roster []string

	store domain.PersistentStore
}

// loadGroup creates the group for region, reading its stored phase or
// persisting PhaseBootstrap when none is stored.
func loadGroup(ctx context.Context, region string, store domain.PersistentStore) (*Group, error) {
	g := &Group{region: region, phase: domain.PhaseBootstrap, store: store}
	key := domain.GroupKey(region, domain.FieldPhase)
	raw, ok, err := store.Get(ctx, key)
	if err != nil {
		return g, fmt.Errorf("load group %s: %w", region, err)
	}
	if ok {
		g.phase = domain.ParsePhase(raw)
		return g, nil
	}
	if err := store.Set(ctx, key, string(domain.PhaseBootstrap)); err != nil {
		return g, fmt.Errorf("init group %s: %w", region, err)
	}
	return g, nil
}

// Region returns the group's primary key.
func (g *Group) Region() string { return g.region }

// Phase returns the current phase.
func (g *Group) Phase() domain.Phase { return g.phase }

// Roster returns the registered structure IDs in registration order.
func (g *Group) Roster() []string {
	out := make([]string, len(g.roster))
	copy(out, g.roster)
	return out
}

// register appends id to the roster. It does not deduplicate: registering the
// same structure twice yields two roster entries.
func (g *Group) register(id string) {
	g.roster = append(g.roster, id)
}

// Advance moves the group to phase to and persists it. Advancing to the
// current phase is a no-op; moving backwards returns ErrPhaseRegression.
func (g *Group) Advance(ctx context.Context, to domain.Phase) error {
	if !to.Valid() {
		return fmt.Errorf("group %s: unknown phase %q", g.region, to)
	}
	if to == g.phase {
		return nil
	}
	if to.Before(g.phase) {
		return domain.ErrPhaseRegression{Group: g.region, From: g.phase, To: to}
	}
	if err := g.store.Set(ctx, domain.GroupKey(g.region, domain.FieldPhase), string(to)); err != nil {
		return fmt.Errorf("advance group %s: %w", g.region, err)
	}
	g.phase = to
	return nil
}
