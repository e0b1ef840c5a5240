package core

import (
	"context"
	"fmt"

	"colonybot/internal/host"
	"colonybot/pkg/domain"
)

// UnitsByJob returns the cached units of job ordered by ID. With
// ignoreExpiring set, units whose remaining lifetime is at or below the
// expiring threshold are left out.
func (r *Registry) UnitsByJob(job domain.Job, ignoreExpiring bool) []*Unit {
	var out []*Unit
	for _, u := range r.Units() {
		if u.job != job {
			continue
		}
		if ignoreExpiring && u.ticksToLive <= r.opts.expiringTicks {
			continue
		}
		out = append(out, u)
	}
	return out
}

// ActiveUnitsByJob returns the units of job that are not about to expire.
func (r *Registry) ActiveUnitsByJob(job domain.Job) []*Unit {
	return r.UnitsByJob(job, true)
}

// CleanupMemory deletes persisted unit state whose unit is absent from the
// host's live listing. It returns the number of deleted keys.
func (r *Registry) CleanupMemory(ctx context.Context, h host.Host) (int, error) {
	ctx, span := r.opts.tracer.Start(ctx, "registry.cleanup")
	started := r.opts.clock.Now()
	deleted, err := r.cleanupMemory(ctx, h)
	r.opts.metrics.Observe(ctx, "registry.cleanup", err == nil, r.opts.clock.Now().Sub(started))
	span.End(err)
	if err != nil {
		return deleted, err
	}
	if deleted > 0 {
		r.opts.logger.Info("cleaned up unit memory", "deleted", deleted)
	}
	return deleted, nil
}

func (r *Registry) cleanupMemory(ctx context.Context, h host.Host) (int, error) {
	live := make(map[string]struct{})
	for _, u := range h.Units() {
		live[u.Name()] = struct{}{}
	}
	keys, err := r.store.Keys(ctx, domain.KindUnit)
	if err != nil {
		return 0, fmt.Errorf("list unit keys: %w", err)
	}
	deleted := 0
	for _, key := range keys {
		if _, ok := live[key.ID]; ok {
			continue
		}
		if err := r.store.Delete(ctx, key); err != nil {
			return deleted, fmt.Errorf("delete %s: %w", key, err)
		}
		deleted++
	}
	return deleted, nil
}
