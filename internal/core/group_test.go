package core

import (
	"context"
	"errors"
	"testing"

	"colonybot/internal/host/simhost"
	"colonybot/internal/infra/persistence/memory"
	"colonybot/pkg/domain"
)

func TestGroupPhaseOnlyMovesForward(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	g, err := loadGroup(ctx, "R1", store)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := g.Advance(ctx, domain.PhaseBootstrap); err != nil {
		t.Fatalf("advancing to the current phase should be a no-op: %v", err)
	}
	if err := g.Advance(ctx, domain.PhaseRunning); err != nil {
		t.Fatalf("advance: %v", err)
	}
	err = g.Advance(ctx, domain.PhaseBootstrap)
	var regression domain.ErrPhaseRegression
	if !errors.As(err, &regression) {
		t.Fatalf("expected regression error, got %v", err)
	}
	if regression.From != domain.PhaseRunning || regression.To != domain.PhaseBootstrap || regression.Group != "R1" {
		t.Fatalf("unexpected regression %+v", regression)
	}
	if g.Phase() != domain.PhaseRunning {
		t.Fatalf("phase changed by rejected transition: %s", g.Phase())
	}
	if err := g.Advance(ctx, domain.Phase("garbage")); err == nil {
		t.Fatalf("expected unknown phase error")
	}

	reloaded, err := loadGroup(ctx, "R1", store)
	if err != nil || reloaded.Phase() != domain.PhaseRunning {
		t.Fatalf("reloaded phase = %s, %v", reloaded.Phase(), err)
	}
}

type failingStore struct {
	*memory.Store
	failGet bool
	failSet bool
}

var errStoreDown = errors.New("store down")

func (s *failingStore) Get(ctx context.Context, key domain.Key) (string, bool, error) {
	if s.failGet {
		return "", false, errStoreDown
	}
	return s.Store.Get(ctx, key)
}

func (s *failingStore) Set(ctx context.Context, key domain.Key, value string) error {
	if s.failSet {
		return errStoreDown
	}
	return s.Store.Set(ctx, key, value)
}

func TestGroupAdvanceKeepsPhaseWhenPersistFails(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Store: memory.NewStore()}
	g, err := loadGroup(ctx, "R1", store)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	store.failSet = true
	if err := g.Advance(ctx, domain.PhaseRunning); !errors.Is(err, errStoreDown) {
		t.Fatalf("expected store error, got %v", err)
	}
	if g.Phase() != domain.PhaseBootstrap {
		t.Fatalf("phase advanced despite failed write")
	}
}

func TestRefreshUsesBootstrapWhenGroupStateUnavailable(t *testing.T) {
	ctx := context.Background()
	logger := &captureLogger{}
	w := simhost.New()
	w.AddStructure(simhost.StructureSpec{ID: "Spawn1", Pos: at(25, 25)})
	reg := NewRegistry(&failingStore{Store: memory.NewStore(), failGet: true}, WithLogger(logger))
	stats := reg.Refresh(ctx, w)
	if stats.GroupsCreated != 1 {
		t.Fatalf("expected group to be created, got %+v", stats)
	}
	g, _ := reg.Group("R1")
	if g.Phase() != domain.PhaseBootstrap {
		t.Fatalf("phase = %s", g.Phase())
	}
	if logger.count("error") != 1 {
		t.Fatalf("expected the load failure to be logged")
	}
}
