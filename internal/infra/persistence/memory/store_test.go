package memory

import (
	"context"
	"testing"

	"colonybot/pkg/domain"
)

func TestStoreCRUD(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	key := domain.UnitKey("Builder:1", domain.FieldTasks)

	if _, ok, err := store.Get(ctx, key); err != nil || ok {
		t.Fatalf("expected missing key, ok=%v err=%v", ok, err)
	}
	if err := store.Set(ctx, key, `[]`); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, ok, err := store.Get(ctx, key); err != nil || !ok || v != `[]` {
		t.Fatalf("get = %q %v %v", v, ok, err)
	}
	if ok, err := store.Exists(ctx, key); err != nil || !ok {
		t.Fatalf("exists = %v %v", ok, err)
	}
	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("second delete should be a no-op: %v", err)
	}
	if ok, _ := store.Exists(ctx, key); ok {
		t.Fatalf("key still present after delete")
	}
}

func TestStoreKeysFiltersByKind(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	_ = store.Set(ctx, domain.UnitKey("b", domain.FieldTasks), "1")
	_ = store.Set(ctx, domain.UnitKey("a", domain.FieldTasks), "2")
	_ = store.Set(ctx, domain.GroupKey("R1", domain.FieldPhase), "bootstrap")

	keys, err := store.Keys(ctx, domain.KindUnit)
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 2 || keys[0].ID != "a" || keys[1].ID != "b" {
		t.Fatalf("unexpected keys %+v", keys)
	}
}

func TestStoreRejectsInvalidKeys(t *testing.T) {
	store := NewStore()
	if err := store.Set(context.Background(), domain.Key{Kind: domain.KindUnit}, "x"); err == nil {
		t.Fatalf("expected invalid key error")
	}
}

func TestStoreExportImport(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	_ = store.Set(ctx, domain.GroupKey("R1", domain.FieldPhase), "running")
	snap := store.ExportState()

	other := NewStore()
	rejected := other.ImportState(Snapshot{"garbage": "x", "groups/R1/phase": snap["groups/R1/phase"]})
	if len(rejected) != 1 || rejected[0] != "garbage" {
		t.Fatalf("unexpected rejected keys %v", rejected)
	}
	if v, ok, _ := other.Get(ctx, domain.GroupKey("R1", domain.FieldPhase)); !ok || v != "running" {
		t.Fatalf("imported value = %q %v", v, ok)
	}
}
