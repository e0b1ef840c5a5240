package blobkv

import (
	"context"
	"strings"
	"testing"

	"colonybot/internal/blob"
	"colonybot/pkg/domain"
)

func exercise(t *testing.T, store *Store) {
	t.Helper()
	ctx := context.Background()
	tasks := domain.UnitKey("Builder:1001", domain.FieldTasks)
	if _, ok, err := store.Get(ctx, tasks); err != nil || ok {
		t.Fatalf("get missing = %v %v", ok, err)
	}
	if err := store.Set(ctx, tasks, `[{"kind":"harvest","source_id":"s1"}]`); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set(ctx, tasks, `[]`); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if v, ok, err := store.Get(ctx, tasks); err != nil || !ok || v != `[]` {
		t.Fatalf("get = %q %v %v", v, ok, err)
	}
	_ = store.Set(ctx, domain.UnitKey("Aux:1", domain.FieldTasks), `[]`)
	_ = store.Set(ctx, domain.GroupKey("R1", domain.FieldPhase), "bootstrap")
	keys, err := store.Keys(ctx, domain.KindUnit)
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 2 || keys[0].ID != "Aux:1" || keys[1] != tasks {
		t.Fatalf("unexpected keys %+v", keys)
	}
	if ok, err := store.Exists(ctx, tasks); err != nil || !ok {
		t.Fatalf("exists = %v %v", ok, err)
	}
	if err := store.Delete(ctx, tasks); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, tasks); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
	if ok, _ := store.Exists(ctx, tasks); ok {
		t.Fatalf("expected key removed")
	}
	if err := store.Set(ctx, domain.Key{Kind: domain.KindUnit, ID: "../x", Field: "tasks"}, "x"); err == nil {
		t.Fatalf("expected invalid key rejection")
	}
}

func TestStoreOnMemoryBlobs(t *testing.T) {
	exercise(t, NewStore(blob.NewMemory(), ""))
}

func TestStoreOnS3Mock(t *testing.T) {
	exercise(t, NewStore(blob.NewMockS3ForTests(), "state"))
}

func TestStoreOnFilesystem(t *testing.T) {
	fs, err := blob.NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("filesystem: %v", err)
	}
	exercise(t, NewStore(fs, ""))
}

func TestKeysIgnoresForeignObjects(t *testing.T) {
	ctx := context.Background()
	blobs := blob.NewMemory()
	store := NewStore(blobs, "")
	_, _ = blobs.Put(ctx, "kv/units/stray", strings.NewReader("x"), blob.PutOptions{})
	_, _ = blobs.Put(ctx, "other/units/a/tasks", strings.NewReader("x"), blob.PutOptions{})
	_ = store.Set(ctx, domain.UnitKey("a", domain.FieldTasks), "[]")
	keys, err := store.Keys(ctx, domain.KindUnit)
	if err != nil || len(keys) != 1 || keys[0].ID != "a" {
		t.Fatalf("keys = %+v %v", keys, err)
	}
	if store.Blobs() != blobs {
		t.Fatalf("expected underlying store to be exposed")
	}
}
