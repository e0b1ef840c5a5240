package testutil

import (
	"context"
	"database/sql/driver"
	"testing"
)

func TestStubDBUpsertsAndDeletes(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB()

	if err := conn.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	upsert := "INSERT INTO kv(key,value) VALUES($1,$2) ON CONFLICT(key) DO UPDATE SET value=EXCLUDED.value"
	for _, v := range []string{"bootstrap", "running"} {
		if _, err := conn.ExecContext(ctx, upsert, []driver.NamedValue{{Value: "groups/R1/phase"}, {Value: v}}); err != nil {
			t.Fatalf("ExecContext upsert: %v", err)
		}
	}
	if len(conn.Tables["kv"]) != 1 {
		t.Fatalf("expected upsert to replace the row, got %v", conn.Tables["kv"])
	}
	if v, ok := conn.Lookup("kv", "key", "groups/R1/phase", "value"); !ok || v != "running" {
		t.Fatalf("lookup = %v %v", v, ok)
	}

	if _, err := conn.ExecContext(ctx, "DELETE FROM kv WHERE key=$1", []driver.NamedValue{{Value: "groups/R1/phase"}}); err != nil {
		t.Fatalf("ExecContext delete: %v", err)
	}
	if len(conn.Tables["kv"]) != 0 {
		t.Fatalf("expected row deleted, got %v", conn.Tables["kv"])
	}
}

func TestStubDBQueriesSeededRows(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB()
	conn.Seed("kv", map[string]any{"key": "units/a/tasks", "value": "[]"})

	rows, err := conn.QueryContext(ctx, "SELECT key, value FROM kv", nil)
	if err != nil {
		t.Fatalf("QueryContext: %v", err)
	}
	defer func() { _ = rows.Close() }()
	dest := make([]driver.Value, 2)
	if err := rows.Next(dest); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if dest[0] != "units/a/tasks" || dest[1] != "[]" {
		t.Fatalf("unexpected row values: %v", dest)
	}
}

func TestConflictColumnFallsBack(t *testing.T) {
	if got := conflictColumn("INSERT INTO t(a,b) VALUES($1,$2)", "a"); got != "a" {
		t.Fatalf("fallback = %q", got)
	}
	if got := conflictColumn("INSERT INTO t(a,b) VALUES($1,$2) ON CONFLICT (b) DO NOTHING", "a"); got != "b" {
		t.Fatalf("conflict column = %q", got)
	}
}
