package tasks

import (
	"errors"
	"testing"
)

func TestTaskListRoundTrip(t *testing.T) {
	lists := [][]Task{
		{},
		{&Harvest{}},
		{&Harvest{SourceID: "src1"}},
		{&Upgrade{ControllerID: "ctrl1"}, &Transfer{}},
		{&Transfer{TargetID: "Spawn1"}, &Harvest{SourceID: "src2"}, &Upgrade{}},
	}
	for _, list := range lists {
		first, err := EncodeList(list)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		decoded, err := DecodeList(first)
		if err != nil {
			t.Fatalf("decode %s: %v", first, err)
		}
		second, err := EncodeList(decoded)
		if err != nil {
			t.Fatalf("re-encode: %v", err)
		}
		if first != second {
			t.Fatalf("round trip mismatch:\n%s\n%s", first, second)
		}
	}
}

func TestEncodeOmitsUnresolvedTargets(t *testing.T) {
	raw, err := EncodeList([]Task{&Harvest{}, &Harvest{SourceID: "src1"}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := `[{"kind":"harvest"},{"kind":"harvest","source_id":"src1"}]`
	if raw != want {
		t.Fatalf("got %s, want %s", raw, want)
	}
}

func TestDecodeListEmptyInput(t *testing.T) {
	list, err := DecodeList("")
	if err != nil || len(list) != 0 {
		t.Fatalf("expected empty list, got %v %v", list, err)
	}
}

func TestDecodeListRejectsInvalidRecords(t *testing.T) {
	for _, raw := range []string{
		`{"kind":"harvest"}`,
		`[{"kind":"dance"}]`,
		`[{"kind":"harvest","controller_id":"c"}]`,
		`[{"source_id":"src1"}]`,
		`[{"kind":"harvest","source_id":""}]`,
		`[{"kind":"harvest"`,
		`null`,
	} {
		if _, err := DecodeList(raw); err == nil {
			t.Fatalf("expected %s to be rejected", raw)
		}
	}
}

func TestDecodeUnknownKind(t *testing.T) {
	if _, err := Decode([]byte(`{"kind":"dance"}`)); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
	if _, err := New("dance"); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind from New, got %v", err)
	}
}

func TestDecodeRecordPreservesVariant(t *testing.T) {
	task, err := Decode([]byte(`{"kind":"upgrade","controller_id":"ctrl9"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	up, ok := task.(*Upgrade)
	if !ok || up.ControllerID != "ctrl9" || up.Name() != "Upgrade" {
		t.Fatalf("unexpected task %#v", task)
	}
}
