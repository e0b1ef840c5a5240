package domain

import (
	"context"
	"fmt"
	"strings"
)

// Kind identifies the entity family a persisted value belongs to. Keys are
// hierarchical: kind first, then the entity ID, then the field name.
type Kind string

// Persistence buckets used by the tick core.
const (
	KindUnit      Kind = "units"
	KindStructure Kind = "structures"
	KindGroup     Kind = "groups"
)

// Fields stored per entity.
const (
	FieldTasks = "tasks"
	FieldPhase = "phase"
)

// Key addresses one persisted value.
type Key struct {
	Kind  Kind
	ID    string
	Field string
}

// UnitKey returns the key of a unit field.
func UnitKey(id, field string) Key { return Key{Kind: KindUnit, ID: id, Field: field} }

// GroupKey returns the key of a group field.
func GroupKey(region, field string) Key { return Key{Kind: KindGroup, ID: region, Field: field} }

// String renders the key as kind/id/field.
func (k Key) String() string {
	return string(k.Kind) + "/" + k.ID + "/" + k.Field
}

// Prefix returns the string prefix shared by every key of kind.
func (k Kind) Prefix() string { return string(k) + "/" }

// Validate reports whether the key can be stored by every backend.
func (k Key) Validate() error {
	if k.Kind == "" || k.ID == "" || k.Field == "" {
		return ErrInvalidKey{Key: k.String(), Reason: "kind, id and field are required"}
	}
	if strings.Contains(string(k.Kind), "/") || strings.Contains(k.Field, "/") {
		return ErrInvalidKey{Key: k.String(), Reason: "kind and field must not contain '/'"}
	}
	if strings.Contains(k.ID, "..") {
		return ErrInvalidKey{Key: k.String(), Reason: "id must not contain '..'"}
	}
	return nil
}

// ParseKey is the inverse of Key.String. The ID is everything between the
// first and the last separator.
func ParseKey(raw string) (Key, error) {
	first := strings.Index(raw, "/")
	last := strings.LastIndex(raw, "/")
	if first <= 0 || last <= first+1 || last == len(raw)-1 {
		return Key{}, ErrInvalidKey{Key: raw, Reason: "expected kind/id/field"}
	}
	k := Key{Kind: Kind(raw[:first]), ID: raw[first+1 : last], Field: raw[last+1:]}
	return k, k.Validate()
}

// ErrInvalidKey is returned for keys that cannot be addressed.
type ErrInvalidKey struct {
	Key    string
	Reason string
}

func (e ErrInvalidKey) Error() string {
	return fmt.Sprintf("invalid key %q: %s", e.Key, e.Reason)
}

// PersistentStore is the durable key/value layer that survives across ticks.
// Values are opaque serialized records. Each write commits on its own; there
// are no multi-key transactions.
type PersistentStore interface {
	Get(ctx context.Context, key Key) (string, bool, error)
	Set(ctx context.Context, key Key, value string) error
	Delete(ctx context.Context, key Key) error
	Exists(ctx context.Context, key Key) (bool, error)
	// Keys lists every stored key of the given kind in lexical order.
	Keys(ctx context.Context, kind Kind) ([]Key, error)
}
