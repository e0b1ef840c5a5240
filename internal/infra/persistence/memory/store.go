// Package memory provides an in-memory implementation of the persistent
// key/value store used for tests and ephemeral environments.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"colonybot/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

// Snapshot is a detached copy of every stored key and value, keyed by the
// string form of the key.
type Snapshot map[string]string

// Store keeps values in a map guarded by a mutex.
type Store struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{values: make(map[string]string)}
}

// Get returns the value stored under key.
func (s *Store) Get(_ context.Context, key domain.Key) (string, bool, error) {
	if err := key.Validate(); err != nil {
		return "", false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key.String()]
	return v, ok, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(_ context.Context, key domain.Key, value string) error {
	if err := key.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.values[key.String()] = value
	s.mu.Unlock()
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(_ context.Context, key domain.Key) error {
	if err := key.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.values, key.String())
	s.mu.Unlock()
	return nil
}

// Exists reports whether key holds a value.
func (s *Store) Exists(ctx context.Context, key domain.Key) (bool, error) {
	_, ok, err := s.Get(ctx, key)
	return ok, err
}

// Keys lists the keys of kind in lexical order.
func (s *Store) Keys(_ context.Context, kind domain.Kind) ([]domain.Key, error) {
	prefix := kind.Prefix()
	s.mu.RLock()
	raw := make([]string, 0, len(s.values))
	for k := range s.values {
		if strings.HasPrefix(k, prefix) {
			raw = append(raw, k)
		}
	}
	s.mu.RUnlock()
	sort.Strings(raw)
	keys := make([]domain.Key, 0, len(raw))
	for _, k := range raw {
		key, err := domain.ParseKey(k)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// ExportState returns a copy of the stored values.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(Snapshot, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// ImportState replaces the stored values with snapshot. Entries whose key does
// not parse are skipped and returned.
func (s *Store) ImportState(snapshot Snapshot) []string {
	values := make(map[string]string, len(snapshot))
	var rejected []string
	for k, v := range snapshot {
		if _, err := domain.ParseKey(k); err != nil {
			rejected = append(rejected, k)
			continue
		}
		values[k] = v
	}
	s.mu.Lock()
	s.values = values
	s.mu.Unlock()
	sort.Strings(rejected)
	return rejected
}
