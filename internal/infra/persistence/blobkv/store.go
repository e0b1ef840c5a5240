// Package blobkv stores persistent key/value records as objects in a blob
// store, one object per key under a common prefix.
package blobkv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"colonybot/internal/blob"
	"colonybot/pkg/domain"
)

var _ domain.PersistentStore = (*Store)(nil)

// DefaultPrefix is prepended to every object key.
const DefaultPrefix = "kv/"

const contentType = "text/plain; charset=utf-8"

// Store adapts a blob.Store to domain.PersistentStore.
type Store struct {
	blobs  blob.Store
	prefix string
}

// NewStore wraps blobs. An empty prefix selects DefaultPrefix.
func NewStore(blobs blob.Store, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Store{blobs: blobs, prefix: prefix}
}

// Blobs returns the underlying blob store.
func (s *Store) Blobs() blob.Store { return s.blobs }

func (s *Store) objectKey(key domain.Key) (string, error) {
	if err := key.Validate(); err != nil {
		return "", err
	}
	return s.prefix + key.String(), nil
}

func (s *Store) Get(ctx context.Context, key domain.Key) (string, bool, error) {
	name, err := s.objectKey(key)
	if err != nil {
		return "", false, err
	}
	_, rc, err := s.blobs.Get(ctx, name)
	if errors.Is(err, blob.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("blobkv get %s: %w", key, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return "", false, fmt.Errorf("blobkv read %s: %w", key, err)
	}
	return string(data), true, nil
}

func (s *Store) Set(ctx context.Context, key domain.Key, value string) error {
	name, err := s.objectKey(key)
	if err != nil {
		return err
	}
	if _, err := s.blobs.Put(ctx, name, strings.NewReader(value), blob.PutOptions{ContentType: contentType}); err != nil {
		return fmt.Errorf("blobkv set %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key domain.Key) error {
	name, err := s.objectKey(key)
	if err != nil {
		return err
	}
	if _, err := s.blobs.Delete(ctx, name); err != nil {
		return fmt.Errorf("blobkv delete %s: %w", key, err)
	}
	return nil
}

func (s *Store) Exists(ctx context.Context, key domain.Key) (bool, error) {
	name, err := s.objectKey(key)
	if err != nil {
		return false, err
	}
	_, err = s.blobs.Head(ctx, name)
	if errors.Is(err, blob.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("blobkv head %s: %w", key, err)
	}
	return true, nil
}

// Keys lists the keys of kind in lexical order. Objects under the prefix that
// do not parse as keys are ignored.
func (s *Store) Keys(ctx context.Context, kind domain.Kind) ([]domain.Key, error) {
	infos, err := s.blobs.List(ctx, s.prefix+kind.Prefix())
	if err != nil {
		return nil, fmt.Errorf("blobkv list %s: %w", kind, err)
	}
	keys := make([]domain.Key, 0, len(infos))
	for _, info := range infos {
		key, err := domain.ParseKey(strings.TrimPrefix(info.Key, s.prefix))
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}
