// Package datastore implements the key-addressed JSON document store
// backing user pools. Each store owns exactly one human-readable JSON
// file; every mutation rewrites the whole document atomically via a
// sibling temp file and rename. Simplicity is the contract: no journal,
// no incremental updates.
package datastore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// DataStore is a single JSON document persisted to one file. Keys are
// ordered paths of object keys; a one-element path addresses a top-level
// key. All methods are safe for concurrent use: each store serializes its
// own reads and writes so no reader observes a partial document.
type DataStore interface {
	// Get returns a copy of the decoded JSON value at path, or nil when
	// absent. Callers may mutate the result freely.
	Get(ctx context.Context, path ...string) (any, error)

	// Set writes value at path (creating intermediate objects) and
	// persists the document.
	Set(ctx context.Context, value any, path ...string) error

	// Delete removes the value at path and persists the document.
	// Deleting an absent path is not an error.
	Delete(ctx context.Context, path ...string) error

	// Root returns the full document.
	Root(ctx context.Context) (map[string]any, error)
}

// GetAs decodes the value at path into T. The second return reports
// whether the path was present.
func GetAs[T any](ctx context.Context, ds DataStore, path ...string) (T, bool, error) {
	var out T
	v, err := ds.Get(ctx, path...)
	if err != nil || v == nil {
		return out, false, err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return out, false, fmt.Errorf("encode value at %v: %w", path, err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, false, fmt.Errorf("decode value at %v: %w", path, err)
	}
	return out, true, nil
}

// fileStore is the concrete file-backed DataStore.
type fileStore struct {
	mu   sync.Mutex
	file string
	doc  map[string]any
}

// open loads the document at file, creating it initialized to defaults
// when it does not exist. Missing top-level keys from defaults are merged
// into an existing document.
func open(file string, defaults map[string]any) (*fileStore, error) {
	s := &fileStore{file: file, doc: map[string]any{}}

	raw, err := os.ReadFile(file)
	switch {
	case err == nil:
		if err := json.Unmarshal(raw, &s.doc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
	case os.IsNotExist(err):
		// New document, starts from defaults below.
	default:
		return nil, fmt.Errorf("read %s: %w", file, err)
	}

	changed := false
	for k, v := range defaults {
		if _, ok := s.doc[k]; !ok {
			normalized, err := normalize(v)
			if err != nil {
				return nil, err
			}
			s.doc[k] = normalized
			changed = true
		}
	}

	if changed || os.IsNotExist(err) {
		if err := s.persist(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *fileStore) Get(_ context.Context, path ...string) (any, error) {
	if len(path) == 0 {
		return nil, fmt.Errorf("datastore: empty key path")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var cur any = s.doc
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, nil
		}
		cur, ok = obj[key]
		if !ok {
			return nil, nil
		}
	}
	// Copy before returning: an alias into the live document would be
	// mutated by a concurrent Set on the same nested maps.
	return normalize(cur)
}

func (s *fileStore) Set(_ context.Context, value any, path ...string) error {
	if len(path) == 0 {
		return fmt.Errorf("datastore: empty key path")
	}
	normalized, err := normalize(value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	obj := s.doc
	for _, key := range path[:len(path)-1] {
		next, ok := obj[key].(map[string]any)
		if !ok {
			next = map[string]any{}
			obj[key] = next
		}
		obj = next
	}
	obj[path[len(path)-1]] = normalized

	return s.persist()
}

func (s *fileStore) Delete(_ context.Context, path ...string) error {
	if len(path) == 0 {
		return fmt.Errorf("datastore: empty key path")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	obj := s.doc
	for _, key := range path[:len(path)-1] {
		next, ok := obj[key].(map[string]any)
		if !ok {
			return nil
		}
		obj = next
	}
	delete(obj, path[len(path)-1])

	return s.persist()
}

func (s *fileStore) Root(_ context.Context) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Deep copy through JSON so callers cannot mutate the live document.
	raw, err := json.Marshal(s.doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return out, nil
}

// persist writes the whole document to a sibling temp file and renames it
// over the target. Callers must hold s.mu.
func (s *fileStore) persist() error {
	raw, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	dir := filepath.Dir(s.file)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.file)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), s.file); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename %s: %w", tmp.Name(), err)
	}
	return nil
}

// normalize round-trips value through JSON so the in-memory document only
// ever holds plain maps, slices, and scalars.
func normalize(value any) (any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return out, nil
}
