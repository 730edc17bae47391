package datastore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Factory creates and caches DataStores under one directory, one JSON
// file per store id. The cache guarantees at most one DataStore per id
// per process - required because each store serializes its own writes.
type Factory struct {
	dir string

	mu     sync.Mutex
	stores map[string]DataStore
}

// NewFactory creates a Factory rooted at dir.
func NewFactory(dir string) *Factory {
	return &Factory{dir: dir, stores: map[string]DataStore{}}
}

// Create opens the store for id, creating its file initialized to
// defaults when it does not exist. An existing file has missing top-level
// keys merged from defaults. Repeated calls return the cached instance.
func (f *Factory) Create(_ context.Context, id string, defaults map[string]any) (DataStore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if ds, ok := f.stores[id]; ok {
		return ds, nil
	}

	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory %s: %w", f.dir, err)
	}

	ds, err := open(f.file(id), defaults)
	if err != nil {
		return nil, err
	}
	f.stores[id] = ds
	return ds, nil
}

// Get returns the store for id, or nil when no file exists for it.
func (f *Factory) Get(ctx context.Context, id string) (DataStore, error) {
	f.mu.Lock()
	if ds, ok := f.stores[id]; ok {
		f.mu.Unlock()
		return ds, nil
	}
	f.mu.Unlock()

	if _, err := os.Stat(f.file(id)); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat %s: %w", f.file(id), err)
	}
	return f.Create(ctx, id, nil)
}

// Delete removes the store's file and evicts the cached instance.
func (f *Factory) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.stores, id)
	if err := os.Remove(f.file(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", f.file(id), err)
	}
	return nil
}

// List returns the ids of every store file present on disk.
func (f *Factory) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read data directory %s: %w", f.dir, err)
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		ids = append(ids, e.Name()[:len(e.Name())-len(".json")])
	}
	return ids, nil
}

func (f *Factory) file(id string) string {
	return filepath.Join(f.dir, id+".json")
}
