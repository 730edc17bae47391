package datastore_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aelexs/cognitolocal/internal/datastore"
)

func newStore(t *testing.T, defaults map[string]any) (datastore.DataStore, *datastore.Factory, string) {
	t.Helper()
	dir := t.TempDir()
	f := datastore.NewFactory(dir)
	ds, err := f.Create(context.Background(), "test", defaults)
	require.NoError(t, err)
	return ds, f, dir
}

func TestDataStoreGetSet(t *testing.T) {
	ctx := context.Background()

	t.Run("set then get a top-level key", func(t *testing.T) {
		ds, _, _ := newStore(t, nil)
		require.NoError(t, ds.Set(ctx, "value", "Key"))

		v, err := ds.Get(ctx, "Key")
		require.NoError(t, err)
		assert.Equal(t, "value", v)
	})

	t.Run("nested path creates intermediate objects", func(t *testing.T) {
		ds, _, _ := newStore(t, nil)
		require.NoError(t, ds.Set(ctx, map[string]any{"Username": "alice"}, "Users", "alice"))

		v, err := ds.Get(ctx, "Users", "alice", "Username")
		require.NoError(t, err)
		assert.Equal(t, "alice", v)
	})

	t.Run("absent path returns nil without error", func(t *testing.T) {
		ds, _, _ := newStore(t, nil)
		v, err := ds.Get(ctx, "Users", "nobody")
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("structs are normalized to plain JSON values", func(t *testing.T) {
		ds, _, _ := newStore(t, nil)
		type rec struct {
			Name string `json:"Name"`
		}
		require.NoError(t, ds.Set(ctx, rec{Name: "x"}, "Rec"))

		v, err := ds.Get(ctx, "Rec")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"Name": "x"}, v)
	})

	t.Run("GetAs decodes into a typed value", func(t *testing.T) {
		ds, _, _ := newStore(t, nil)
		require.NoError(t, ds.Set(ctx, map[string]any{"ClientName": "app"}, "Clients", "abc"))

		type client struct {
			ClientName string `json:"ClientName"`
		}
		c, ok, err := datastore.GetAs[client](ctx, ds, "Clients", "abc")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "app", c.ClientName)

		_, ok, err = datastore.GetAs[client](ctx, ds, "Clients", "missing")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestDataStoreDelete(t *testing.T) {
	ctx := context.Background()
	ds, _, _ := newStore(t, nil)

	require.NoError(t, ds.Set(ctx, "v", "Users", "alice"))
	require.NoError(t, ds.Delete(ctx, "Users", "alice"))

	v, err := ds.Get(ctx, "Users", "alice")
	require.NoError(t, err)
	assert.Nil(t, v)

	// Deleting an absent path is not an error.
	require.NoError(t, ds.Delete(ctx, "Users", "alice"))
}

func TestDataStoreDefaults(t *testing.T) {
	ctx := context.Background()

	t.Run("new file initialized to defaults", func(t *testing.T) {
		ds, _, _ := newStore(t, map[string]any{"Users": map[string]any{}, "Options": map[string]any{"Id": "local"}})
		v, err := ds.Get(ctx, "Options", "Id")
		require.NoError(t, err)
		assert.Equal(t, "local", v)
	})

	t.Run("existing file merges only missing top-level keys", func(t *testing.T) {
		dir := t.TempDir()
		f := datastore.NewFactory(dir)
		ds, err := f.Create(ctx, "pool", map[string]any{"Options": map[string]any{"Id": "pool"}})
		require.NoError(t, err)
		require.NoError(t, ds.Set(ctx, "CONFIRMED", "Users", "alice", "UserStatus"))

		// Reopen with a second factory against the same directory.
		f2 := datastore.NewFactory(dir)
		ds2, err := f2.Create(ctx, "pool", map[string]any{
			"Options": map[string]any{"Id": "overwritten"},
			"Groups":  map[string]any{},
		})
		require.NoError(t, err)

		v, err := ds2.Get(ctx, "Options", "Id")
		require.NoError(t, err)
		assert.Equal(t, "pool", v, "existing top-level key must not be overwritten")

		g, err := ds2.Get(ctx, "Groups")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{}, g, "missing top-level key merged from defaults")

		u, err := ds2.Get(ctx, "Users", "alice", "UserStatus")
		require.NoError(t, err)
		assert.Equal(t, "CONFIRMED", u)
	})
}

func TestDataStoreRoundTrip(t *testing.T) {
	// A persisted document reloaded by a new factory yields equal leaves.
	ctx := context.Background()
	dir := t.TempDir()

	ds, err := datastore.NewFactory(dir).Create(ctx, "rt", nil)
	require.NoError(t, err)
	require.NoError(t, ds.Set(ctx, map[string]any{"a": "1", "n": float64(2), "b": true}, "Leaves"))

	ds2, err := datastore.NewFactory(dir).Get(ctx, "rt")
	require.NoError(t, err)
	require.NotNil(t, ds2)

	root1, err := ds.Root(ctx)
	require.NoError(t, err)
	root2, err := ds2.Root(ctx)
	require.NoError(t, err)
	assert.Equal(t, root1, root2)
}

func TestDataStoreFileIsHumanReadableJSON(t *testing.T) {
	ctx := context.Background()
	ds, _, dir := newStore(t, nil)
	require.NoError(t, ds.Set(ctx, "alice", "Users", "alice", "Username"))

	raw, err := os.ReadFile(filepath.Join(dir, "test.json"))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Contains(t, string(raw), "\n", "document should be indented")
}

func TestDataStoreConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	ds, _, _ := newStore(t, nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := string(rune('a' + n))
			assert.NoError(t, ds.Set(ctx, n, "Counters", key))
		}(i)
	}
	wg.Wait()

	root, err := ds.Root(ctx)
	require.NoError(t, err)
	counters, ok := root["Counters"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, counters, 16)
}

func TestDataStoreConcurrentReadersAndWriters(t *testing.T) {
	ctx := context.Background()
	ds, _, _ := newStore(t, map[string]any{"Users": map[string]any{}})

	type user struct {
		Username string `json:"Username"`
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		key := string(rune('a' + i))
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				assert.NoError(t, ds.Set(ctx, user{Username: key}, "Users", key))
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				users, _, err := datastore.GetAs[map[string]user](ctx, ds, "Users")
				assert.NoError(t, err)
				for k, u := range users {
					assert.Equal(t, k, u.Username)
				}
			}
		}()
	}
	wg.Wait()
}

func TestFactory(t *testing.T) {
	ctx := context.Background()

	t.Run("Get returns nil when no file exists", func(t *testing.T) {
		f := datastore.NewFactory(t.TempDir())
		ds, err := f.Get(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, ds)
	})

	t.Run("Create is cached per id", func(t *testing.T) {
		f := datastore.NewFactory(t.TempDir())
		a, err := f.Create(ctx, "x", nil)
		require.NoError(t, err)
		b, err := f.Create(ctx, "x", nil)
		require.NoError(t, err)
		assert.Same(t, a, b)
	})

	t.Run("Delete removes file and evicts cache", func(t *testing.T) {
		dir := t.TempDir()
		f := datastore.NewFactory(dir)
		_, err := f.Create(ctx, "x", nil)
		require.NoError(t, err)

		require.NoError(t, f.Delete(ctx, "x"))
		_, statErr := os.Stat(filepath.Join(dir, "x.json"))
		assert.True(t, os.IsNotExist(statErr))

		ds, err := f.Get(ctx, "x")
		require.NoError(t, err)
		assert.Nil(t, ds)
	})

	t.Run("List reports store ids on disk", func(t *testing.T) {
		f := datastore.NewFactory(t.TempDir())
		_, err := f.Create(ctx, "clients", nil)
		require.NoError(t, err)
		_, err = f.Create(ctx, "local_abc", nil)
		require.NoError(t, err)

		ids, err := f.List(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"clients", "local_abc"}, ids)
	})
}
