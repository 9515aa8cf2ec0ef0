package checkpoint_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/randalmurphal/researchflow/pkg/flowgraph/checkpoint"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeFactory creates a store instance for testing.
type storeFactory func(t *testing.T) checkpoint.Store

// storeContractTest runs contract tests against any Store implementation.
func storeContractTest(t *testing.T, name string, factory storeFactory) {
	ctx := context.Background()

	t.Run(name+"/Save_and_Load", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		data := []byte(`{"key": "value"}`)
		require.NoError(t, store.Save(ctx, "sess-1", data))

		loaded, err := store.Load(ctx, "sess-1")
		require.NoError(t, err)
		assert.Equal(t, data, loaded)
	})

	t.Run(name+"/Load_NotFound", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		_, err := store.Load(ctx, "sess-nonexistent")
		assert.ErrorIs(t, err, checkpoint.ErrNotFound)
	})

	t.Run(name+"/Load_ReturnsLatest", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		require.NoError(t, store.Save(ctx, "sess-1", []byte("first")))
		require.NoError(t, store.Save(ctx, "sess-1", []byte("second")))

		loaded, err := store.Load(ctx, "sess-1")
		require.NoError(t, err)
		assert.Equal(t, []byte("second"), loaded)
	})

	t.Run(name+"/List_Empty", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		infos, err := store.List(ctx, "sess-nonexistent")
		require.NoError(t, err)
		assert.Empty(t, infos)
	})

	t.Run(name+"/List_Ordered", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		require.NoError(t, store.Save(ctx, "sess-1", []byte("a")))
		require.NoError(t, store.Save(ctx, "sess-1", []byte("bb")))
		require.NoError(t, store.Save(ctx, "sess-1", []byte("ccc")))

		infos, err := store.List(ctx, "sess-1")
		require.NoError(t, err)
		require.Len(t, infos, 3)

		for i, info := range infos {
			assert.Equal(t, i+1, info.Sequence)
			assert.Equal(t, int64(i+1), info.Size)
			assert.Equal(t, "sess-1", info.SessionID)
			assert.False(t, info.Timestamp.IsZero())
		}
		assert.False(t, infos[2].Timestamp.Before(infos[0].Timestamp))
	})

	t.Run(name+"/Delete", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		require.NoError(t, store.Save(ctx, "sess-1", []byte("a")))
		require.NoError(t, store.Save(ctx, "sess-1", []byte("b")))
		require.NoError(t, store.Save(ctx, "sess-2", []byte("other")))

		require.NoError(t, store.Delete(ctx, "sess-1"))

		_, err := store.Load(ctx, "sess-1")
		assert.ErrorIs(t, err, checkpoint.ErrNotFound)

		infos, err := store.List(ctx, "sess-2")
		require.NoError(t, err)
		assert.Len(t, infos, 1)

		// Should not error when deleting nonexistent
		assert.NoError(t, store.Delete(ctx, "sess-nonexistent"))
	})

	t.Run(name+"/Sequence_RestartsAfterDelete", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		require.NoError(t, store.Save(ctx, "sess-1", []byte("a")))
		require.NoError(t, store.Delete(ctx, "sess-1"))
		require.NoError(t, store.Save(ctx, "sess-1", []byte("b")))

		infos, err := store.List(ctx, "sess-1")
		require.NoError(t, err)
		require.Len(t, infos, 1)
		assert.Equal(t, 1, infos[0].Sequence)
	})

	t.Run(name+"/DataCopy", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		original := []byte("original data")
		require.NoError(t, store.Save(ctx, "sess-1", original))

		// Modify original slice after save
		original[0] = 'X'

		loaded, err := store.Load(ctx, "sess-1")
		require.NoError(t, err)
		assert.Equal(t, []byte("original data"), loaded)
	})

	t.Run(name+"/ConcurrentSessions", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				id := fmt.Sprintf("sess-%d", i)
				for j := 0; j < 3; j++ {
					assert.NoError(t, store.Save(ctx, id, []byte(fmt.Sprintf("%d-%d", i, j))))
				}
			}(i)
		}
		wg.Wait()

		for i := 0; i < 8; i++ {
			id := fmt.Sprintf("sess-%d", i)
			infos, err := store.List(ctx, id)
			require.NoError(t, err)
			assert.Len(t, infos, 3)

			latest, err := store.Load(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, fmt.Sprintf("%d-2", i), string(latest))
		}
	})

	t.Run(name+"/Close_ThenError", func(t *testing.T) {
		store := factory(t)
		require.NoError(t, store.Close())

		err := store.Save(ctx, "sess-1", []byte("data"))
		assert.ErrorIs(t, err, checkpoint.ErrStoreClosed)

		_, err = store.Load(ctx, "sess-1")
		assert.ErrorIs(t, err, checkpoint.ErrStoreClosed)

		_, err = store.List(ctx, "sess-1")
		assert.ErrorIs(t, err, checkpoint.ErrStoreClosed)

		assert.ErrorIs(t, store.Delete(ctx, "sess-1"), checkpoint.ErrStoreClosed)
	})
}

// TestMemoryStore runs contract tests against MemoryStore.
func TestMemoryStore(t *testing.T) {
	storeContractTest(t, "MemoryStore", func(t *testing.T) checkpoint.Store {
		return checkpoint.NewMemoryStore()
	})
}

// TestSQLiteStore runs contract tests against SQLiteStore.
func TestSQLiteStore(t *testing.T) {
	storeContractTest(t, "SQLiteStore", func(t *testing.T) checkpoint.Store {
		store, err := checkpoint.NewSQLiteStore(":memory:")
		require.NoError(t, err)
		return store
	})
}

// TestRedisStore runs contract tests against RedisStore backed by miniredis.
func TestRedisStore(t *testing.T) {
	storeContractTest(t, "RedisStore", func(t *testing.T) checkpoint.Store {
		mr := miniredis.RunT(t)
		return checkpoint.NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	})
}

// TestPostgresStore runs contract tests against a real PostgreSQL server.
// Set RESEARCHFLOW_TEST_POSTGRES_DSN to enable.
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("RESEARCHFLOW_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("RESEARCHFLOW_TEST_POSTGRES_DSN not set")
	}

	storeContractTest(t, "PostgresStore", func(t *testing.T) checkpoint.Store {
		store, err := checkpoint.NewPostgresStore(context.Background(), dsn)
		require.NoError(t, err)
		// Tests reuse session ids; start each from an empty table.
		for i := 0; i < 8; i++ {
			require.NoError(t, store.Delete(context.Background(), fmt.Sprintf("sess-%d", i)))
		}
		require.NoError(t, store.Delete(context.Background(), "sess-1"))
		require.NoError(t, store.Delete(context.Background(), "sess-2"))
		return store
	})
}
