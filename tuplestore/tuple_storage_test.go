package tuplestore

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/jobala/tuplestore/types"
	"github.com/jobala/tuplestore/util"
)

var users = types.MustIdentifier("shop", "public", "users")

func TestTupleStore(t *testing.T) {
	t.Run("inserted tuples can be found by primary key", func(t *testing.T) {
		ts := newStore(t, testConfig(t, 4))

		for i := range 50 {
			prev, replaced, err := ts.Insert(user(i, "alice"))
			require.NoError(t, err)
			assert.False(t, replaced)
			assert.Nil(t, prev)
		}
		assert.Equal(t, 50, ts.Len())

		for i := range 50 {
			tuple, err := ts.FindByPrimary(ts.PrimaryKey().Key(types.IntValue(i)))
			require.NoError(t, err)
			assert.True(t, user(i, "alice").Equal(tuple))
		}

		for _, p := range ts.Stats().Pages {
			assert.LessOrEqual(t, p.Len, 4)
		}
	})

	t.Run("insert replaces the tuple with the same key", func(t *testing.T) {
		ts := newStore(t, testConfig(t, 4))

		_, _, err := ts.Insert(user(1, "alice"))
		require.NoError(t, err)

		prev, replaced, err := ts.Insert(user(1, "bob"))
		require.NoError(t, err)
		assert.True(t, replaced)
		assert.True(t, user(1, "alice").Equal(prev))
		assert.Equal(t, 1, ts.Len())

		tuple, err := ts.FindByPrimary(ts.PrimaryKey().Key(types.IntValue(1)))
		require.NoError(t, err)
		assert.True(t, user(1, "bob").Equal(tuple))
	})

	t.Run("insert unique rejects an existing key", func(t *testing.T) {
		ts := newStore(t, testConfig(t, 4))

		require.NoError(t, ts.InsertUnique(user(1, "alice")))
		err := ts.InsertUnique(user(1, "bob"))
		assert.ErrorIs(t, err, util.ErrPrimaryKeyPresent)
		assert.Equal(t, 1, ts.Len())

		tuple, err := ts.FindByPrimary(ts.PrimaryKey().Key(types.IntValue(1)))
		require.NoError(t, err)
		assert.True(t, user(1, "alice").Equal(tuple))
	})

	t.Run("tuples of the wrong type are rejected", func(t *testing.T) {
		ts := newStore(t, testConfig(t, 4))

		_, _, err := ts.Insert(types.NewTuple(types.StringValue("1"), types.StringValue("alice"), types.BoolValue(true)))
		var typesErr *util.IncorrectTypesError
		require.True(t, errors.As(err, &typesErr))
		assert.Equal(t, []int{0}, typesErr.Positions)

		_, _, err = ts.Insert(types.NewTuple(types.IntValue(1)))
		require.True(t, errors.As(err, &typesErr))
		assert.Equal(t, []int{1, 2}, typesErr.Positions)

		_, err = ts.FindByPrimary(ts.PrimaryKey().Key(types.StringValue("1")))
		assert.True(t, errors.As(err, &typesErr))

		assert.True(t, ts.IsEmpty())
	})

	t.Run("remove", func(t *testing.T) {
		ts := newStore(t, testConfig(t, 2))

		for i := range 10 {
			_, _, err := ts.Insert(user(i, "alice"))
			require.NoError(t, err)
		}

		removed, err := ts.Remove(ts.PrimaryKey().Key(types.IntValue(4)))
		require.NoError(t, err)
		assert.True(t, user(4, "alice").Equal(removed))
		assert.Equal(t, 9, ts.Len())

		_, err = ts.Remove(ts.PrimaryKey().Key(types.IntValue(4)))
		assert.ErrorIs(t, err, util.ErrNotFound)
		assert.Equal(t, 9, ts.Len())

		_, err = ts.FindByPrimary(ts.PrimaryKey().Key(types.IntValue(4)))
		assert.ErrorIs(t, err, util.ErrNotFound)
	})

	t.Run("failed insert leaves count and pages unchanged", func(t *testing.T) {
		cfg := testConfig(t, 1)
		ts := newStore(t, cfg)

		_, _, err := ts.Insert(user(1, "alice"))
		require.NoError(t, err)

		blocker := filepath.Join(cfg.Root, "shop", "public", "users", "block_1.txt")
		require.NoError(t, os.Mkdir(blocker, 0o755))

		_, _, err = ts.Insert(user(2, "bob"))
		assert.Error(t, err)
		assert.Error(t, ts.InsertUnique(user(3, "carol")))

		_, err = ts.FindByPrimary(ts.PrimaryKey().Key(types.IntValue(2)))
		assert.ErrorIs(t, err, util.ErrNotFound)
		assert.Equal(t, 1, ts.Len())

		scanned := 0
		for _, err := range ts.Tuples() {
			require.NoError(t, err)
			scanned++
		}
		assert.Equal(t, 1, scanned)
		assert.Equal(t, ts.Len(), ts.Stats().Tuples)
		for _, p := range ts.Stats().Pages {
			assert.LessOrEqual(t, p.Len, 1)
		}

		require.NoError(t, os.Remove(blocker))
		require.NoError(t, ts.InsertUnique(user(2, "bob")))
		assert.Equal(t, 2, ts.Len())
		assert.Equal(t, ts.Len(), ts.Stats().Tuples)
	})

	t.Run("keys are hashed with the table's own definition", func(t *testing.T) {
		ts := newStore(t, testConfig(t, 4))

		_, _, err := ts.Insert(user(1, "alice"))
		require.NoError(t, err)

		other, err := types.NewPrimaryKeyDefinition(2)
		require.NoError(t, err)
		key := other.Key(types.IntValue(1))

		tuple, err := ts.FindByPrimary(key)
		require.NoError(t, err)
		assert.True(t, user(1, "alice").Equal(tuple))

		removed, err := ts.Remove(key)
		require.NoError(t, err)
		assert.True(t, user(1, "alice").Equal(removed))
		assert.True(t, ts.IsEmpty())
	})

	t.Run("full scan yields every tuple once", func(t *testing.T) {
		ts := newStore(t, testConfig(t, 3))

		want := map[string]bool{}
		for i := range 40 {
			tuple := user(i, fmt.Sprintf("user-%d", i))
			_, _, err := ts.Insert(tuple)
			require.NoError(t, err)
			want[tuple.String()] = true
		}

		got := map[string]bool{}
		it := ts.AllTuples()
		for {
			tuple, ok, err := it.Next()
			require.NoError(t, err)
			if !ok {
				break
			}
			assert.False(t, got[tuple.String()])
			got[tuple.String()] = true
		}
		assert.Equal(t, want, got)

		again := map[string]bool{}
		for tuple, err := range ts.Tuples() {
			require.NoError(t, err)
			again[tuple.String()] = true
		}
		assert.Equal(t, want, again)
	})

	t.Run("concurrent inserts are not lost", func(t *testing.T) {
		ts := newStore(t, testConfig(t, 8))

		const workers, perWorker = 8, 50
		var g errgroup.Group
		for w := range workers {
			g.Go(func() error {
				for i := range perWorker {
					if _, _, err := ts.Insert(user(w*perWorker+i, "bob")); err != nil {
						return err
					}
				}
				return nil
			})
		}
		require.NoError(t, g.Wait())

		assert.Equal(t, workers*perWorker, ts.Len())
		for n := range workers * perWorker {
			_, err := ts.FindByPrimary(ts.PrimaryKey().Key(types.IntValue(n)))
			assert.NoError(t, err)
		}
	})

	t.Run("reopening restores tuples and count", func(t *testing.T) {
		cfg := testConfig(t, 2)
		ts := newStore(t, cfg)

		for i := range 20 {
			_, _, err := ts.Insert(user(i, "carol"))
			require.NoError(t, err)
		}
		require.NoError(t, ts.Close())

		_, _, err := ts.Insert(user(100, "carol"))
		assert.ErrorIs(t, err, util.ErrClosed)

		reopened := newStore(t, cfg)
		assert.Equal(t, 20, reopened.Len())
		for i := range 20 {
			tuple, err := reopened.FindByPrimary(reopened.PrimaryKey().Key(types.IntValue(i)))
			require.NoError(t, err)
			assert.True(t, user(i, "carol").Equal(tuple))
		}
	})

	t.Run("block files follow the table identifier", func(t *testing.T) {
		cfg := testConfig(t, 4)
		ts := newStore(t, cfg)

		_, _, err := ts.Insert(user(1, "dave"))
		require.NoError(t, err)
		assert.FileExists(t, filepath.Join(cfg.Root, "shop", "public", "users", "block_0.txt"))

		renamed := types.MustIdentifier("shop", "public", "customers")
		require.NoError(t, ts.Rename(renamed))
		assert.True(t, renamed.Equal(ts.Identifier()))
		assert.NoDirExists(t, filepath.Join(cfg.Root, "shop", "public", "users"))

		data, err := os.ReadFile(filepath.Join(cfg.Root, "shop", "public", "customers", "block_0.txt"))
		require.NoError(t, err)
		assert.Contains(t, string(data), `1,"dave",true`)

		tuple, err := ts.FindByPrimary(ts.PrimaryKey().Key(types.IntValue(1)))
		require.NoError(t, err)
		assert.True(t, user(1, "dave").Equal(tuple))
	})

	t.Run("dropped store is unusable", func(t *testing.T) {
		cfg := testConfig(t, 4)
		ts := newStore(t, cfg)

		_, _, err := ts.Insert(user(1, "erin"))
		require.NoError(t, err)
		require.NoError(t, ts.Drop())

		assert.NoDirExists(t, filepath.Join(cfg.Root, "shop", "public", "users"))
		_, err = ts.FindByPrimary(ts.PrimaryKey().Key(types.IntValue(1)))
		assert.ErrorIs(t, err, util.ErrClosed)
		assert.True(t, ts.IsEmpty())
	})

	t.Run("invalid primary key definition", func(t *testing.T) {
		pk, err := types.NewPrimaryKeyDefinition(5)
		require.NoError(t, err)

		_, err = Open(testConfig(t, 4), users, userSchema(t), pk)
		assert.Error(t, err)
	})
}

func newStore(t *testing.T, cfg Config) *TupleStore {
	t.Helper()

	pk, err := types.NewPrimaryKeyDefinition(0)
	require.NoError(t, err)

	ts, err := Open(cfg, users, userSchema(t), pk)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ts.Close() })

	return ts
}

func testConfig(t *testing.T, capacity int) Config {
	cfg := DefaultConfig()
	cfg.Root = t.TempDir()
	cfg.BucketCapacity = capacity
	cfg.DiskWorkers = 2
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return cfg
}

func userSchema(t *testing.T) types.Schema {
	schema, err := types.NewSchema(
		types.Attribute{Name: "id", Type: types.Integer},
		types.Attribute{Name: "name", Type: types.String},
		types.Attribute{Name: "active", Type: types.Boolean},
	)
	require.NoError(t, err)
	return schema
}

func user(id int, name string) types.Tuple {
	return types.NewTuple(types.IntValue(id), types.StringValue(name), types.BoolValue(true))
}
