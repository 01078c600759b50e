package disk

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jobala/tuplestore/types"
)

func TestDiskManager(t *testing.T) {
	t.Run("block path follows the table identifier", func(t *testing.T) {
		root := t.TempDir()
		dm := NewManager(root, types.MustIdentifier("db", "users"))

		assert.Equal(t, filepath.Join(root, "db", "users", "block_3.txt"), dm.BlockPath(3))
	})

	t.Run("creating a block creates an empty file and its directories", func(t *testing.T) {
		dm := NewManager(t.TempDir(), types.MustIdentifier("db", "users"))

		assert.NoError(t, dm.createBlock(0))

		fileInfo, err := os.Stat(dm.BlockPath(0))
		assert.NoError(t, err)
		assert.Equal(t, int64(0), fileInfo.Size())
	})

	t.Run("creating an existing block keeps its content", func(t *testing.T) {
		dm := NewManager(t.TempDir(), types.MustIdentifier("users"))

		assert.NoError(t, dm.writeBlock(1, []byte("1:1\n")))
		assert.NoError(t, dm.createBlock(1))

		data, err := dm.readBlock(1)
		assert.NoError(t, err)
		assert.Equal(t, "1:1\n", string(data))
	})

	t.Run("test reading and writing a block", func(t *testing.T) {
		dm := NewManager(t.TempDir(), types.MustIdentifier("users"))

		assert.NoError(t, dm.writeBlock(1, []byte("hello world, this is long")))
		assert.NoError(t, dm.writeBlock(1, []byte("short")))

		res, err := dm.readBlock(1)
		assert.NoError(t, err)
		assert.Equal(t, "short", string(res))
	})

	t.Run("reading a missing block fails", func(t *testing.T) {
		dm := NewManager(t.TempDir(), types.MustIdentifier("users"))

		_, err := dm.readBlock(7)
		assert.Error(t, err)
	})

	t.Run("meta is absent until written", func(t *testing.T) {
		dm := NewManager(t.TempDir(), types.MustIdentifier("users"))

		_, ok, err := dm.ReadMeta()
		assert.NoError(t, err)
		assert.False(t, ok)

		assert.NoError(t, dm.WriteMeta([]byte{1, 2, 3}))

		data, ok, err := dm.ReadMeta()
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []byte{1, 2, 3}, data)
	})

	t.Run("rename moves every block", func(t *testing.T) {
		root := t.TempDir()
		dm := NewManager(root, types.MustIdentifier("db", "users"))
		assert.NoError(t, dm.writeBlock(0, []byte("a")))
		assert.NoError(t, dm.writeBlock(1, []byte("b")))

		assert.NoError(t, dm.Rename(types.MustIdentifier("archive", "old_users")))
		assert.Equal(t, filepath.Join(root, "archive", "old_users", "block_0.txt"), dm.BlockPath(0))

		res, err := dm.readBlock(1)
		assert.NoError(t, err)
		assert.Equal(t, "b", string(res))

		_, err = os.Stat(filepath.Join(root, "db", "users"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("rename refuses to overwrite another table", func(t *testing.T) {
		root := t.TempDir()
		other := NewManager(root, types.MustIdentifier("orders"))
		assert.NoError(t, other.createBlock(0))

		dm := NewManager(root, types.MustIdentifier("users"))
		assert.NoError(t, dm.createBlock(0))

		assert.Error(t, dm.Rename(types.MustIdentifier("orders")))
		assert.True(t, dm.Table().Equal(types.MustIdentifier("users")))
	})

	t.Run("drop removes the table directory", func(t *testing.T) {
		dm := NewManager(t.TempDir(), types.MustIdentifier("db", "users"))
		assert.NoError(t, dm.createBlock(0))

		assert.NoError(t, dm.Drop())
		assert.False(t, dm.BlockExists(0))
	})
}
