package txn

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wvankleunen/jsondb/kvengine/memkv"
	"github.com/wvankleunen/jsondb/node"
	"github.com/wvankleunen/jsondb/valuekey"
)

func TestBeginBootstrapsRoot(t *testing.T) {
	store := memkv.New()
	tx, err := Begin(store)
	require.NoError(t, err)

	root, err := tx.Root()
	require.NoError(t, err)
	require.Equal(t, node.Object, root.Kind())
	require.NoError(t, tx.Commit())
}

func TestGenerateKeyNeverReused(t *testing.T) {
	store := memkv.New()
	tx, err := Begin(store)
	require.NoError(t, err)

	a := tx.GenerateKey()
	b := tx.GenerateKey()
	require.NotEqual(t, a, b)
	require.NoError(t, tx.Commit())

	tx2, err := Begin(store)
	require.NoError(t, err)
	c := tx2.GenerateKey()
	require.True(t, c > b)
	require.NoError(t, tx2.Commit())
}

func TestAbortDiscardsAllocator(t *testing.T) {
	store := memkv.New()
	tx, err := Begin(store)
	require.NoError(t, err)
	_ = tx.GenerateKey()
	_ = tx.GenerateKey()
	require.NoError(t, tx.Abort())

	tx2, err := Begin(store)
	require.NoError(t, err)
	require.Equal(t, valuekey.FirstUserKey, tx2.GenerateKey())
	require.NoError(t, tx2.Commit())
}

func TestStoreRetrieveDelete(t *testing.T) {
	store := memkv.New()
	tx, err := Begin(store)
	require.NoError(t, err)

	key := tx.GenerateKey()
	require.NoError(t, tx.Store(node.NewString(key, "hello")))

	got, found, err := tx.Retrieve(key)
	require.NoError(t, err)
	require.True(t, found)
	s, err := got.Str()
	require.NoError(t, err)
	require.Equal(t, "hello", s)

	require.NoError(t, tx.Delete(key))
	_, found, err = tx.Retrieve(key)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, tx.Commit())
}

func TestDeleteSubtreeRecurses(t *testing.T) {
	store := memkv.New()
	tx, err := Begin(store)
	require.NoError(t, err)

	leaf := tx.GenerateKey()
	require.NoError(t, tx.Store(node.NewInteger(leaf, 1)))
	arr := tx.GenerateKey()
	require.NoError(t, tx.Store(node.NewArray(arr, []valuekey.Key{leaf})))

	require.NoError(t, tx.DeleteSubtree(arr))

	_, found, err := tx.Retrieve(arr)
	require.NoError(t, err)
	require.False(t, found)
	_, found, err = tx.Retrieve(leaf)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, tx.Commit())
}

func TestValidateDetectsDanglingReference(t *testing.T) {
	store := memkv.New()
	tx, err := Begin(store)
	require.NoError(t, err)

	root, err := tx.Root()
	require.NoError(t, err)
	missing := tx.GenerateKey()
	require.NoError(t, root.ObjectInsert("broken", missing))
	require.NoError(t, tx.Store(root))

	require.Error(t, tx.Validate())
}

func TestValidateDetectsStaleKey(t *testing.T) {
	store := memkv.New()
	tx, err := Begin(store)
	require.NoError(t, err)

	// Stored but never linked from the root -- Walk never reaches it.
	orphan := tx.GenerateKey()
	require.NoError(t, tx.Store(node.NewInteger(orphan, 1)))

	require.Error(t, tx.Validate())
}

func TestValidatePassesOnCleanTree(t *testing.T) {
	store := memkv.New()
	tx, err := Begin(store)
	require.NoError(t, err)

	root, err := tx.Root()
	require.NoError(t, err)
	leaf := tx.GenerateKey()
	require.NoError(t, tx.Store(node.NewInteger(leaf, 1)))
	require.NoError(t, root.ObjectInsert("a", leaf))
	require.NoError(t, tx.Store(root))

	require.NoError(t, tx.Validate())
	require.NoError(t, tx.Commit())
}
