package badgerkv

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wvankleunen/jsondb/kvengine"
	"github.com/wvankleunen/jsondb/valuekey"
)

func TestOpenPutGetCommit(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	store, err := Open(dir, kvengine.OpenFlags{CreateIfMissing: true})
	require.NoError(t, err)
	defer store.Close()

	tx, err := store.Begin()
	require.NoError(t, err)
	require.NoError(t, tx.Put(valuekey.FirstUserKey, []byte("hello")))
	require.NoError(t, tx.Commit())

	tx2, err := store.Begin()
	require.NoError(t, err)
	v, found, err := tx2.Get(valuekey.FirstUserKey)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("hello"), v)
	require.NoError(t, tx2.Commit())
}

func TestDigestDetectsCorruption(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	opened, err := Open(dir, kvengine.OpenFlags{CreateIfMissing: true})
	require.NoError(t, err)
	defer opened.Close()

	tx, err := opened.Begin()
	require.NoError(t, err)
	require.NoError(t, tx.Put(valuekey.FirstUserKey, []byte("hello")))
	require.NoError(t, tx.Commit())

	// Bypass the digest-prefixing Put path to simulate on-disk
	// corruption: a record whose payload no longer matches its digest.
	s := opened.(*store)
	badTxn := s.db.NewTransaction(true)
	require.NoError(t, badTxn.Set(valuekey.FirstUserKey.Bytes(), []byte("not a valid digest+payload record")))
	require.NoError(t, badTxn.Commit())

	tx2, err := opened.Begin()
	require.NoError(t, err)
	_, _, err = tx2.Get(valuekey.FirstUserKey)
	require.Error(t, err)
	require.NoError(t, tx2.Abort())
}

func TestOpenFailsWhenMissingAndNotCreateIfMissing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	_, err := Open(dir, kvengine.OpenFlags{CreateIfMissing: false})
	require.Error(t, err)
}

func TestDeleteAllRemovesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	store, err := Open(dir, kvengine.OpenFlags{CreateIfMissing: true})
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.NoError(t, store.DeleteAll())
	_, err = os.Stat(dir)
	require.True(t, os.IsNotExist(err))
}
