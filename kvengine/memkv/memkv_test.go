package memkv

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wvankleunen/jsondb/valuekey"
)

func TestPutGetAcrossTransactions(t *testing.T) {
	s := New()

	tx1, err := s.Begin()
	require.NoError(t, err)
	require.NoError(t, tx1.Put(valuekey.FirstUserKey, []byte("v1")))
	require.NoError(t, tx1.Commit())

	tx2, err := s.Begin()
	require.NoError(t, err)
	v, found, err := tx2.Get(valuekey.FirstUserKey)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("v1"), v)
	require.NoError(t, tx2.Commit())
}

func TestAbortDiscardsWrites(t *testing.T) {
	s := New()

	tx, err := s.Begin()
	require.NoError(t, err)
	require.NoError(t, tx.Put(valuekey.FirstUserKey, []byte("v1")))
	require.NoError(t, tx.Abort())

	tx2, err := s.Begin()
	require.NoError(t, err)
	_, found, err := tx2.Get(valuekey.FirstUserKey)
	require.NoError(t, err)
	require.False(t, found)
	require.NoError(t, tx2.Commit())
}

func TestWriteIsolatedUntilCommit(t *testing.T) {
	s := New()

	tx1, err := s.Begin()
	require.NoError(t, err)
	require.NoError(t, tx1.Put(valuekey.FirstUserKey, []byte("v1")))

	tx2, err := s.Begin()
	require.NoError(t, err)
	_, found, err := tx2.Get(valuekey.FirstUserKey)
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, tx1.Commit())
	require.NoError(t, tx2.Commit())
}

func TestCursorSeesCommittedAndPendingWrites(t *testing.T) {
	s := New()

	tx1, err := s.Begin()
	require.NoError(t, err)
	require.NoError(t, tx1.Put(valuekey.Key(1000), []byte("a")))
	require.NoError(t, tx1.Commit())

	tx2, err := s.Begin()
	require.NoError(t, err)
	require.NoError(t, tx2.Put(valuekey.Key(1001), []byte("b")))
	require.NoError(t, tx2.Delete(valuekey.Key(1000)))

	cur, err := tx2.Cursor()
	require.NoError(t, err)
	var seen []valuekey.Key
	for {
		k, ok, err := cur.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		seen = append(seen, k)
	}
	require.Equal(t, []valuekey.Key{1001}, seen)
	require.NoError(t, tx2.Commit())
}

func TestDeleteAll(t *testing.T) {
	s := New()
	tx, err := s.Begin()
	require.NoError(t, err)
	require.NoError(t, tx.Put(valuekey.FirstUserKey, []byte("v")))
	require.NoError(t, tx.Commit())

	require.NoError(t, s.DeleteAll())

	tx2, err := s.Begin()
	require.NoError(t, err)
	_, found, err := tx2.Get(valuekey.FirstUserKey)
	require.NoError(t, err)
	require.False(t, found)
	require.NoError(t, tx2.Commit())
}
