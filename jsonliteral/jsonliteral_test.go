package jsonliteral

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wvankleunen/jsondb/kvengine/memkv"
	"github.com/wvankleunen/jsondb/node"
	"github.com/wvankleunen/jsondb/txn"
)

func TestGraftScalars(t *testing.T) {
	store := memkv.New()
	tx, err := txn.Begin(store)
	require.NoError(t, err)

	key := tx.GenerateKey()
	require.NoError(t, tx.Store(node.NewNull(key)))

	require.NoError(t, Graft(tx, key, `42`))
	n, found, err := tx.Retrieve(key)
	require.NoError(t, err)
	require.True(t, found)
	v, err := n.Int()
	require.NoError(t, err)
	require.Equal(t, int32(42), v)

	require.NoError(t, Graft(tx, key, `"hello"`))
	n, _, err = tx.Retrieve(key)
	require.NoError(t, err)
	s, err := n.Str()
	require.NoError(t, err)
	require.Equal(t, "hello", s)
}

func TestGraftObjectReusesOutermostKeyOnly(t *testing.T) {
	store := memkv.New()
	tx, err := txn.Begin(store)
	require.NoError(t, err)

	key := tx.GenerateKey()
	require.NoError(t, tx.Store(node.NewNull(key)))

	literal := `{
		"name": "Wouter van Kleunen",
		"float_value": 1.0,
		"int_value": 1,
		"bool_true_value": true,
		"bool_false_value": false,
		"null_value": null,
		"array_value": [10, "test", false],
		"sub_object": {"a": 10, "b": "test", "c": false}
	}`
	require.NoError(t, Graft(tx, key, literal))

	top, found, err := tx.Retrieve(key)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, node.Object, top.Kind())
	require.Equal(t, key, top.Key())

	nameKey, found, err := top.ObjectGet("name")
	require.NoError(t, err)
	require.True(t, found)
	require.NotEqual(t, key, nameKey)
	nameNode, _, err := tx.Retrieve(nameKey)
	require.NoError(t, err)
	s, err := nameNode.Str()
	require.NoError(t, err)
	require.Equal(t, "Wouter van Kleunen", s)

	arrKey, _, err := top.ObjectGet("array_value")
	require.NoError(t, err)
	arrNode, _, err := tx.Retrieve(arrKey)
	require.NoError(t, err)
	entries, err := arrNode.ArrayEntries()
	require.NoError(t, err)
	require.Len(t, entries, 3)

	first, _, err := tx.Retrieve(entries[0])
	require.NoError(t, err)
	iv, err := first.Int()
	require.NoError(t, err)
	require.Equal(t, int32(10), iv)

	subKey, _, err := top.ObjectGet("sub_object")
	require.NoError(t, err)
	subNode, _, err := tx.Retrieve(subKey)
	require.NoError(t, err)
	aKey, _, err := subNode.ObjectGet("a")
	require.NoError(t, err)
	aNode, _, err := tx.Retrieve(aKey)
	require.NoError(t, err)
	aVal, err := aNode.Int()
	require.NoError(t, err)
	require.Equal(t, int32(10), aVal)
}

func TestGraftReplacesPriorSubtree(t *testing.T) {
	store := memkv.New()
	tx, err := txn.Begin(store)
	require.NoError(t, err)

	key := tx.GenerateKey()
	require.NoError(t, Graft(tx, key, `{"a": 1, "b": 2}`))
	first, _, err := tx.Retrieve(key)
	require.NoError(t, err)
	aKey, _, err := first.ObjectGet("a")
	require.NoError(t, err)

	require.NoError(t, Graft(tx, key, `"replacement"`))
	_, found, err := tx.Retrieve(aKey)
	require.NoError(t, err)
	require.False(t, found, "old child must be reclaimed when its parent is replaced")

	replaced, _, err := tx.Retrieve(key)
	require.NoError(t, err)
	s, err := replaced.Str()
	require.NoError(t, err)
	require.Equal(t, "replacement", s)
}

func TestGraftSyntaxErrors(t *testing.T) {
	store := memkv.New()
	tx, err := txn.Begin(store)
	require.NoError(t, err)
	key := tx.GenerateKey()

	require.Error(t, Graft(tx, key, `{"a": }`))
	require.Error(t, Graft(tx, key, `[1, 2`))
	require.Error(t, Graft(tx, key, `nul`))
	require.Error(t, Graft(tx, key, `1 2`))
}
