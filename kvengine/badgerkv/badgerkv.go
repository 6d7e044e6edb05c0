// Package badgerkv is the persistent kvengine.Store backing a real
// on-disk JsonDb database, wrapping github.com/dgraph-io/badger/v2
// behind kvengine.Store/Tx/Cursor.
//
// Every value is stored with a blake2b-160 content digest prefix so
// Reader.Get can detect silent on-disk corruption before the node
// codec ever sees the bytes -- CorruptNode is raised here, one layer
// below the codec's own structural checks.
package badgerkv

import (
	"bytes"
	"os"
	"path/filepath"

	badger "github.com/dgraph-io/badger/v2"
	"github.com/spf13/afero"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/xerrors"

	"github.com/wvankleunen/jsondb/jsonerr"
	"github.com/wvankleunen/jsondb/kvengine"
	"github.com/wvankleunen/jsondb/valuekey"
)

const digestSize = 20

type store struct {
	db   *badger.DB
	path string
	fs   afero.Fs
}

// Open opens a badger database rooted at dir. Badger itself always
// creates the files it needs on Open, so flags.CreateIfMissing is
// enforced here: when false, dir must already contain a database
// (a MANIFEST file) or Open fails rather than silently creating one.
func Open(dir string, flags kvengine.OpenFlags) (kvengine.Store, error) {
	if !flags.CreateIfMissing {
		if _, err := os.Stat(filepath.Join(dir, "MANIFEST")); err != nil {
			return nil, jsonerr.StorageError("open", xerrors.Errorf("database does not exist at %q and CreateIfMissing is false: %w", dir, err))
		}
	}
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, jsonerr.StorageError("open", err)
	}
	return &store{db: db, path: dir, fs: afero.NewOsFs()}, nil
}

func (s *store) Begin() (kvengine.Tx, error) {
	return &tx{txn: s.db.NewTransaction(true)}, nil
}

func (s *store) Close() error {
	if err := s.db.Close(); err != nil {
		return jsonerr.StorageError("close", err)
	}
	return nil
}

func (s *store) DeleteAll() error {
	if err := s.fs.RemoveAll(s.path); err != nil {
		return jsonerr.StorageError("deleteAll", err)
	}
	return nil
}

type tx struct {
	txn  *badger.Txn
	done bool
}

func withDigest(value []byte) []byte {
	digest := blake2b160(value)
	out := make([]byte, digestSize+len(value))
	copy(out, digest[:])
	copy(out[digestSize:], value)
	return out
}

func stripDigest(key valuekey.Key, stored []byte) ([]byte, error) {
	if len(stored) < digestSize {
		return nil, jsonerr.CorruptNode(uint32(key), "stored value shorter than digest prefix")
	}
	want := stored[:digestSize]
	payload := stored[digestSize:]
	got := blake2b160(payload)
	if !bytes.Equal(want, got[:]) {
		return nil, jsonerr.CorruptNode(uint32(key), "content digest mismatch")
	}
	return payload, nil
}

func blake2b160(data []byte) (ret [digestSize]byte) {
	h, _ := blake2b.New(digestSize, nil)
	_, _ = h.Write(data)
	copy(ret[:], h.Sum(nil))
	return
}

func (t *tx) Get(key valuekey.Key) ([]byte, bool, error) {
	item, err := t.txn.Get(key.Bytes())
	if err == badger.ErrKeyNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, jsonerr.StorageError("get", err)
	}
	var stored []byte
	err = item.Value(func(val []byte) error {
		stored = append(stored, val...)
		return nil
	})
	if err != nil {
		return nil, false, jsonerr.StorageError("get", err)
	}
	payload, err := stripDigest(key, stored)
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

func (t *tx) Put(key valuekey.Key, value []byte) error {
	if err := t.txn.Set(key.Bytes(), withDigest(value)); err != nil {
		return jsonerr.StorageError("put", err)
	}
	return nil
}

func (t *tx) Delete(key valuekey.Key) error {
	if err := t.txn.Delete(key.Bytes()); err != nil {
		return jsonerr.StorageError("delete", err)
	}
	return nil
}

func (t *tx) Cursor() (kvengine.Cursor, error) {
	opts := badger.DefaultIteratorOptions
	it := t.txn.NewIterator(opts)
	it.Rewind()
	return &cursor{it: it}, nil
}

func (t *tx) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.txn.Commit(); err != nil {
		return jsonerr.StorageError("commit", err)
	}
	return nil
}

func (t *tx) Abort() error {
	if t.done {
		return nil
	}
	t.done = true
	t.txn.Discard()
	return nil
}

type cursor struct {
	it *badger.Iterator
}

func (c *cursor) Next() (valuekey.Key, bool, error) {
	if !c.it.Valid() {
		return 0, false, nil
	}
	item := c.it.Item()
	k := valuekey.FromBytes(item.KeyCopy(nil))
	c.it.Next()
	return k, true, nil
}

func (c *cursor) Close() error {
	c.it.Close()
	return nil
}
