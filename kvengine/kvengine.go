// Package kvengine defines the storage seam: an ordered key/value
// store with begin/commit/abort transactions and full-scan iteration.
// JsonDb depends only on this interface; any store that satisfies it
// (an in-memory map, badger, bbolt, LMDB, ...) can back a database.
package kvengine

import "github.com/wvankleunen/jsondb/valuekey"

// Reader is the read side of a KV transaction.
type Reader interface {
	// Get returns the stored bytes for key, or (nil, false) if absent.
	Get(key valuekey.Key) ([]byte, bool, error)
}

// Writer is the write side of a KV transaction.
type Writer interface {
	// Put stores value under key, replacing any prior value.
	Put(key valuekey.Key, value []byte) error
	// Delete removes key. It is not an error if key is absent.
	Delete(key valuekey.Key) error
}

// Cursor iterates every key currently stored in the engine, in some
// engine-defined order (not necessarily insertion or numeric order).
type Cursor interface {
	// Next advances the cursor and returns the next key, or ok=false
	// when iteration is exhausted.
	Next() (key valuekey.Key, ok bool, err error)
	// Close releases cursor resources.
	Close() error
}

// Tx is one KV engine transaction: readable and writable, with a
// lifecycle controlled by Commit/Abort.
type Tx interface {
	Reader
	Writer

	// Cursor opens an iterator over every key in the engine as of this
	// transaction's view.
	Cursor() (Cursor, error)

	// Commit makes the transaction's writes durable. The transaction
	// must not be used afterward.
	Commit() error

	// Abort discards the transaction's writes. The transaction must
	// not be used afterward.
	Abort() error
}

// OpenFlags are the create-if-missing / writer-exclusive knobs every
// KV engine's Open must honor.
type OpenFlags struct {
	// CreateIfMissing creates a new, empty backing store when none
	// exists at the location given to the engine's Open.
	CreateIfMissing bool
	// WriterExclusive requests an exclusive writer lock for the
	// lifetime of the Store (single-writer model).
	WriterExclusive bool
}

// Store is an opened KV engine ready to hand out transactions.
type Store interface {
	// Begin starts a new transaction. JsonDb never has more than one
	// live transaction per Store.
	Begin() (Tx, error)

	// Close releases the engine's resources (file descriptors, etc.).
	Close() error

	// DeleteAll removes the entire backing store, including any file
	// or directory it occupies. The Store must be closed first.
	DeleteAll() error
}
