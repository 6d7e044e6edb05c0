// Package valuekey defines the primary-key type for every node stored
// by JsonDb, and the small set of reserved key values.
package valuekey

// Key identifies a single node in the store. It is the primary key of
// the underlying KV engine: user-allocated keys are assigned by
// the transaction's allocator and are never reused within the lifetime
// of a database.
type Key uint32

const (
	// Null is the sentinel value meaning "absent" or "null reference".
	// A node at Null is never stored; txn.Store silently ignores it.
	Null Key = 0

	// Root is the fixed key of the document root, always an Object.
	Root Key = 100

	// NextID is the key under which the persisted allocator counter
	// lives. It is not part of the document tree and is exempt from
	// the "stale key" check performed by Validate.
	NextID Key = 101

	// FirstUserKey is the first key handed out by a fresh allocator.
	FirstUserKey Key = 1000
)

// Bytes returns the little-endian, fixed-width on-disk encoding used as
// the KV engine's raw key.
func (k Key) Bytes() []byte {
	return []byte{
		byte(k),
		byte(k >> 8),
		byte(k >> 16),
		byte(k >> 24),
	}
}

// FromBytes decodes a key previously produced by Bytes.
func FromBytes(b []byte) Key {
	return Key(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24)
}
