// Package txn implements the transaction abstraction: one live
// KV engine transaction plus the persisted key allocator, bootstrapped
// with an empty document root on first use.
package txn

import (
	"bytes"

	"github.com/wvankleunen/jsondb/jsonerr"
	"github.com/wvankleunen/jsondb/kvengine"
	"github.com/wvankleunen/jsondb/node"
	"github.com/wvankleunen/jsondb/valuekey"
)

// Transaction is the sole entry point for reading and mutating the
// document tree. A Transaction must be closed with Commit or Abort
// before a new one is started against the same Store. Nothing commits
// implicitly: a Transaction that is dropped without Commit is
// discarded along with its underlying KV transaction, so an error
// path that forgets to call Abort never persists half-written state.
type Transaction struct {
	kv         kvengine.Tx
	nextID     valuekey.Key
	nextIDSeen valuekey.Key // value last read/persisted, to skip a no-op write
	closed     bool
}

// Begin starts a transaction against store, bootstrapping the
// allocator and the document root the first time the store is used.
func Begin(store kvengine.Store) (*Transaction, error) {
	kv, err := store.Begin()
	if err != nil {
		return nil, err
	}
	t := &Transaction{kv: kv}

	raw, found, err := kv.Get(valuekey.NextID)
	if err != nil {
		_ = kv.Abort()
		return nil, err
	}
	if !found {
		t.nextID = valuekey.FirstUserKey
	} else {
		if len(raw) != 4 {
			_ = kv.Abort()
			return nil, jsonerr.CorruptNode(uint32(valuekey.NextID), "allocator counter is not 4 bytes")
		}
		t.nextID = valuekey.FromBytes(raw)
	}
	t.nextIDSeen = t.nextID

	if _, found, err := kv.Get(valuekey.Root); err != nil {
		_ = kv.Abort()
		return nil, err
	} else if !found {
		root := node.NewObject(valuekey.Root, nil)
		if err := t.Store(root); err != nil {
			_ = kv.Abort()
			return nil, err
		}
	}
	return t, nil
}

// GenerateKey hands out the next unused key and advances the
// allocator. Keys allocated by a committed transaction are never
// handed out again; keys allocated by an aborted transaction are
// discarded with it and are handed out again by the next transaction.
func (t *Transaction) GenerateKey() valuekey.Key {
	k := t.nextID
	t.nextID++
	return k
}

// Store persists n under its own key, overwriting any prior record.
func (t *Transaction) Store(n *node.Node) error {
	if n.Key() == valuekey.Null {
		return nil
	}
	var buf bytes.Buffer
	if err := n.Encode(&buf); err != nil {
		return err
	}
	return t.kv.Put(n.Key(), buf.Bytes())
}

// Retrieve loads the node filed under key. found is false if key has
// never been stored (or was deleted).
func (t *Transaction) Retrieve(key valuekey.Key) (n *node.Node, found bool, err error) {
	if key == valuekey.Null {
		return nil, false, nil
	}
	raw, found, err := t.kv.Get(key)
	if err != nil || !found {
		return nil, found, err
	}
	n, err = node.Decode(key, bytes.NewReader(raw))
	if err != nil {
		return nil, false, err
	}
	return n, true, nil
}

// Delete removes the single record at key. It does not cascade: the
// caller decides whether the key's subtree should also be reclaimed
// (see DeleteSubtree).
func (t *Transaction) Delete(key valuekey.Key) error {
	if key == valuekey.Null {
		return nil
	}
	return t.kv.Delete(key)
}

// DeleteSubtree deletes key and, recursively, every node it owns. Used
// whenever a mutation drops the last reference to a subtree.
func (t *Transaction) DeleteSubtree(key valuekey.Key) error {
	if key == valuekey.Null {
		return nil
	}
	n, found, err := t.Retrieve(key)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	for _, child := range n.ChildKeys() {
		if err := t.DeleteSubtree(child); err != nil {
			return err
		}
	}
	return t.Delete(key)
}

// WalkFunc is called once per node visited by Walk, in pre-order:
// a compound node before its children.
type WalkFunc func(key valuekey.Key, n *node.Node, depth int) error

// Walk visits key and its full subtree in pre-order.
func (t *Transaction) Walk(key valuekey.Key, depth int, fn WalkFunc) error {
	if key == valuekey.Null {
		return nil
	}
	n, found, err := t.Retrieve(key)
	if err != nil {
		return err
	}
	if !found {
		return jsonerr.CorruptNode(uint32(key), "referenced node is missing")
	}
	if err := fn(key, n, depth); err != nil {
		return err
	}
	for _, child := range n.ChildKeys() {
		if err := t.Walk(child, depth+1, fn); err != nil {
			return err
		}
	}
	return nil
}

// Root loads the document root, which is always an Object.
func (t *Transaction) Root() (*node.Node, error) {
	n, found, err := t.Retrieve(valuekey.Root)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, jsonerr.CorruptNode(uint32(valuekey.Root), "document root is missing")
	}
	return n, nil
}

// Validate walks the full tree from the root, then diffs the set of
// keys it reached against every key the KV engine actually holds (the
// allocator counter at valuekey.NextID is exempt, since it is not part
// of the document). It reports the first structural inconsistency
// found: either a child key that does not resolve to a stored record
// ("missing") or a stored key that Walk never reached ("stale").
func (t *Transaction) Validate() error {
	reachable := make(map[valuekey.Key]bool)
	err := t.Walk(valuekey.Root, 0, func(key valuekey.Key, n *node.Node, depth int) error {
		reachable[key] = true
		for _, child := range n.ChildKeys() {
			if child == valuekey.Null {
				continue
			}
			if _, found, err := t.Retrieve(child); err != nil {
				return err
			} else if !found {
				return jsonerr.CorruptNode(uint32(child), "dangling child reference")
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	cur, err := t.kv.Cursor()
	if err != nil {
		return err
	}
	defer cur.Close()
	for {
		key, ok, err := cur.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if key == valuekey.NextID {
			continue
		}
		if !reachable[key] {
			return jsonerr.CorruptNode(uint32(key), "stale key not reachable from document root")
		}
	}
	return nil
}

// Commit persists the allocator counter (if it advanced) and commits
// the underlying KV transaction. The Transaction must not be used
// afterward.
func (t *Transaction) Commit() error {
	if t.closed {
		return nil
	}
	t.closed = true
	if t.nextID != t.nextIDSeen {
		if err := t.kv.Put(valuekey.NextID, t.nextID.Bytes()); err != nil {
			_ = t.kv.Abort()
			return err
		}
	}
	return t.kv.Commit()
}

// Abort discards every change made during the transaction, including
// any keys generated by GenerateKey. The Transaction must not be used
// afterward.
func (t *Transaction) Abort() error {
	if t.closed {
		return nil
	}
	t.closed = true
	return t.kv.Abort()
}
