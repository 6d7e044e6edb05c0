// Package node implements the node model: the seven value
// variants and their typed accessors, get/append/delete mutators, and
// (in codec.go) the binary codec.
//
// A Node is a plain tagged-union value, not a polymorphic type behind
// an interface: the seven variants share one struct, and operations
// that only make sense for some kinds fail with jsonerr.TypeMismatch
// on the others.
//
// A Node never holds a reference to storage: the transaction always
// hands back or accepts a fully materialized, exclusively-owned copy.
package node

import (
	"sort"

	"github.com/wvankleunen/jsondb/jsonerr"
	"github.com/wvankleunen/jsondb/valuekey"
)

// Node is one persisted record. Only the fields relevant to kind are
// meaningful; the rest are zero.
type Node struct {
	key  valuekey.Key
	kind Kind

	i   int32
	r   float64
	b   bool
	s   string
	arr []valuekey.Key
	obj map[string]valuekey.Key
}

// Key returns the node's identity.
func (n *Node) Key() valuekey.Key { return n.key }

// Kind returns the node's variant tag.
func (n *Node) Kind() Kind { return n.kind }

// --- constructors ---

func NewNull(key valuekey.Key) *Node {
	return &Node{key: key, kind: Null}
}

func NewInteger(key valuekey.Key, v int32) *Node {
	return &Node{key: key, kind: Integer, i: v}
}

func NewReal(key valuekey.Key, v float64) *Node {
	return &Node{key: key, kind: Real, r: v}
}

func NewBoolean(key valuekey.Key, v bool) *Node {
	return &Node{key: key, kind: Boolean, b: v}
}

func NewString(key valuekey.Key, v string) *Node {
	return &Node{key: key, kind: String, s: v}
}

func NewArray(key valuekey.Key, children []valuekey.Key) *Node {
	cp := make([]valuekey.Key, len(children))
	copy(cp, children)
	return &Node{key: key, kind: Array, arr: cp}
}

func NewObject(key valuekey.Key, entries map[string]valuekey.Key) *Node {
	cp := make(map[string]valuekey.Key, len(entries))
	for k, v := range entries {
		cp[k] = v
	}
	return &Node{key: key, kind: Object, obj: cp}
}

// --- typed accessors ("only the native variant succeeds") ---

func (n *Node) Int() (int32, error) {
	if n.kind != Integer {
		return 0, jsonerr.TypeMismatch("", "read as integer", n.kind.Name())
	}
	return n.i, nil
}

func (n *Node) Real() (float64, error) {
	if n.kind != Real {
		return 0, jsonerr.TypeMismatch("", "read as real", n.kind.Name())
	}
	return n.r, nil
}

func (n *Node) Bool() (bool, error) {
	if n.kind != Boolean {
		return false, jsonerr.TypeMismatch("", "read as boolean", n.kind.Name())
	}
	return n.b, nil
}

func (n *Node) Str() (string, error) {
	if n.kind != String {
		return "", jsonerr.TypeMismatch("", "read as string", n.kind.Name())
	}
	return n.s, nil
}

// --- Object operations (Object.get / deleteChild) ---

// ObjectGet returns the child key stored under name. found is false if
// the name is absent on an Object; err is TypeMismatch if the receiver
// is not an Object at all.
func (n *Node) ObjectGet(name string) (child valuekey.Key, found bool, err error) {
	if n.kind != Object {
		return 0, false, jsonerr.TypeMismatch("", "get child by name", n.kind.Name())
	}
	k, ok := n.obj[name]
	return k, ok, nil
}

// ObjectInsert adds or replaces the entry for name.
func (n *Node) ObjectInsert(name string, child valuekey.Key) error {
	if n.kind != Object {
		return jsonerr.TypeMismatch("", "insert child", n.kind.Name())
	}
	n.obj[name] = child
	return nil
}

// ObjectDelete removes the entry for name, returning the removed
// child key (if any). It does not cascade: the caller is responsible
// for deleting the child's subtree first (Object.deleteChild).
func (n *Node) ObjectDelete(name string) (child valuekey.Key, found bool, err error) {
	if n.kind != Object {
		return 0, false, jsonerr.TypeMismatch("", "delete child", n.kind.Name())
	}
	k, ok := n.obj[name]
	if ok {
		delete(n.obj, name)
	}
	return k, ok, nil
}

// ObjectNames returns the entry names in lexicographic order -- the
// same order the codec persists them in.
func (n *Node) ObjectNames() ([]string, error) {
	if n.kind != Object {
		return nil, jsonerr.TypeMismatch("", "enumerate object", n.kind.Name())
	}
	names := make([]string, 0, len(n.obj))
	for name := range n.obj {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// --- Array operations (Array.get / append) ---

// ArrayLen returns the number of entries.
func (n *Node) ArrayLen() (int, error) {
	if n.kind != Array {
		return 0, jsonerr.TypeMismatch("", "measure array", n.kind.Name())
	}
	return len(n.arr), nil
}

// ArrayGet returns the child key at index. Array access never
// auto-extends: index >= length is always IndexOutOfBounds.
func (n *Node) ArrayGet(index int) (valuekey.Key, error) {
	if n.kind != Array {
		return 0, jsonerr.TypeMismatch("", "index into array", n.kind.Name())
	}
	if index < 0 || index >= len(n.arr) {
		return 0, jsonerr.IndexOutOfBounds("", index, len(n.arr))
	}
	return n.arr[index], nil
}

// ArrayAppend adds childKey to the end of the array.
func (n *Node) ArrayAppend(childKey valuekey.Key) error {
	if n.kind != Array {
		return jsonerr.TypeMismatch("", "append to array", n.kind.Name())
	}
	n.arr = append(n.arr, childKey)
	return nil
}

// ArrayDeleteAt removes the entry at index, shifting later entries
// down by one.
func (n *Node) ArrayDeleteAt(index int) (valuekey.Key, error) {
	if n.kind != Array {
		return 0, jsonerr.TypeMismatch("", "delete from array", n.kind.Name())
	}
	if index < 0 || index >= len(n.arr) {
		return 0, jsonerr.IndexOutOfBounds("", index, len(n.arr))
	}
	removed := n.arr[index]
	n.arr = append(n.arr[:index], n.arr[index+1:]...)
	return removed, nil
}

// ArrayEntries returns a copy of the child keys in order.
func (n *Node) ArrayEntries() ([]valuekey.Key, error) {
	if n.kind != Array {
		return nil, jsonerr.TypeMismatch("", "enumerate array", n.kind.Name())
	}
	cp := make([]valuekey.Key, len(n.arr))
	copy(cp, n.arr)
	return cp, nil
}

// ChildKeys returns every immediate child key of a compound node (used
// by txn.Walk and txn.DeleteSubtree to recurse). Scalars return nil.
func (n *Node) ChildKeys() []valuekey.Key {
	switch n.kind {
	case Array:
		out := make([]valuekey.Key, len(n.arr))
		copy(out, n.arr)
		return out
	case Object:
		out := make([]valuekey.Key, 0, len(n.obj))
		for _, k := range n.obj {
			out = append(out, k)
		}
		return out
	default:
		return nil
	}
}

// IsCompound reports whether the node can have children (Array or Object).
func (n *Node) IsCompound() bool {
	return n.kind == Array || n.kind == Object
}
