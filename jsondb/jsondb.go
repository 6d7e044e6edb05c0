// Package jsondb is the façade API: a single JSON-like document,
// navigated by path expressions, backed by a pluggable KV engine.
//
// A lane.Lane is threaded through the Db rather than a package-level
// logger, so a caller embedding JsonDb in a bigger service can route
// its trace/error output wherever the rest of that service's logs go.
package jsondb

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jimsnab/go-lane"

	"github.com/wvankleunen/jsondb/jsonerr"
	"github.com/wvankleunen/jsondb/jsonliteral"
	"github.com/wvankleunen/jsondb/kvengine"
	"github.com/wvankleunen/jsondb/node"
	"github.com/wvankleunen/jsondb/path"
	"github.com/wvankleunen/jsondb/txn"
	"github.com/wvankleunen/jsondb/valuekey"
)

// Db is an opened database. It is not safe for concurrent use by
// multiple goroutines without external synchronization -- the same
// single-writer rule the underlying kvengine.Store applies to
// transactions applies to Db.
type Db struct {
	store kvengine.Store
	l     lane.Lane
}

// Open wraps an already-opened kvengine.Store as a Db. l receives
// trace and error logging for every operation; pass lane.NewNullLane()
// to discard it.
func Open(store kvengine.Store, l lane.Lane) *Db {
	return &Db{store: store, l: l}
}

// Close releases the underlying KV engine.
func (db *Db) Close() error {
	return db.store.Close()
}

// DeleteAll destroys the entire database, including its backing file
// or directory. The Db must not be used afterward.
func (db *Db) DeleteAll() error {
	db.l.Tracef("deleting entire database")
	return db.store.DeleteAll()
}

// Tx is one unit-of-work transaction opened against the Db. The
// zero value is not usable; obtain one via Db.StartTransaction.
type Tx struct {
	db *Db
	t  *txn.Transaction
}

// StartTransaction begins a new transaction. Exactly one Tx may be
// open against a Db at a time.
func (db *Db) StartTransaction() (*Tx, error) {
	t, err := txn.Begin(db.store)
	if err != nil {
		db.l.Errorf("begin transaction: %s", err)
		return nil, err
	}
	return &Tx{db: db, t: t}, nil
}

// Commit finalizes every mutation made on this Tx.
func (tx *Tx) Commit() error {
	if err := tx.t.Commit(); err != nil {
		tx.db.l.Errorf("commit transaction: %s", err)
		return err
	}
	return nil
}

// Abort discards every mutation made on this Tx.
func (tx *Tx) Abort() error {
	return tx.t.Abort()
}

func (tx *Tx) resolve(expr string, policy path.Policy) (*path.Result, error) {
	p, err := path.Parse(expr)
	if err != nil {
		return nil, err
	}
	return path.Resolve(tx.t, p, policy)
}

// Exists reports whether expr resolves to a value.
func (tx *Tx) Exists(expr string) (bool, error) {
	res, err := tx.resolve(expr, path.ReturnNull)
	if err != nil {
		return false, err
	}
	return res.Child != nil, nil
}

// GetInt reads an Integer value.
func (tx *Tx) GetInt(expr string) (int32, error) {
	res, err := tx.resolve(expr, path.Throw)
	if err != nil {
		return 0, err
	}
	return res.Child.Int()
}

// GetReal reads a Real value.
func (tx *Tx) GetReal(expr string) (float64, error) {
	res, err := tx.resolve(expr, path.Throw)
	if err != nil {
		return 0, err
	}
	return res.Child.Real()
}

// GetBool reads a Boolean value.
func (tx *Tx) GetBool(expr string) (bool, error) {
	res, err := tx.resolve(expr, path.Throw)
	if err != nil {
		return false, err
	}
	return res.Child.Bool()
}

// GetString reads a String value.
func (tx *Tx) GetString(expr string) (string, error) {
	res, err := tx.resolve(expr, path.Throw)
	if err != nil {
		return "", err
	}
	return res.Child.Str()
}

func (tx *Tx) setScalar(expr string, createIfMissing bool, build func(key valuekey.Key) *node.Node) error {
	policy := path.Throw
	if createIfMissing {
		policy = path.Create
	}
	res, err := tx.resolve(expr, policy)
	if err != nil {
		return err
	}
	if res.Key == valuekey.Root {
		return jsonerr.TypeMismatch(expr, "replace the document root with a scalar", node.Object.Name())
	}
	key := res.Key
	if key == valuekey.Null {
		key = tx.t.GenerateKey()
		if err := link(tx.t, res, key); err != nil {
			return err
		}
	} else if err := clearSubtree(tx.t, key); err != nil {
		return err
	}
	return tx.t.Store(build(key))
}

// logged reports a failed mutation on the Db's lane before handing the
// error back to the caller.
func (tx *Tx) logged(op, expr string, err error) error {
	if err != nil {
		tx.db.l.Errorf("%s %s: %s", op, expr, err)
	}
	return err
}

// Set writes v at expr. When createIfMissing is true (the usual case),
// any missing intermediate Object containers along the path are
// created; when false, expr must already resolve or Set fails with
// PathNotFound. v must be one of int32, int (stored as int32),
// float64, bool, or string.
func (tx *Tx) Set(expr string, v interface{}, createIfMissing bool) error {
	return tx.logged("set", expr, tx.set(expr, v, createIfMissing))
}

func (tx *Tx) set(expr string, v interface{}, createIfMissing bool) error {
	switch val := v.(type) {
	case int32:
		return tx.setScalar(expr, createIfMissing, func(key valuekey.Key) *node.Node { return node.NewInteger(key, val) })
	case int:
		return tx.setScalar(expr, createIfMissing, func(key valuekey.Key) *node.Node { return node.NewInteger(key, int32(val)) })
	case float64:
		return tx.setScalar(expr, createIfMissing, func(key valuekey.Key) *node.Node { return node.NewReal(key, val) })
	case bool:
		return tx.setScalar(expr, createIfMissing, func(key valuekey.Key) *node.Node { return node.NewBoolean(key, val) })
	case string:
		return tx.setScalar(expr, createIfMissing, func(key valuekey.Key) *node.Node { return node.NewString(key, val) })
	default:
		return jsonerr.TypeMismatch(expr, fmt.Sprintf("set a %T", v), "unsupported Go type")
	}
}

// SetArray creates an Array of n entries at expr, replacing anything
// previously there. Each entry is a freshly allocated Null placeholder
// -- set(p + "[i]", v) for i < n then overwrites an existing slot
// (reusing its key) rather than appending.
func (tx *Tx) SetArray(expr string, n int, createIfMissing bool) error {
	return tx.logged("setArray", expr, tx.setArray(expr, n, createIfMissing))
}

func (tx *Tx) setArray(expr string, n int, createIfMissing bool) error {
	policy := path.Throw
	if createIfMissing {
		policy = path.Create
	}
	res, err := tx.resolve(expr, policy)
	if err != nil {
		return err
	}
	if res.Key == valuekey.Root {
		return jsonerr.TypeMismatch(expr, "replace the document root with an array", node.Object.Name())
	}
	key := res.Key
	if key == valuekey.Null {
		key = tx.t.GenerateKey()
		if err := link(tx.t, res, key); err != nil {
			return err
		}
	} else if err := clearSubtree(tx.t, key); err != nil {
		return err
	}
	entries := make([]valuekey.Key, n)
	for i := 0; i < n; i++ {
		childKey := tx.t.GenerateKey()
		if err := tx.t.Store(node.NewNull(childKey)); err != nil {
			return err
		}
		entries[i] = childKey
	}
	return tx.t.Store(node.NewArray(key, entries))
}

// SetJson parses literal as a JSON value and grafts it at expr. When
// createIfMissing is false, expr must already resolve to an existing
// node or SetJson fails with PathNotFound before the literal is even
// parsed.
func (tx *Tx) SetJson(expr string, literal string, createIfMissing bool) error {
	return tx.logged("setJson", expr, tx.setJson(expr, literal, createIfMissing))
}

func (tx *Tx) setJson(expr string, literal string, createIfMissing bool) error {
	policy := path.Throw
	if createIfMissing {
		policy = path.Create
	}
	res, err := tx.resolve(expr, policy)
	if err != nil {
		return err
	}
	// The document root must stay an Object, so the only literal that
	// may be grafted over it is an object literal.
	if res.Key == valuekey.Root && firstToken(literal) != '{' {
		return jsonerr.TypeMismatch(expr, "replace the document root with a non-object", node.Object.Name())
	}
	key := res.Key
	if key == valuekey.Null {
		key = tx.t.GenerateKey()
		if err := link(tx.t, res, key); err != nil {
			return err
		}
		blank := node.NewNull(key)
		if err := tx.t.Store(blank); err != nil {
			return err
		}
	}
	return jsonliteral.Graft(tx.t, key, literal)
}

func firstToken(literal string) byte {
	for i := 0; i < len(literal); i++ {
		switch literal[i] {
		case ' ', '\t', '\n', '\r':
		default:
			return literal[i]
		}
	}
	return 0
}

// AppendArray appends v to the array at expr.
func (tx *Tx) AppendArray(expr string, v interface{}) error {
	return tx.logged("appendArray", expr, tx.appendArray(expr, v))
}

func (tx *Tx) appendArray(expr string, v interface{}) error {
	res, err := tx.resolve(expr, path.Throw)
	if err != nil {
		return err
	}
	if res.Child.Kind() != node.Array {
		return jsonerr.TypeMismatch(expr, "append", res.Child.Kind().Name())
	}
	childKey := tx.t.GenerateKey()
	var n *node.Node
	switch val := v.(type) {
	case int32:
		n = node.NewInteger(childKey, val)
	case int:
		n = node.NewInteger(childKey, int32(val))
	case float64:
		n = node.NewReal(childKey, val)
	case bool:
		n = node.NewBoolean(childKey, val)
	case string:
		n = node.NewString(childKey, val)
	default:
		return jsonerr.TypeMismatch(expr, fmt.Sprintf("append a %T", v), "unsupported Go type")
	}
	if err := tx.t.Store(n); err != nil {
		return err
	}
	if err := res.Child.ArrayAppend(childKey); err != nil {
		return err
	}
	return tx.t.Store(res.Child)
}

// AppendArrayJson parses literal and appends the result to the array
// at expr.
func (tx *Tx) AppendArrayJson(expr string, literal string) error {
	return tx.logged("appendArrayJson", expr, tx.appendArrayJson(expr, literal))
}

func (tx *Tx) appendArrayJson(expr string, literal string) error {
	res, err := tx.resolve(expr, path.Throw)
	if err != nil {
		return err
	}
	if res.Child.Kind() != node.Array {
		return jsonerr.TypeMismatch(expr, "append", res.Child.Kind().Name())
	}
	childKey := tx.t.GenerateKey()
	if err := jsonliteral.Graft(tx.t, childKey, literal); err != nil {
		return err
	}
	if err := res.Child.ArrayAppend(childKey); err != nil {
		return err
	}
	return tx.t.Store(res.Child)
}

// Delete removes the value at expr, reclaiming its entire subtree.
// Deleting the document root itself is rejected: use DeleteAll to
// destroy the database.
func (tx *Tx) Delete(expr string) error {
	return tx.logged("delete", expr, tx.deleteAt(expr))
}

func (tx *Tx) deleteAt(expr string) error {
	if expr == "$" {
		return jsonerr.TypeMismatch(expr, "delete", "document root")
	}
	res, err := tx.resolve(expr, path.ReturnNull)
	if err != nil {
		return err
	}
	if res.Child == nil {
		return jsonerr.PathNotFound(expr, "")
	}
	if err := tx.t.DeleteSubtree(res.Key); err != nil {
		return err
	}
	switch res.Parent.Kind() {
	case node.Object:
		if _, _, err := res.Parent.ObjectDelete(res.Last.Name); err != nil {
			return err
		}
	case node.Array:
		if _, err := res.Parent.ArrayDeleteAt(res.Last.Index); err != nil {
			return err
		}
	}
	return tx.t.Store(res.Parent)
}

// clearSubtree deletes everything owned by key but not key itself, so
// the key can be immediately reused by a replacement value.
func clearSubtree(t *txn.Transaction, key valuekey.Key) error {
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
	return nil
}

func link(t *txn.Transaction, res *path.Result, key valuekey.Key) error {
	switch res.Parent.Kind() {
	case node.Object:
		if err := res.Parent.ObjectInsert(res.Last.Name, key); err != nil {
			return err
		}
	case node.Array:
		n, err := res.Parent.ArrayLen()
		if err != nil {
			return err
		}
		if res.Last.Index != n {
			return jsonerr.IndexOutOfBounds("", res.Last.Index, n)
		}
		if err := res.Parent.ArrayAppend(key); err != nil {
			return err
		}
	default:
		return jsonerr.TypeMismatch("", "link child", res.Parent.Kind().Name())
	}
	return t.Store(res.Parent)
}

// Validate walks the whole tree from the root and reports the first
// structural inconsistency found.
func (tx *Tx) Validate() error {
	return tx.t.Validate()
}

// Print writes a human-readable, indented rendering of the subtree at
// expr to w. Object members print in the same
// lexicographic order the codec persists them in.
func (tx *Tx) Print(w io.Writer, expr string) error {
	res, err := tx.resolve(expr, path.Throw)
	if err != nil {
		return err
	}
	return printNode(w, tx.t, res.Key, res.Child, 0)
}

// formatReal renders v so the printed value still reads back as a
// Real: a value with no fractional part gets an explicit ".0" rather
// than printing as an integer literal.
func formatReal(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func printNode(w io.Writer, t *txn.Transaction, key valuekey.Key, n *node.Node, depth int) error {
	indent := bytes.Repeat([]byte("  "), depth)
	switch n.Kind() {
	case node.Null:
		_, err := fmt.Fprintf(w, "%snull\n", indent)
		return err
	case node.Integer:
		v, _ := n.Int()
		_, err := fmt.Fprintf(w, "%s%d\n", indent, v)
		return err
	case node.Real:
		v, _ := n.Real()
		_, err := fmt.Fprintf(w, "%s%s\n", indent, formatReal(v))
		return err
	case node.Boolean:
		v, _ := n.Bool()
		_, err := fmt.Fprintf(w, "%s%t\n", indent, v)
		return err
	case node.String:
		v, _ := n.Str()
		_, err := fmt.Fprintf(w, "%s%q\n", indent, v)
		return err
	case node.Array:
		if _, err := fmt.Fprintf(w, "%s[\n", indent); err != nil {
			return err
		}
		entries, _ := n.ArrayEntries()
		for _, childKey := range entries {
			child, found, err := t.Retrieve(childKey)
			if err != nil {
				return err
			}
			if !found {
				return jsonerr.CorruptNode(uint32(childKey), "referenced node is missing")
			}
			if err := printNode(w, t, childKey, child, depth+1); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintf(w, "%s]\n", indent)
		return err
	case node.Object:
		if _, err := fmt.Fprintf(w, "%s{\n", indent); err != nil {
			return err
		}
		names, _ := n.ObjectNames()
		for _, name := range names {
			childKey, _, err := n.ObjectGet(name)
			if err != nil {
				return err
			}
			child, found, err := t.Retrieve(childKey)
			if err != nil {
				return err
			}
			if !found {
				return jsonerr.CorruptNode(uint32(childKey), "referenced node is missing")
			}
			if _, err := fmt.Fprintf(w, "%s  %q:\n", indent, name); err != nil {
				return err
			}
			if err := printNode(w, t, childKey, child, depth+2); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintf(w, "%s}\n", indent)
		return err
	default:
		return jsonerr.CorruptNode(uint32(key), "unrecognized node kind")
	}
}
