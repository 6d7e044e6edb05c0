package path

import (
	"strconv"

	"github.com/wvankleunen/jsondb/jsonerr"
	"github.com/wvankleunen/jsondb/node"
	"github.com/wvankleunen/jsondb/txn"
	"github.com/wvankleunen/jsondb/valuekey"
)

// Policy controls what happens when a path segment has no matching
// child.
type Policy int

const (
	// Throw fails the whole resolution with PathNotFound.
	Throw Policy = iota
	// ReturnNull succeeds with a nil child and Null key; used by read
	// operations such as exists() that treat "absent" as a value.
	ReturnNull
	// Create materializes any missing intermediate container as an
	// empty Object and leaves the final segment's leaf value to the
	// caller. Array indices are never auto-created or auto-extended,
	// even under Create: see the Index handling in Resolve.
	Create
)

// Result describes where a path landed: the parent compound node that
// would own the final segment, the final segment itself (so the
// caller can insert/overwrite/delete under the right name or index),
// and the resolved child, if any.
type Result struct {
	ParentKey valuekey.Key
	Parent    *node.Node
	Last      Segment
	Key       valuekey.Key // valuekey.Null if the child does not exist
	Child     *node.Node   // nil if the child does not exist
}

// Resolve walks p against t's current root. With zero segments ("$"
// alone) it resolves to the document root itself, with no parent.
func Resolve(t *txn.Transaction, p *Path, policy Policy) (*Result, error) {
	root, err := t.Root()
	if err != nil {
		return nil, err
	}
	if len(p.Segments) == 0 {
		return &Result{Key: valuekey.Root, Child: root}, nil
	}

	parentKey := valuekey.Root
	parent := root

	for i, seg := range p.Segments {
		last := i == len(p.Segments)-1

		childKey, found, err := lookup(p, parent, seg)
		if err != nil {
			return nil, err
		}

		if !found {
			// Array indexing is never subject to the resolution
			// policy -- it never auto-extends, and an out-of-bounds
			// index is always IndexOutOfBounds, even under Create and
			// even for the final segment.
			if seg.Kind == Index {
				n, lenErr := parent.ArrayLen()
				if lenErr != nil {
					return nil, lenErr
				}
				return nil, jsonerr.IndexOutOfBounds(p.raw, seg.Index, n)
			}

			switch policy {
			case Throw:
				return nil, jsonerr.PathNotFound(p.raw, segmentLabel(seg))
			case ReturnNull:
				return &Result{ParentKey: parentKey, Parent: parent, Last: seg, Key: valuekey.Null}, nil
			case Create:
				if last {
					return &Result{ParentKey: parentKey, Parent: parent, Last: seg, Key: valuekey.Null}, nil
				}
				childKey, err = materialize(t, parent, seg)
				if err != nil {
					return nil, err
				}
			}
		}

		if last {
			child, found, err := t.Retrieve(childKey)
			if err != nil {
				return nil, err
			}
			if !found {
				return nil, jsonerr.CorruptNode(uint32(childKey), "referenced node is missing")
			}
			return &Result{ParentKey: parentKey, Parent: parent, Last: seg, Key: childKey, Child: child}, nil
		}

		child, found, err := t.Retrieve(childKey)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, jsonerr.CorruptNode(uint32(childKey), "referenced node is missing")
		}
		parentKey = childKey
		parent = child
	}
	panic("unreachable")
}

func lookup(p *Path, parent *node.Node, seg Segment) (valuekey.Key, bool, error) {
	switch parent.Kind() {
	case node.Object:
		if seg.Kind != Name {
			return 0, false, jsonerr.TypeMismatch(p.raw, "index an object by position", parent.Kind().Name())
		}
		return parent.ObjectGet(seg.Name)
	case node.Array:
		if seg.Kind != Index {
			return 0, false, jsonerr.TypeMismatch(p.raw, "select an array by name", parent.Kind().Name())
		}
		n, err := parent.ArrayLen()
		if err != nil {
			return 0, false, err
		}
		if seg.Index < 0 || seg.Index >= n {
			return 0, false, nil
		}
		k, err := parent.ArrayGet(seg.Index)
		return k, true, err
	default:
		return 0, false, jsonerr.TypeMismatch(p.raw, "navigate into a scalar", parent.Kind().Name())
	}
}

// materialize creates the missing intermediate container at seg under
// parent, persists it, links it into parent, and persists parent.
// Creation only ever inserts an Object placeholder: intermediate path
// components are always Objects, never Arrays, regardless of what the
// next segment looks like. An Array-by-index lookup against a freshly
// created Object still fails the normal way (TypeMismatch); arrays
// are never auto-extended or auto-created by path resolution.
//
// parent is always an Object here: lookup already rejected a Name
// segment against a non-Object parent before this is reached.
func materialize(t *txn.Transaction, parent *node.Node, seg Segment) (valuekey.Key, error) {
	key := t.GenerateKey()
	child := node.NewObject(key, nil)
	if err := t.Store(child); err != nil {
		return 0, err
	}
	if err := parent.ObjectInsert(seg.Name, key); err != nil {
		return 0, err
	}
	if err := t.Store(parent); err != nil {
		return 0, err
	}
	return key, nil
}

func segmentLabel(seg Segment) string {
	if seg.Kind == Name {
		return seg.Name
	}
	return "[" + strconv.Itoa(seg.Index) + "]"
}
