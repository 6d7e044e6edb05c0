package node

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/wvankleunen/jsondb/jsonerr"
	"github.com/wvankleunen/jsondb/valuekey"
)

// Encode/Decode implement the on-disk binary layout: a one-byte
// type tag followed by a variant-specific payload. Counts and lengths
// are 32-bit little-endian throughout.
//
// Object entries are written in lexicographic name order so two
// writers that store the same logical object always produce
// byte-identical records.

func readByte(r io.Reader) (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func writeByte(w io.Writer, b byte) error {
	_, err := w.Write([]byte{b})
	return err
}

func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func writeUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func writeUint64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readBytes32(r io.Reader) ([]byte, error) {
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return []byte{}, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func writeBytes32(w io.Writer, data []byte) error {
	if err := writeUint32(w, uint32(len(data))); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

// Encode writes the node's on-disk record, not including its key (the
// key is the storage index the node is filed under, not part of the
// record payload).
func (n *Node) Encode(w io.Writer) error {
	if err := writeByte(w, byte(n.kind)); err != nil {
		return err
	}
	switch n.kind {
	case Null:
		return nil
	case Integer:
		return writeUint32(w, uint32(n.i))
	case Real:
		return writeUint64(w, math.Float64bits(n.r))
	case Boolean:
		if n.b {
			return writeByte(w, 1)
		}
		return writeByte(w, 0)
	case String:
		return writeBytes32(w, []byte(n.s))
	case Array:
		if err := writeUint32(w, uint32(len(n.arr))); err != nil {
			return err
		}
		for _, k := range n.arr {
			if err := writeUint32(w, uint32(k)); err != nil {
				return err
			}
		}
		return nil
	case Object:
		names, err := n.ObjectNames()
		if err != nil {
			return err
		}
		if err := writeUint32(w, uint32(len(names))); err != nil {
			return err
		}
		for _, name := range names {
			if err := writeBytes32(w, []byte(name)); err != nil {
				return err
			}
			if err := writeUint32(w, uint32(n.obj[name])); err != nil {
				return err
			}
		}
		return nil
	default:
		// Unreachable: every *Node in memory was built by one of this
		// package's constructors, each of which sets a valid Kind.
		assert(false, "encode: node at key %d has invalid kind %v", n.key, n.kind)
		return nil
	}
}

// Decode reconstructs a node from its on-disk record, filing it under
// key. A malformed tag byte or truncated payload is reported as
// CorruptNode rather than a bare io error, so callers can distinguish
// "database is damaged" from "disk read failed".
func Decode(key valuekey.Key, r io.Reader) (*Node, error) {
	tag, err := readByte(r)
	if err != nil {
		return nil, jsonerr.CorruptNode(uint32(key), "truncated record: missing type tag")
	}
	kind := Kind(tag)
	switch kind {
	case Null:
		return NewNull(key), nil
	case Integer:
		v, err := readUint32(r)
		if err != nil {
			return nil, jsonerr.CorruptNode(uint32(key), "truncated integer payload")
		}
		return NewInteger(key, int32(v)), nil
	case Real:
		v, err := readUint64(r)
		if err != nil {
			return nil, jsonerr.CorruptNode(uint32(key), "truncated real payload")
		}
		return NewReal(key, math.Float64frombits(v)), nil
	case Boolean:
		v, err := readByte(r)
		if err != nil {
			return nil, jsonerr.CorruptNode(uint32(key), "truncated boolean payload")
		}
		return NewBoolean(key, v != 0), nil
	case String:
		v, err := readBytes32(r)
		if err != nil {
			return nil, jsonerr.CorruptNode(uint32(key), "truncated string payload")
		}
		return NewString(key, string(v)), nil
	case Array:
		count, err := readUint32(r)
		if err != nil {
			return nil, jsonerr.CorruptNode(uint32(key), "truncated array length")
		}
		children := make([]valuekey.Key, count)
		for i := range children {
			v, err := readUint32(r)
			if err != nil {
				return nil, jsonerr.CorruptNode(uint32(key), "truncated array entry")
			}
			children[i] = valuekey.Key(v)
		}
		return NewArray(key, children), nil
	case Object:
		count, err := readUint32(r)
		if err != nil {
			return nil, jsonerr.CorruptNode(uint32(key), "truncated object length")
		}
		entries := make(map[string]valuekey.Key, count)
		for i := uint32(0); i < count; i++ {
			name, err := readBytes32(r)
			if err != nil {
				return nil, jsonerr.CorruptNode(uint32(key), "truncated object entry name")
			}
			v, err := readUint32(r)
			if err != nil {
				return nil, jsonerr.CorruptNode(uint32(key), "truncated object entry value")
			}
			entries[string(name)] = valuekey.Key(v)
		}
		return NewObject(key, entries), nil
	default:
		return nil, jsonerr.CorruptNode(uint32(key), "unrecognized type tag")
	}
}
