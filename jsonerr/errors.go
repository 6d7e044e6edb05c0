// Package jsonerr defines the typed error kinds raised across JsonDb.
//
// Every kind is a package-level sentinel wrapped with xerrors so that
// callers can test with errors.Is/errors.As while still getting a
// descriptive, path-quoting message at the point of failure. Kind
// recovers the sentinel from any error returned by this package, and
// Path recovers the offending path expression where one was attached,
// for callers that want to branch on
// error kind rather than match against a formatted message.
package jsonerr

import (
	"errors"

	"golang.org/x/xerrors"
)

// Sentinel error kinds. Wrap these with xerrors.Errorf("...: %w", ...)
// rather than returning them bare, so the message carries context.
var (
	ErrPathSyntax       = xerrors.New("path syntax")
	ErrPathNotFound     = xerrors.New("path not found")
	ErrIndexOutOfBounds = xerrors.New("index out of bounds")
	ErrTypeMismatch     = xerrors.New("type mismatch")
	ErrJsonSyntax       = xerrors.New("json syntax")
	ErrCorruptNode      = xerrors.New("corrupt node")
	ErrStorageError     = xerrors.New("storage error")
)

// PathSyntax wraps ErrPathSyntax with the offending expression.
func PathSyntax(expr string, reason string) error {
	return withPath(expr, xerrors.Errorf("invalid path %q: %s: %w", expr, reason, ErrPathSyntax))
}

// PathNotFound wraps ErrPathNotFound with the offending path and segment.
func PathNotFound(path string, segment string) error {
	return withPath(path, xerrors.Errorf("path %q not found: missing %q: %w", path, segment, ErrPathNotFound))
}

// IndexOutOfBounds wraps ErrIndexOutOfBounds with the offending path and index.
func IndexOutOfBounds(path string, index, length int) error {
	return withPath(path, xerrors.Errorf("path %q: index %d out of bounds (length %d): %w", path, index, length, ErrIndexOutOfBounds))
}

// TypeMismatch wraps ErrTypeMismatch describing what was expected vs found.
func TypeMismatch(path string, op string, gotType string) error {
	return withPath(path, xerrors.Errorf("path %q: cannot %s, node is of type %q: %w", path, op, gotType, ErrTypeMismatch))
}

// JsonSyntax wraps ErrJsonSyntax with a parse position and reason.
func JsonSyntax(reason string, pos int) error {
	return xerrors.Errorf("json syntax error at offset %d: %s: %w", pos, reason, ErrJsonSyntax)
}

// CorruptNode wraps ErrCorruptNode describing the offending key and reason.
func CorruptNode(key uint32, reason string) error {
	return xerrors.Errorf("corrupt node at key %d: %s: %w", key, reason, ErrCorruptNode)
}

// StorageError wraps ErrStorageError describing the failing KV operation.
func StorageError(op string, cause error) error {
	return xerrors.Errorf("storage error during %s: %v: %w", op, cause, ErrStorageError)
}

// pathTagged carries the path expression a jsonerr constructor was
// called with, alongside the formatted error it annotates, so Path can
// recover it without re-parsing the message string.
type pathTagged struct {
	err  error
	path string
}

func (e *pathTagged) Error() string { return e.err.Error() }
func (e *pathTagged) Unwrap() error { return e.err }

// withPath tags err with path, unless path is empty (some callers --
// e.g. the node package's typed accessors -- raise a TypeMismatch
// before a path expression is known; such an error is returned to the
// caller as it is and carries no path).
func withPath(path string, err error) error {
	if path == "" {
		return err
	}
	return &pathTagged{err: err, path: path}
}

// Path recovers the path expression attached to err by PathSyntax,
// PathNotFound, IndexOutOfBounds, or TypeMismatch. ok is false if err
// (or anything it wraps) was never tagged with a path.
func Path(err error) (path string, ok bool) {
	var tagged *pathTagged
	if errors.As(err, &tagged) {
		return tagged.path, true
	}
	return "", false
}

// kinds lists every sentinel Kind can recognize, most specific first
// (none currently overlap, but the order keeps future additions safe).
var kinds = []error{
	ErrPathSyntax,
	ErrPathNotFound,
	ErrIndexOutOfBounds,
	ErrTypeMismatch,
	ErrJsonSyntax,
	ErrCorruptNode,
	ErrStorageError,
}

// Kind returns the sentinel (one of the Err* package variables) that
// err was built from, for callers that want to switch on error kind
// instead of matching a formatted message. ok is false if err does not
// wrap any sentinel this package defines.
func Kind(err error) (kind error, ok bool) {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k, true
		}
	}
	return nil, false
}
