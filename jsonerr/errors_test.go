package jsonerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSentinelsMatchWithErrorsIs(t *testing.T) {
	require.True(t, errors.Is(PathSyntax("$.a[", "unterminated"), ErrPathSyntax))
	require.True(t, errors.Is(PathNotFound("$.a.b", "b"), ErrPathNotFound))
	require.True(t, errors.Is(IndexOutOfBounds("$.a[5]", 5, 2), ErrIndexOutOfBounds))
	require.True(t, errors.Is(TypeMismatch("$.a", "read as integer", "String"), ErrTypeMismatch))
	require.True(t, errors.Is(JsonSyntax("bad token", 3), ErrJsonSyntax))
	require.True(t, errors.Is(CorruptNode(1000, "bad tag"), ErrCorruptNode))
	require.True(t, errors.Is(StorageError("get", errors.New("disk full")), ErrStorageError))
}

func TestErrorsDoNotCrossMatch(t *testing.T) {
	require.False(t, errors.Is(PathSyntax("$.a", "x"), ErrTypeMismatch))
}

func TestKindRecoversSentinel(t *testing.T) {
	kind, ok := Kind(IndexOutOfBounds("$.xs[3]", 3, 2))
	require.True(t, ok)
	require.True(t, kind == ErrIndexOutOfBounds)

	_, ok = Kind(errors.New("unrelated"))
	require.False(t, ok)
}

func TestPathRecoversOffendingExpression(t *testing.T) {
	path, ok := Path(PathNotFound("$.a.b", "b"))
	require.True(t, ok)
	require.Equal(t, "$.a.b", path)

	// TypeMismatch raised with no path known yet (e.g. a bare node
	// accessor) carries no recoverable path.
	_, ok = Path(TypeMismatch("", "read as integer", "String"))
	require.False(t, ok)
}
