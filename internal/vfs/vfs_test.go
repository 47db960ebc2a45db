package vfs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rojo-rbx/rojo-core/internal/rojoerr"
)

func TestMemoryBackendReadWriteRoundTrip(t *testing.T) {
	b := NewMemoryBackend()
	v := New(b, true)
	defer v.Close()

	require.NoError(t, v.CreateDirAll("/project"))
	require.NoError(t, v.Write("/project/a.txt", []byte("hello")))

	data, err := v.Read("/project/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestReadMissingIsNotFound(t *testing.T) {
	b := NewMemoryBackend()
	v := New(b, true)
	defer v.Close()

	_, err := v.Read("/missing.txt")
	require.Error(t, err)
	var nf *rojoerr.NotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestReadToStringLFNormalized(t *testing.T) {
	b := NewMemoryBackend()
	v := New(b, true)
	defer v.Close()

	require.NoError(t, v.Write("/a.txt", []byte("one\r\ntwo\r\nthree")))
	s, err := v.ReadToStringLFNormalized("/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\nthree", s)
}

func TestResidencyAndCommitChange(t *testing.T) {
	b := NewMemoryBackend()
	v := New(b, true)
	defer v.Close()

	require.NoError(t, v.CreateDirAll("/project"))
	_, err := v.ReadDir("/project")
	require.NoError(t, err)

	require.NoError(t, v.Write("/project/a.txt", []byte("1")))
	assert.True(t, v.IsResident("/project/a.txt"))

	// A change to a never-resident path is ignored.
	v.CommitChange(Event{Kind: Modified, Path: "/unrelated.txt"})
	_, ok := v.CachedItem("/unrelated.txt")
	assert.False(t, ok)

	// A change to a resident path refreshes its cache entry.
	v.CommitChange(Event{Kind: Modified, Path: "/project/a.txt"})
	item, ok := v.CachedItem("/project/a.txt")
	require.True(t, ok)
	assert.True(t, item.IsFile)
}

func TestNoopBackendAlwaysErrors(t *testing.T) {
	b := NewNoopBackend()
	v := New(b, false)
	defer v.Close()

	_, err := v.Read("/anything")
	assert.Error(t, err)
}
