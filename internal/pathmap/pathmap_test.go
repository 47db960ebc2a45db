package pathmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmoke(t *testing.T) {
	m := New[int]()
	m.Insert("/a", 1)
	m.Insert("/a/b", 2)

	v, ok := m.Get("/a/b")
	require.True(t, ok)
	assert.Equal(t, 2, v)

	assert.Equal(t, []string{"/a/b"}, m.Children("/a"))
}

func TestOrphans(t *testing.T) {
	m := New[int]()
	m.Insert("/a/b", 2) // parent /a not present yet

	assert.Equal(t, []string{"/a/b"}, m.Orphans())
	assert.False(t, m.Contains("/a"))

	m.Insert("/a", 1)
	assert.Equal(t, []string{"/a"}, m.Orphans()) // "/" is absent, so /a is now the orphan
	assert.Equal(t, []string{"/a/b"}, m.Children("/a"))
}

func TestRemoveOne(t *testing.T) {
	m := New[int]()
	m.Insert("/a", 1)

	removed := m.Remove("/a")
	require.Len(t, removed, 1)
	assert.Equal(t, "/a", removed[0].Path)
	assert.Equal(t, 1, removed[0].Value)
	assert.False(t, m.Contains("/a"))
}

func TestRemoveChild(t *testing.T) {
	m := New[int]()
	m.Insert("/a", 1)
	m.Insert("/a/b", 2)

	removed := m.Remove("/a/b")
	require.Len(t, removed, 1)
	assert.True(t, m.Contains("/a"))
	assert.Empty(t, m.Children("/a"))
}

func TestRemoveDescendant(t *testing.T) {
	m := New[int]()
	m.Insert("/a", 1)
	m.Insert("/a/b", 2)
	m.Insert("/a/b/c", 3)

	removed := m.Remove("/a")
	require.Len(t, removed, 3)
	assert.False(t, m.Contains("/a"))
	assert.False(t, m.Contains("/a/b"))
	assert.False(t, m.Contains("/a/b/c"))
}

func TestRemoveNotOrphanDescendants(t *testing.T) {
	m := New[int]()
	m.Insert("/a", 1)
	m.Insert("/a/b", 2)

	// /a/b/c has a parent (/a/b) already in the map, so it is never an
	// orphan, and removing /a/b must still cascade to it.
	m.Insert("/a/b/c", 3)

	m.Remove("/a/b")
	assert.True(t, m.Contains("/a"))
	assert.False(t, m.Contains("/a/b"))
	assert.False(t, m.Contains("/a/b/c"))
	assert.Equal(t, []string{"/a"}, m.Orphans())
}

func TestAddOrderSorted(t *testing.T) {
	m := New[int]()
	m.Insert("/a", 0)
	m.Insert("/a/z", 1)
	m.Insert("/a/b", 2)
	m.Insert("/a/m", 3)

	assert.Equal(t, []string{"/a/b", "/a/m", "/a/z"}, m.Children("/a"))
}

func TestIsDescendant(t *testing.T) {
	assert.True(t, IsDescendant("/a", "/a/b"))
	assert.True(t, IsDescendant("/a", "/a/b/c"))
	assert.False(t, IsDescendant("/a", "/a"))
	assert.False(t, IsDescendant("/a/b", "/a"))
	assert.False(t, IsDescendant("/a", "/ab"))
}
