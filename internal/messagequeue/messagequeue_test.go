package messagequeue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeBeforePushDeliversOnPush(t *testing.T) {
	q := New[string]()

	ch := q.Subscribe(0)

	q.Push("a", "b")

	select {
	case d := <-ch:
		assert.Equal(t, 2, d.Cursor)
		assert.Equal(t, []string{"a", "b"}, d.Messages)
	case <-time.After(time.Second):
		t.Fatal("subscriber was never woken")
	}
}

func TestSubscribeAfterPushDeliversImmediately(t *testing.T) {
	q := New[string]()
	q.Push("a", "b", "c")

	ch := q.Subscribe(1)

	select {
	case d := <-ch:
		assert.Equal(t, 3, d.Cursor)
		assert.Equal(t, []string{"b", "c"}, d.Messages)
	case <-time.After(time.Second):
		t.Fatal("already-satisfied subscribe did not deliver immediately")
	}
}

func TestSubscribeAtCurrentCursorWaits(t *testing.T) {
	q := New[string]()
	q.Push("a")

	ch := q.Subscribe(1)

	select {
	case <-ch:
		t.Fatal("subscriber fired before any new message was pushed")
	case <-time.After(20 * time.Millisecond):
	}

	q.Push("b")

	select {
	case d := <-ch:
		assert.Equal(t, []string{"b"}, d.Messages)
	case <-time.After(time.Second):
		t.Fatal("subscriber was never woken by the later push")
	}
}

func TestCursorTracksHistoryLength(t *testing.T) {
	q := New[int]()
	assert.Equal(t, 0, q.Cursor())
	q.Push(1, 2, 3)
	assert.Equal(t, 3, q.Cursor())
}

func TestSinkRoundTrip(t *testing.T) {
	dir := t.TempDir()
	sink, err := OpenSink(dir + "/history.db")
	require.NoError(t, err)
	defer sink.Close()

	require.NoError(t, sink.Append(0, []byte("first")))
	require.NoError(t, sink.Append(1, []byte("second")))

	records, err := sink.LoadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("first"), []byte("second")}, records)
}
