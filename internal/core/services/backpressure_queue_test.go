package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBackpressureQueue_FIFOOrder(t *testing.T) {
	q := NewBackpressureQueue()
	q.Enqueue([]byte("a"))
	q.Enqueue([]byte("b"))
	q.Enqueue([]byte("c"))
	assert.Equal(t, 3, q.Len())

	var written [][]byte
	n := q.Drain(func(line []byte) bool {
		written = append(written, line)
		return true
	})
	assert.Equal(t, 3, n)
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b"), []byte("c")}, written)
	assert.Equal(t, 0, q.Len())
}

func TestBackpressureQueue_DrainStopsOnBackpressure(t *testing.T) {
	q := NewBackpressureQueue()
	q.Enqueue([]byte("a"))
	q.Enqueue([]byte("b"))
	q.Enqueue([]byte("c"))

	calls := 0
	n := q.Drain(func(line []byte) bool {
		calls++
		return calls < 2 // accept the first, reject the second
	})
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, q.Len())
}

func TestBackpressureQueue_DiscardRejectsFurtherEnqueues(t *testing.T) {
	q := NewBackpressureQueue()
	q.Enqueue([]byte("a"))
	q.Discard()
	assert.Equal(t, 0, q.Len())

	ok := q.Enqueue([]byte("b"))
	assert.False(t, ok)
	assert.Equal(t, 0, q.Len())
}

func TestBackpressureQueue_DrainOnEmptyQueue(t *testing.T) {
	q := NewBackpressureQueue()
	n := q.Drain(func(line []byte) bool {
		t.Fatal("write should not be called on an empty queue")
		return true
	})
	assert.Equal(t, 0, n)
}
