package services

import "sync"

// BackpressureQueue buffers pending writes when the transport is not
// drain-ready (spec §4.7). Ordering is strictly FIFO; on Discard, any
// pending entries are dropped and further Enqueue calls fail.
type BackpressureQueue struct {
	mu        sync.Mutex
	entries   [][]byte
	discarded bool
}

// NewBackpressureQueue returns an empty queue.
func NewBackpressureQueue() *BackpressureQueue {
	return &BackpressureQueue{}
}

// Enqueue appends line to the tail of the queue.
func (q *BackpressureQueue) Enqueue(line []byte) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.discarded {
		return false
	}
	q.entries = append(q.entries, line)
	return true
}

// Drain repeatedly calls write with the head of the queue, removing
// each entry once write reports success, until the queue is empty or
// write reports the socket is full again (write returns false). It
// returns the number of entries successfully written.
func (q *BackpressureQueue) Drain(write func(line []byte) bool) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for len(q.entries) > 0 {
		if !write(q.entries[0]) {
			break
		}
		q.entries = q.entries[1:]
		n++
	}
	return n
}

// Len reports the number of entries currently queued.
func (q *BackpressureQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Discard empties the queue and marks it closed; subsequent Enqueue
// calls fail (spec §4.7, connector destroy()).
func (q *BackpressureQueue) Discard() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = nil
	q.discarded = true
}
