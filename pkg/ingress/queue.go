// ABOUTME: Bounded lock-free multi-producer queue for switch commands
// ABOUTME: Sequence-numbered ring cells with a drop-oldest overflow policy
package ingress

import (
	"runtime"
	"sync/atomic"
)

const (
	// DefaultCapacity is large enough to absorb any realistic burst of
	// operator commands between two audio callbacks.
	DefaultCapacity = 1024

	cacheLine = 64
)

// Command asks the audio callback to fade to another input bus.
// Source has already been validated against the input count.
type Command struct {
	Source int
}

type cell struct {
	seq atomic.Uint64
	cmd Command
}

// Queue is a bounded MPMC ring (Vyukov) used as MPSC. Producers never block:
// a Send on a full queue evicts the oldest command.
type Queue struct {
	_       [cacheLine]byte
	enqueue atomic.Uint64
	_       [cacheLine - 8]byte
	dequeue atomic.Uint64
	_       [cacheLine - 8]byte
	dropped atomic.Uint64
	sent    atomic.Uint64

	mask  uint64
	cells []cell
}

// NewQueue creates a queue holding at least capacity commands.
// Capacity is rounded up to a power of two; values below 2 use DefaultCapacity.
func NewQueue(capacity int) *Queue {
	if capacity < 2 {
		capacity = DefaultCapacity
	}
	size := uint64(1)
	for size < uint64(capacity) {
		size <<= 1
	}

	q := &Queue{
		mask:  size - 1,
		cells: make([]cell, size),
	}
	for i := range q.cells {
		q.cells[i].seq.Store(uint64(i))
	}
	return q
}

// Send enqueues cmd. It never blocks and never fails; if the queue is full
// the oldest pending command is discarded and counted in Dropped.
func (q *Queue) Send(cmd Command) {
	for !q.tryEnqueue(cmd) {
		if _, ok := q.TryReceive(); ok {
			q.dropped.Add(1)
			continue
		}
		// Full, yet the head cell is still being written by another
		// producer. Let it finish.
		runtime.Gosched()
	}
	q.sent.Add(1)
}

// TryReceive returns the oldest queued command, or false if none is ready.
func (q *Queue) TryReceive() (Command, bool) {
	pos := q.dequeue.Load()
	for {
		c := &q.cells[pos&q.mask]
		seq := c.seq.Load()
		switch dif := int64(seq) - int64(pos+1); {
		case dif == 0:
			if q.dequeue.CompareAndSwap(pos, pos+1) {
				cmd := c.cmd
				c.seq.Store(pos + q.mask + 1)
				return cmd, true
			}
			pos = q.dequeue.Load()
		case dif < 0:
			return Command{}, false
		default:
			pos = q.dequeue.Load()
		}
	}
}

func (q *Queue) tryEnqueue(cmd Command) bool {
	pos := q.enqueue.Load()
	for {
		c := &q.cells[pos&q.mask]
		seq := c.seq.Load()
		switch dif := int64(seq) - int64(pos); {
		case dif == 0:
			if q.enqueue.CompareAndSwap(pos, pos+1) {
				c.cmd = cmd
				c.seq.Store(pos + 1)
				return true
			}
			pos = q.enqueue.Load()
		case dif < 0:
			return false
		default:
			pos = q.enqueue.Load()
		}
	}
}

// Len returns an approximate number of queued commands.
func (q *Queue) Len() int {
	n := int64(q.enqueue.Load()) - int64(q.dequeue.Load())
	if n < 0 {
		return 0
	}
	if n > int64(len(q.cells)) {
		return len(q.cells)
	}
	return int(n)
}

// Cap returns the queue capacity.
func (q *Queue) Cap() int { return len(q.cells) }

// Dropped returns how many commands were evicted by overflow.
func (q *Queue) Dropped() uint64 { return q.dropped.Load() }

// Sent returns how many commands were accepted by Send.
func (q *Queue) Sent() uint64 { return q.sent.Load() }
