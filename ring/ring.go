// Package ring provides the bounded, lock-free single-producer/
// single-consumer queue used for every per-agent inbox and the
// telemetry pipeline's frame buffer.
//
// It wraps code.hybscloud.com/lfq's SPSC[T] rather than reimplementing
// Lamport's cached-index ring buffer: the library already provides the
// cache-line-padded head/tail and release/acquire ordering this
// component needs. lfq deliberately omits a Size/Empty/Full API (its
// own doc comments recommend tracking counts in application logic when
// exact occupancy matters), so Ring layers its own atomic counters
// alongside the wrapped queue for that purpose.
package ring

import (
	"errors"
	"sync/atomic"

	"code.hybscloud.com/lfq"
)

// ErrFull is returned by TryEnqueue when the ring has no free slot.
var ErrFull = errors.New("ring: full")

// ErrEmpty is returned by TryDequeue when the ring holds no element.
var ErrEmpty = errors.New("ring: empty")

// Ring is a bounded SPSC queue of T with an approximate occupancy
// counter. Like the underlying lfq.SPSC, it must have exactly one
// producer goroutine calling TryEnqueue and exactly one consumer
// goroutine calling TryDequeue.
type Ring[T any] struct {
	q        *lfq.SPSC[T]
	capacity int64
	size     atomic.Int64
}

// New creates a Ring with room for at least capacity elements
// (rounded up to the next power of 2 by the underlying queue).
func New[T any](capacity int) *Ring[T] {
	q := lfq.NewSPSC[T](capacity)
	r := &Ring[T]{q: q, capacity: int64(q.Cap())}
	return r
}

// TryEnqueue adds elem to the ring, returning ErrFull if there is no
// free slot. It never blocks.
func (r *Ring[T]) TryEnqueue(elem T) error {
	if err := r.q.Enqueue(&elem); err != nil {
		return ErrFull
	}
	r.size.Add(1)
	return nil
}

// TryDequeue removes and returns the oldest element, returning
// ErrEmpty if the ring holds nothing. It never blocks.
func (r *Ring[T]) TryDequeue() (T, error) {
	v, err := r.q.Dequeue()
	if err != nil {
		var zero T
		return zero, ErrEmpty
	}
	r.size.Add(-1)
	return v, nil
}

// Cap returns the ring's actual capacity (a power of 2, >= the
// capacity requested at construction).
func (r *Ring[T]) Cap() int {
	return int(r.capacity)
}

// Size returns the approximate number of queued elements. Because
// enqueue/dequeue happen concurrently with this read, the value is a
// snapshot, not a guarantee — callers use it for metrics and
// backpressure heuristics, never for correctness decisions.
func (r *Ring[T]) Size() int {
	n := r.size.Load()
	if n < 0 {
		return 0
	}
	return int(n)
}

// Empty reports whether Size observed no queued elements.
func (r *Ring[T]) Empty() bool {
	return r.size.Load() <= 0
}

// Full reports whether Size observed the ring at capacity.
func (r *Ring[T]) Full() bool {
	return r.size.Load() >= r.capacity
}
