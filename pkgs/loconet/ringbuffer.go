package loconet

import (
	"sync/atomic"
	"time"
)

// RingBuffer is a fixed-capacity, single-producer/single-consumer byte
// queue. The producer is the Transport's receive goroutine; the consumer
// is the Framer running on the core's main loop. head/tail are accessed
// through atomics rather than C-style volatile fields, but the discipline
// is the same: head is written only by the producer, tail only by the
// consumer.
type RingBuffer struct {
	buf      []byte
	head     atomic.Uint32
	tail     atomic.Uint32
	capacity uint32
}

// NewRingBuffer allocates a ring of the given capacity. Capacity should be
// a power of two for cheap modulo, but any positive value works.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 64
	}
	return &RingBuffer{
		buf:      make([]byte, capacity),
		capacity: uint32(capacity),
	}
}

// Len reports the number of bytes currently available to the consumer.
func (r *RingBuffer) Len() int {
	head := r.head.Load()
	tail := r.tail.Load()
	return int((head + r.capacity - tail) % r.capacity)
}

// Full reports whether a Push would currently have to wait.
func (r *RingBuffer) Full() bool {
	next := (r.head.Load() + 1) % r.capacity
	return next == r.tail.Load()
}

// Push appends a byte to the ring. If the ring is full it spin-waits
// (yielding between attempts) until the consumer frees a slot. This is
// acceptable because the consumer runs at least at main-loop cadence
// against a producer bounded by the bus byte rate (~1.7 kHz at 16.66 kbit/s).
func (r *RingBuffer) Push(b byte) {
	for r.Full() {
		time.Sleep(time.Microsecond)
	}
	head := r.head.Load()
	r.buf[head] = b
	r.head.Store((head + 1) % r.capacity)
}

// TryPush is the non-blocking variant of Push; it returns ErrBufferFull
// instead of spinning.
func (r *RingBuffer) TryPush(b byte) error {
	if r.Full() {
		return ErrBufferFull
	}
	head := r.head.Load()
	r.buf[head] = b
	r.head.Store((head + 1) % r.capacity)
	return nil
}

// Peek returns the byte at offset bytes past tail without consuming it,
// and whether that offset is currently available.
func (r *RingBuffer) Peek(offset int) (byte, bool) {
	if offset >= r.Len() {
		return 0, false
	}
	idx := (r.tail.Load() + uint32(offset)) % r.capacity
	return r.buf[idx], true
}

// Advance moves tail forward by n bytes, discarding them from the consumer's
// point of view.
func (r *RingBuffer) Advance(n int) {
	tail := r.tail.Load()
	r.tail.Store((tail + uint32(n)) % r.capacity)
}

// Writer returns the raw head index.
func (r *RingBuffer) Writer() uint32 { return r.head.Load() }

// Reader returns the raw tail index.
func (r *RingBuffer) Reader() uint32 { return r.tail.Load() }

// Capacity returns the ring's fixed size.
func (r *RingBuffer) Capacity() uint32 { return r.capacity }
