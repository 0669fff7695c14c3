// Package ring provides fixed-capacity FIFO containers used to stage
// bytes and messages between the socket and the connection state machine
// without per-call allocation.
package ring

import (
	"fmt"
	"slices"
)

// ByteRing is a fixed-capacity FIFO of bytes backed by contiguous storage.
// It supports partial reads and writes: put appends what fits, peek
// returns a contiguous view of the front without consuming it, and trim
// drops a consumed prefix. This lets a codec parse a header in place and
// only commit consumption once it knows enough bytes are available.
type ByteRing struct {
	buf   []byte
	start int
	size  int
}

// NewByteRing creates a byte ring with the given fixed capacity.
func NewByteRing(capacity int) *ByteRing {
	return &ByteRing{buf: make([]byte, capacity)}
}

// Capacity returns the ring's fixed storage size.
func (r *ByteRing) Capacity() int {
	return len(r.buf)
}

// Size returns the number of bytes currently queued.
func (r *ByteRing) Size() int {
	return r.size
}

// Free returns the number of bytes that can still be Put.
func (r *ByteRing) Free() int {
	return len(r.buf) - r.size
}

// Clear drops all queued bytes.
func (r *ByteRing) Clear() {
	r.start = 0
	r.size = 0
}

// Put appends src to the back of the ring. Fails if src does not fit in
// the remaining capacity.
func (r *ByteRing) Put(src []byte) error {
	if len(src) > r.Free() {
		return fmt.Errorf("ring: put %d bytes exceeds free capacity %d", len(src), r.Free())
	}
	cap := len(r.buf)
	pos := (r.start + r.size) % cap
	n := copy(r.buf[pos:], src)
	if n < len(src) {
		copy(r.buf, src[n:])
	}
	r.size += len(src)
	return nil
}

// Peek returns a contiguous view of the first n bytes without consuming
// them. The ring compacts in place (rotating start to zero) when the
// requested view wraps around the backing array, so the returned slice
// is always contiguous and safe to read directly.
func (r *ByteRing) Peek(n int) ([]byte, error) {
	if n > r.size {
		return nil, fmt.Errorf("ring: peek %d bytes exceeds queued size %d", n, r.size)
	}
	if n == 0 {
		return r.buf[r.start:r.start], nil
	}
	cap := len(r.buf)
	if r.start+n <= cap {
		return r.buf[r.start : r.start+n], nil
	}
	r.compact()
	return r.buf[r.start : r.start+n], nil
}

// Trim drops the first n bytes from the front of the ring.
func (r *ByteRing) Trim(n int) error {
	if n > r.size {
		return fmt.Errorf("ring: trim %d bytes exceeds queued size %d", n, r.size)
	}
	r.start = (r.start + n) % len(r.buf)
	r.size -= n
	if r.size == 0 {
		r.start = 0
	}
	return nil
}

// compact rotates the queued bytes so that start becomes 0, making the
// full queued region contiguous.
func (r *ByteRing) compact() {
	if r.start == 0 {
		return
	}
	slices.Reverse(r.buf[:r.start])
	slices.Reverse(r.buf[r.start:])
	slices.Reverse(r.buf)
	r.start = 0
}
