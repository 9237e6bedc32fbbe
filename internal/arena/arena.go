// Package arena provides a bump allocator for the clustering scratch state.
//
// One clustering call allocates every bound table, assignment array and
// centroid accumulator from a single anonymous mapping sized up front.
// Close releases the whole mapping at once, so scratch memory is returned
// deterministically on every exit path, success or error.
//
// A Scratch arena is exclusively owned by one clustering call and is not
// safe for concurrent use.
package arena

import (
	"errors"
	"unsafe"

	"github.com/hupe1980/ivfgo/internal/mmap"
)

// ErrArenaFull is returned when an allocation exceeds the arena capacity.
var ErrArenaFull = errors.New("arena: out of space")

// alignment for all allocations, in bytes.
const alignment = 8

// Scratch is a fixed-capacity bump allocator backed by an anonymous
// memory mapping.
type Scratch struct {
	mapping *mmap.Mapping
	buf     []byte
	offset  int
}

// NewScratch creates a Scratch arena with the given capacity in bytes.
func NewScratch(size int) (*Scratch, error) {
	m, err := mmap.MapAnon(size)
	if err != nil {
		return nil, err
	}

	return &Scratch{
		mapping: m,
		buf:     m.Bytes(),
	}, nil
}

func (s *Scratch) alloc(size int) ([]byte, error) {
	mask := alignment - 1
	start := (s.offset + mask) &^ mask

	if size < 0 || start+size > len(s.buf) {
		return nil, ErrArenaFull
	}

	s.offset = start + size
	return s.buf[start : start+size : start+size], nil
}

// AllocFloat32Slice allocates a zeroed float32 slice of the given length.
func (s *Scratch) AllocFloat32Slice(n int) ([]float32, error) {
	if n == 0 {
		return nil, nil
	}

	b, err := s.alloc(n * int(unsafe.Sizeof(float32(0))))
	if err != nil {
		return nil, err
	}

	return unsafe.Slice((*float32)(unsafe.Pointer(&b[0])), n), nil //nolint:gosec // arena-backed slice
}

// AllocInt32Slice allocates a zeroed int32 slice of the given length.
func (s *Scratch) AllocInt32Slice(n int) ([]int32, error) {
	if n == 0 {
		return nil, nil
	}

	b, err := s.alloc(n * int(unsafe.Sizeof(int32(0))))
	if err != nil {
		return nil, err
	}

	return unsafe.Slice((*int32)(unsafe.Pointer(&b[0])), n), nil //nolint:gosec // arena-backed slice
}

// Used returns the number of bytes handed out, including alignment padding.
func (s *Scratch) Used() int {
	return s.offset
}

// Cap returns the arena capacity in bytes.
func (s *Scratch) Cap() int {
	return len(s.buf)
}

// Close releases the backing mapping. All slices allocated from the arena
// become invalid. Close is idempotent.
func (s *Scratch) Close() error {
	s.buf = nil
	s.offset = 0
	return s.mapping.Close()
}
