// Package mmap provides anonymous memory mappings for off-heap scratch
// allocation.
//
// The clustering loop allocates its bound tables from a single anonymous
// mapping so the scratch memory stays outside the garbage collector's
// control and is returned to the OS the moment the call finishes.
//
// Unix platforms use mmap(2); Windows falls back to a heap allocation.
package mmap

import (
	"errors"
	"sync/atomic"
)

// ErrInvalidSize is returned when a mapping is requested with a
// non-positive size.
var ErrInvalidSize = errors.New("mmap: invalid size")

// Mapping represents an anonymous read-write memory mapping.
// It owns the underlying byte slice and is responsible for unmapping it.
type Mapping struct {
	data   []byte
	closed atomic.Bool
	// unmap is the platform-specific function to release the memory.
	unmap func([]byte) error
}

// MapAnon creates a read-write anonymous mapping of the given size.
func MapAnon(size int) (*Mapping, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}

	data, unmap, err := mapAnon(size)
	if err != nil {
		return nil, err
	}

	return &Mapping{data: data, unmap: unmap}, nil
}

// Bytes returns the mapped memory. The slice is invalid after Close.
func (m *Mapping) Bytes() []byte {
	return m.data
}

// Len returns the size of the mapping in bytes.
func (m *Mapping) Len() int {
	return len(m.data)
}

// Close releases the mapping. It is idempotent.
func (m *Mapping) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}

	data := m.data
	m.data = nil

	if m.unmap == nil || data == nil {
		return nil
	}
	return m.unmap(data)
}
