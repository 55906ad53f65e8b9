// Package mmap provides anonymous memory mappings for off-heap allocation.
//
// The flat address-space table is far too large for the Go heap: 4 bytes
// for every IPv4 address per provider. An anonymous, non-reserved mapping
// gives zero-filled virtual memory whose pages are only committed when
// first written, keeps the allocation invisible to the garbage collector,
// and is released in a single munmap.
//
// Only 64-bit Unix platforms are supported; on anything else MapAnon
// returns an error.
package mmap

import (
	"errors"
	"sync/atomic"
)

var (
	// ErrClosed is returned when accessing a closed mapping.
	ErrClosed = errors.New("mmap: mapping is closed")
	// ErrInvalidSize is returned for non-positive mapping sizes.
	ErrInvalidSize = errors.New("mmap: invalid size")
	// ErrUnsupported is returned on platforms without anonymous mappings.
	ErrUnsupported = errors.New("mmap: not supported on this platform")
)

// Mapping owns an anonymous memory region and is responsible for unmapping
// it. Concurrent reads are fine; Close is idempotent.
type Mapping struct {
	data   []byte
	closed atomic.Bool
	unmap  func([]byte) error
}

// MapAnon creates a zero-filled anonymous mapping of the given size. Pages
// are committed lazily on first write.
func MapAnon(size int64) (*Mapping, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}

	data, unmap, err := osMapAnon(size)
	if err != nil {
		return nil, err
	}

	return &Mapping{data: data, unmap: unmap}, nil
}

// Bytes returns the mapped region. The slice is valid until Close.
func (m *Mapping) Bytes() []byte {
	if m.closed.Load() {
		return nil
	}
	return m.data
}

// Close unmaps the region. It is idempotent.
func (m *Mapping) Close() error {
	if m.closed.Swap(true) {
		return nil
	}

	data := m.data
	m.data = nil
	if m.unmap == nil || data == nil {
		return nil
	}
	return m.unmap(data)
}
