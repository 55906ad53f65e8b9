//go:build linux || darwin

package mmap

import (
	"math"

	"golang.org/x/sys/unix"
)

func osMapAnon(size int64) ([]byte, func([]byte) error, error) {
	if size > math.MaxInt {
		return nil, nil, ErrInvalidSize
	}

	prot := unix.PROT_READ | unix.PROT_WRITE
	// MAP_NORESERVE: the table is sparse by design; commit pages on first
	// write instead of reserving swap for the whole address space.
	flags := unix.MAP_ANON | unix.MAP_PRIVATE | unix.MAP_NORESERVE

	data, err := unix.Mmap(-1, 0, int(size), prot, flags)
	if err != nil {
		return nil, nil, err
	}

	return data, unix.Munmap, nil
}
