//go:build !linux && !darwin

package mmap

func osMapAnon(size int64) ([]byte, func([]byte) error, error) {
	return nil, nil, ErrUnsupported
}
