package mmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapAnon(t *testing.T) {
	t.Run("InvalidSize", func(t *testing.T) {
		_, err := MapAnon(0)
		assert.ErrorIs(t, err, ErrInvalidSize)

		_, err = MapAnon(-1)
		assert.ErrorIs(t, err, ErrInvalidSize)
	})

	t.Run("ZeroFilledAndWritable", func(t *testing.T) {
		m, err := MapAnon(1 << 20)
		if err != nil {
			t.Skipf("anonymous mappings unavailable: %v", err)
		}
		defer m.Close()

		b := m.Bytes()
		require.Len(t, b, 1<<20)
		assert.Zero(t, b[0])
		assert.Zero(t, b[len(b)-1])

		b[0] = 0xab
		b[len(b)-1] = 0xcd
		assert.Equal(t, byte(0xab), m.Bytes()[0])
		assert.Equal(t, byte(0xcd), m.Bytes()[len(b)-1])
	})

	t.Run("LazyCommit", func(t *testing.T) {
		// The virtual size can exceed physical memory; only touched pages
		// get committed.
		m, err := MapAnon(1 << 36)
		if err != nil {
			t.Skipf("anonymous mappings unavailable: %v", err)
		}
		defer m.Close()

		b := m.Bytes()
		b[0] = 1
		b[len(b)-1] = 1
	})
}

func TestMappingClose(t *testing.T) {
	m, err := MapAnon(4096)
	if err != nil {
		t.Skipf("anonymous mappings unavailable: %v", err)
	}

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	assert.Nil(t, m.Bytes())
}
