package index_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/ipmeta/index"

	_ "github.com/hupe1980/ipmeta/index/intervaltree"
	_ "github.com/hupe1980/ipmeta/index/patricia"
)

func TestRegistry(t *testing.T) {
	t.Run("TypeFromName", func(t *testing.T) {
		typ, ok := index.TypeFromName("patricia")
		require.True(t, ok)
		assert.Equal(t, index.TypePatricia, typ)

		typ, ok = index.TypeFromName("intervaltree")
		require.True(t, ok)
		assert.Equal(t, index.TypeIntervalTree, typ)

		_, ok = index.TypeFromName("btree")
		assert.False(t, ok)
	})

	t.Run("Names", func(t *testing.T) {
		names := index.Names()
		assert.Contains(t, names, "patricia")
		assert.Contains(t, names, "intervaltree")
	})

	t.Run("New", func(t *testing.T) {
		idx, err := index.New(index.TypePatricia, nil)
		require.NoError(t, err)
		assert.Equal(t, "patricia", idx.Name())
		require.NoError(t, idx.Close())
	})

	t.Run("NewUnknown", func(t *testing.T) {
		_, err := index.New(index.Type(200), nil)
		var unknownErr *index.ErrUnknownIndex
		require.ErrorAs(t, err, &unknownErr)
	})
}
