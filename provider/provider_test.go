package provider

import (
	"compress/gzip"
	"context"
	"io"
	"net/netip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/ipmeta/blobstore"
	"github.com/hupe1980/ipmeta/index"
)

func TestRangeToPrefixes(t *testing.T) {
	toRange := func(pfx string) (uint32, uint32) {
		first, last, err := index.V4Range(netip.MustParsePrefix(pfx))
		require.NoError(t, err)
		return first, last
	}

	t.Run("AlignedRange", func(t *testing.T) {
		first, last := toRange("10.0.0.0/24")
		assert.Equal(t, []netip.Prefix{
			netip.MustParsePrefix("10.0.0.0/24"),
		}, RangeToPrefixes(first, last))
	})

	t.Run("SingleAddress", func(t *testing.T) {
		first, _ := toRange("10.0.0.7/32")
		assert.Equal(t, []netip.Prefix{
			netip.MustParsePrefix("10.0.0.7/32"),
		}, RangeToPrefixes(first, first))
	})

	t.Run("UnalignedRange", func(t *testing.T) {
		// 10.0.0.1 .. 10.0.0.6 needs a prefix per alignment step.
		first, _ := toRange("10.0.0.1/32")
		last, _ := toRange("10.0.0.6/32")
		assert.Equal(t, []netip.Prefix{
			netip.MustParsePrefix("10.0.0.1/32"),
			netip.MustParsePrefix("10.0.0.2/31"),
			netip.MustParsePrefix("10.0.0.4/31"),
			netip.MustParsePrefix("10.0.0.6/32"),
		}, RangeToPrefixes(first, last))
	})

	t.Run("FullSpace", func(t *testing.T) {
		assert.Equal(t, []netip.Prefix{
			netip.MustParsePrefix("0.0.0.0/0"),
		}, RangeToPrefixes(0, 0xffffffff))
	})

	t.Run("EndOfSpace", func(t *testing.T) {
		// The cursor must not wrap past 255.255.255.255.
		first, _ := toRange("255.255.255.254/32")
		assert.Equal(t, []netip.Prefix{
			netip.MustParsePrefix("255.255.255.254/31"),
		}, RangeToPrefixes(first, 0xffffffff))
	})

	t.Run("CoversExactly", func(t *testing.T) {
		start, end := uint32(100), uint32(10000)

		var total uint64
		prev := uint64(start)
		for _, pfx := range RangeToPrefixes(start, end) {
			first, last, err := index.V4Range(pfx)
			require.NoError(t, err)
			require.Equal(t, prev, uint64(first), "gap before %v", pfx)
			prev = uint64(last) + 1
			total += index.V4Count(pfx)
		}
		assert.Equal(t, uint64(end-start)+1, total)
	})
}

func TestOpenSource(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "plain.txt"), []byte("hello\n"), 0o600))

	f, err := os.Create(filepath.Join(dir, "compressed.txt.gz"))
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte("hello\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	store := blobstore.NewLocalStore(dir)
	ctx := context.Background()

	t.Run("Plain", func(t *testing.T) {
		rc, err := OpenSource(ctx, store, "plain.txt")
		require.NoError(t, err)
		defer rc.Close()

		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "hello\n", string(data))
	})

	t.Run("Gzip", func(t *testing.T) {
		rc, err := OpenSource(ctx, store, "compressed.txt.gz")
		require.NoError(t, err)
		defer rc.Close()

		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "hello\n", string(data))
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := OpenSource(ctx, store, "nope.txt")
		assert.ErrorIs(t, err, blobstore.ErrNotFound)
	})
}
