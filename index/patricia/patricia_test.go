package patricia

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/ipmeta/index"
	"github.com/hupe1980/ipmeta/record"
	"github.com/hupe1980/ipmeta/testutil"
)

func lookupAddr(t *testing.T, trie *Trie, addr string, mask record.ProviderMask) []record.Match {
	t.Helper()

	out := record.NewSet()
	_, err := trie.LookupAddr(netip.MustParseAddr(addr), mask, out)
	require.NoError(t, err)
	return out.Matches()
}

func lookupPrefix(t *testing.T, trie *Trie, pfx string, mask record.ProviderMask) []record.Match {
	t.Helper()

	out := record.NewSet()
	_, err := trie.LookupPrefix(netip.MustParsePrefix(pfx), mask, out)
	require.NoError(t, err)
	return out.Matches()
}

func TestTrieLookupAddr(t *testing.T) {
	r1 := &record.Record{ID: 1, Source: 1}

	t.Run("SingleMatch", func(t *testing.T) {
		trie, err := New(nil)
		require.NoError(t, err)

		require.NoError(t, trie.AddPrefix(netip.MustParsePrefix("10.0.0.0/24"), r1))

		matches := lookupAddr(t, trie, "10.0.0.5", record.MaskAll)
		require.Len(t, matches, 1)
		assert.Same(t, r1, matches[0].Record)
		assert.Equal(t, uint64(1), matches[0].Count)

		assert.Empty(t, lookupAddr(t, trie, "11.0.0.5", record.MaskAll))
	})

	t.Run("MostSpecificWins", func(t *testing.T) {
		trie, err := New(nil)
		require.NoError(t, err)

		rDefault := &record.Record{ID: 10, Source: 1}
		r8 := &record.Record{ID: 11, Source: 1}
		require.NoError(t, trie.AddPrefix(netip.MustParsePrefix("0.0.0.0/0"), rDefault))
		require.NoError(t, trie.AddPrefix(netip.MustParsePrefix("10.0.0.0/8"), r8))

		matches := lookupAddr(t, trie, "10.1.1.1", record.MaskAll)
		require.Len(t, matches, 1)
		assert.Same(t, r8, matches[0].Record)

		matches = lookupAddr(t, trie, "20.1.1.1", record.MaskAll)
		require.Len(t, matches, 1)
		assert.Same(t, rDefault, matches[0].Record)
	})

	t.Run("MaskFiltersByProvider", func(t *testing.T) {
		trie, err := New(nil)
		require.NoError(t, err)

		p1 := &record.Record{ID: 1, Source: 1}
		p2 := &record.Record{ID: 1, Source: 2}
		require.NoError(t, trie.AddPrefix(netip.MustParsePrefix("192.168.1.0/24"), p1))
		require.NoError(t, trie.AddPrefix(netip.MustParsePrefix("192.168.1.0/25"), p2))

		// Provider 2 holds the more specific prefix, but a mask selecting
		// only provider 1 must never surface it.
		matches := lookupAddr(t, trie, "192.168.1.1", record.MaskOf(1))
		require.Len(t, matches, 1)
		assert.Same(t, p1, matches[0].Record)
	})

	t.Run("IPv6", func(t *testing.T) {
		trie, err := New(nil)
		require.NoError(t, err)

		r6 := &record.Record{ID: 6, Source: 1}
		require.NoError(t, trie.AddPrefix(netip.MustParsePrefix("2001:db8::/32"), r6))

		matches := lookupAddr(t, trie, "2001:db8::1", record.MaskAll)
		require.Len(t, matches, 1)
		assert.Same(t, r6, matches[0].Record)

		assert.Empty(t, lookupAddr(t, trie, "2001:db9::1", record.MaskAll))
	})
}

func TestTrieLookupPrefix(t *testing.T) {
	t.Run("PartitionsByMostSpecific", func(t *testing.T) {
		trie, err := New(nil)
		require.NoError(t, err)

		r1 := &record.Record{ID: 1, Source: 1}
		r2 := &record.Record{ID: 2, Source: 1}
		require.NoError(t, trie.AddPrefix(netip.MustParsePrefix("10.0.0.0/24"), r1))
		require.NoError(t, trie.AddPrefix(netip.MustParsePrefix("10.0.0.128/25"), r2))

		// The /25 shadows half of the /24; every address resolves to
		// exactly one record.
		matches := lookupPrefix(t, trie, "10.0.0.0/24", record.MaskAll)
		require.Len(t, matches, 2)
		assert.Same(t, r1, matches[0].Record)
		assert.Equal(t, uint64(128), matches[0].Count)
		assert.Same(t, r2, matches[1].Record)
		assert.Equal(t, uint64(128), matches[1].Count)
	})

	t.Run("EnclosingPrefixCoversQuery", func(t *testing.T) {
		trie, err := New(nil)
		require.NoError(t, err)

		r1 := &record.Record{ID: 1, Source: 1}
		require.NoError(t, trie.AddPrefix(netip.MustParsePrefix("10.0.0.0/8"), r1))

		matches := lookupPrefix(t, trie, "10.1.0.0/16", record.MaskAll)
		require.Len(t, matches, 1)
		assert.Same(t, r1, matches[0].Record)
		assert.Equal(t, uint64(65536), matches[0].Count)
	})

	t.Run("NoMatch", func(t *testing.T) {
		trie, err := New(nil)
		require.NoError(t, err)

		r1 := &record.Record{ID: 1, Source: 1}
		require.NoError(t, trie.AddPrefix(netip.MustParsePrefix("10.0.0.0/8"), r1))

		assert.Empty(t, lookupPrefix(t, trie, "11.0.0.0/16", record.MaskAll))
	})

	t.Run("PointQueryDegeneracy", func(t *testing.T) {
		trie, err := New(nil)
		require.NoError(t, err)

		rDefault := &record.Record{ID: 1, Source: 1}
		r24 := &record.Record{ID: 2, Source: 1}
		require.NoError(t, trie.AddPrefix(netip.MustParsePrefix("0.0.0.0/0"), rDefault))
		require.NoError(t, trie.AddPrefix(netip.MustParsePrefix("10.0.0.0/24"), r24))

		byAddr := lookupAddr(t, trie, "10.0.0.9", record.MaskAll)
		byPfx := lookupPrefix(t, trie, "10.0.0.9/32", record.MaskAll)
		assert.Equal(t, byAddr, byPfx)
	})

	t.Run("ReinsertOverwrites", func(t *testing.T) {
		trie, err := New(nil)
		require.NoError(t, err)

		r1 := &record.Record{ID: 1, Source: 1}
		require.NoError(t, trie.AddPrefix(netip.MustParsePrefix("10.0.0.0/24"), r1))
		require.NoError(t, trie.AddPrefix(netip.MustParsePrefix("10.0.0.0/24"), r1))

		matches := lookupPrefix(t, trie, "10.0.0.0/24", record.MaskAll)
		require.Len(t, matches, 1)
		assert.Equal(t, uint64(256), matches[0].Count)

		// Last write wins for the exact same prefix.
		r2 := &record.Record{ID: 2, Source: 1}
		require.NoError(t, trie.AddPrefix(netip.MustParsePrefix("10.0.0.0/24"), r2))

		matches = lookupPrefix(t, trie, "10.0.0.0/24", record.MaskAll)
		require.Len(t, matches, 1)
		assert.Same(t, r2, matches[0].Record)
	})
}

func TestTrieRandomized(t *testing.T) {
	rng := testutil.NewRNG(42)
	recs := testutil.Records(1, 32)

	trie, err := New(nil)
	require.NoError(t, err)

	prefixes := rng.Prefixes4(256, 4, 30)
	byPrefix := make(map[netip.Prefix]*record.Record)
	for i, pfx := range prefixes {
		rec := recs[i%len(recs)]
		require.NoError(t, trie.AddPrefix(pfx, rec))
		byPrefix[pfx] = rec
	}

	// Reference longest-prefix match over the raw prefix list.
	expectLPM := func(addr netip.Addr) *record.Record {
		best := -1
		var bestRec *record.Record
		for pfx, rec := range byPrefix {
			if pfx.Contains(addr) && pfx.Bits() > best {
				best = pfx.Bits()
				bestRec = rec
			}
		}
		return bestRec
	}

	out := record.NewSet()
	for i := 0; i < 500; i++ {
		addr := rng.Addr4()

		out.Reset()
		n, err := trie.LookupAddr(addr, record.MaskAll, out)
		require.NoError(t, err)

		want := expectLPM(addr)
		if want == nil {
			assert.Zero(t, n, "addr %v", addr)
			continue
		}
		require.Equal(t, 1, n, "addr %v", addr)
		assert.Same(t, want, out.Matches()[0].Record, "addr %v", addr)
	}
}

func TestTriePartitionIsExhaustive(t *testing.T) {
	rng := testutil.NewRNG(7)
	recs := testutil.Records(1, 16)

	trie, err := New(nil)
	require.NoError(t, err)

	// With a default route present every address resolves somewhere, so
	// the per-record counts of any query must sum to the query size.
	require.NoError(t, trie.AddPrefix(netip.MustParsePrefix("0.0.0.0/0"), recs[0]))
	for i, pfx := range rng.Prefixes4(128, 8, 28) {
		require.NoError(t, trie.AddPrefix(pfx, recs[i%len(recs)]))
	}

	out := record.NewSet()
	for i := 0; i < 100; i++ {
		query := rng.Prefix4(0, 24)

		out.Reset()
		_, err := trie.LookupPrefix(query, record.MaskAll, out)
		require.NoError(t, err)

		var total uint64
		for _, n := range out.Matches() {
			total += n.Count
		}
		assert.Equal(t, index.V4Count(query), total, "query %v", query)
	}
}

func TestTrieClose(t *testing.T) {
	trie, err := New(nil)
	require.NoError(t, err)
	require.NoError(t, trie.Close())

	err = trie.AddPrefix(netip.MustParsePrefix("10.0.0.0/8"), &record.Record{ID: 1, Source: 1})
	assert.ErrorIs(t, err, index.ErrClosed)

	_, err = trie.LookupAddr(netip.MustParseAddr("10.0.0.1"), record.MaskAll, record.NewSet())
	assert.ErrorIs(t, err, index.ErrClosed)
}
