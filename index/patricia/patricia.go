// Package patricia implements the binary radix trie backend.
//
// The trie is keyed one bit per level and holds at most one record per
// node; inserting the same prefix again overwrites the record stored at
// that node (last write wins). Point lookups walk the address bits and
// return the record of the deepest node on the path, i.e. the most specific
// matching prefix. Range lookups partition the query range by the same
// longest-prefix-match rule: every address is attributed to the most
// specific stored prefix covering it, so per-record counts never overlap.
//
// Both IPv4 and IPv6 are supported, with one root per family. Subtree
// sizes for IPv6 queries shorter than /64 saturate at MaxUint64.
package patricia

import (
	"fmt"
	"math"
	"net/netip"

	"github.com/hupe1980/ipmeta/index"
	"github.com/hupe1980/ipmeta/record"
)

func init() {
	index.Register(index.TypePatricia, "patricia", func(cfg *index.Config) (index.Index, error) {
		return New(cfg)
	})
}

// Compile-time check.
var _ index.Index = (*Trie)(nil)

// node is one trie level. rec is nil on purely structural nodes.
type node struct {
	children [2]*node
	rec      *record.Record
}

// Trie is the Patricia trie backend, one root per address family.
type Trie struct {
	root4  *node
	root6  *node
	closed bool
}

// New creates an empty trie. The config is accepted for registry symmetry;
// the trie has no tunables.
func New(_ *index.Config) (*Trie, error) {
	return &Trie{
		root4: &node{},
		root6: &node{},
	}, nil
}

// Name implements the index.Index interface.
func (t *Trie) Name() string { return "patricia" }

// root returns the family root for addr, with the family bit length.
func (t *Trie) root(addr netip.Addr) (n *node, fbits int) {
	if addr.Is4() {
		return t.root4, 32
	}
	return t.root6, 128
}

// addrBits returns the address as big-endian bytes for bit walking.
func addrBits(addr netip.Addr) []byte {
	if addr.Is4() {
		a := addr.As4()
		return a[:]
	}
	a := addr.As16()
	return a[:]
}

// bitAt extracts bit i of a big-endian byte string, MSB first.
func bitAt(b []byte, i int) int {
	return int(b[i/8]>>(7-i%8)) & 1
}

// AddPrefix implements the index.Index interface. The node at depth equal
// to the mask length is created (or reused) and rec is stored there,
// replacing any record previously stored at that exact node.
func (t *Trie) AddPrefix(pfx netip.Prefix, rec *record.Record) error {
	if t.closed {
		return index.ErrClosed
	}
	if !pfx.IsValid() {
		return fmt.Errorf("patricia: invalid prefix %v", pfx)
	}

	pfx = pfx.Masked()
	cur, _ := t.root(pfx.Addr())
	b := addrBits(pfx.Addr())

	for i := 0; i < pfx.Bits(); i++ {
		bit := bitAt(b, i)
		if cur.children[bit] == nil {
			cur.children[bit] = &node{}
		}
		cur = cur.children[bit]
	}
	cur.rec = rec

	return nil
}

// LookupAddr implements the index.Index interface. It returns the record of
// the most specific stored prefix containing addr whose provider passes
// mask, with a count of one.
func (t *Trie) LookupAddr(addr netip.Addr, mask record.ProviderMask, out *record.Set) (int, error) {
	if t.closed {
		return 0, index.ErrClosed
	}
	if !addr.IsValid() {
		return 0, fmt.Errorf("patricia: invalid address %v", addr)
	}

	cur, fbits := t.root(addr)
	b := addrBits(addr)

	var best *record.Record
	for i := 0; ; i++ {
		if cur.rec != nil && mask.Has(cur.rec.Source) {
			best = cur.rec
		}
		if i == fbits {
			break
		}
		next := cur.children[bitAt(b, i)]
		if next == nil {
			break
		}
		cur = next
	}

	if best == nil {
		return 0, nil
	}
	out.Add(best, 1)
	return 1, nil
}

// LookupPrefix implements the index.Index interface. Each address in the
// query range is attributed to its longest-prefix-match record, and the
// per-record totals are appended to out.
func (t *Trie) LookupPrefix(pfx netip.Prefix, mask record.ProviderMask, out *record.Set) (int, error) {
	if t.closed {
		return 0, index.ErrClosed
	}
	if !pfx.IsValid() {
		return 0, fmt.Errorf("patricia: invalid prefix %v", pfx)
	}

	pfx = pfx.Masked()
	cur, fbits := t.root(pfx.Addr())
	b := addrBits(pfx.Addr())
	acc := index.NewAccumulator()

	// Walk down to the query prefix, remembering the best enclosing
	// record. Enclosing prefixes cover the whole query range.
	var best *record.Record
	depth := 0
	for ; depth < pfx.Bits(); depth++ {
		if cur.rec != nil && mask.Has(cur.rec.Source) {
			best = cur.rec
		}
		next := cur.children[bitAt(b, depth)]
		if next == nil {
			cur = nil
			break
		}
		cur = next
	}

	if cur == nil {
		// Nothing stored below the query; the enclosing match, if any,
		// covers every address of the query range.
		if best != nil {
			acc.Add(best, subtreeCount(fbits, pfx.Bits()))
		}
		return acc.Flush(out), nil
	}

	t.descend(cur, pfx.Bits(), fbits, best, mask, acc)
	return acc.Flush(out), nil
}

// descend attributes every address under n to its most specific record.
// best is the deepest matching record above n.
func (t *Trie) descend(n *node, depth, fbits int, best *record.Record, mask record.ProviderMask, acc *index.Accumulator) {
	if n.rec != nil && mask.Has(n.rec.Source) {
		best = n.rec
	}

	if n.children[0] == nil && n.children[1] == nil {
		if best != nil {
			acc.Add(best, subtreeCount(fbits, depth))
		}
		return
	}

	for bit := 0; bit < 2; bit++ {
		if c := n.children[bit]; c != nil {
			t.descend(c, depth+1, fbits, best, mask, acc)
		} else if best != nil {
			// No more specific prefixes on this half; it all resolves
			// to the current best match.
			acc.Add(best, subtreeCount(fbits, depth+1))
		}
	}
}

// subtreeCount returns the number of addresses under a node at the given
// depth, saturating at MaxUint64 for wide IPv6 subtrees.
func subtreeCount(fbits, depth int) uint64 {
	if fbits-depth >= 64 {
		return math.MaxUint64
	}
	return 1 << (fbits - depth)
}

// Close implements the index.Index interface. It drops both roots in one
// pass; stored records belong to the providers and are left alone.
func (t *Trie) Close() error {
	t.root4, t.root6 = nil, nil
	t.closed = true
	return nil
}
