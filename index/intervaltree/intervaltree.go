// Package intervaltree implements the interval tree backend.
//
// Every inserted prefix is stored as a [start, end] address interval in a
// treap ordered by interval start (supersets first), augmented with the
// maximum interval end of each subtree. Unlike the trie, overlapping
// insertions are all retained independently: a query returns every stored
// interval intersecting the query range, weighted by the size of its own
// intersection, with counts for the same record summed across intervals.
//
// The heap priority is a checksum of the interval, so the same insertions
// always produce the same tree shape.
//
// Only IPv4 is supported. A tree constructed with Config.SingleProvider
// enforces the legacy one-tree-per-provider policy.
package intervaltree

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"net/netip"

	"github.com/hupe1980/ipmeta/index"
	"github.com/hupe1980/ipmeta/record"
)

func init() {
	index.Register(index.TypeIntervalTree, "intervaltree", func(cfg *index.Config) (index.Index, error) {
		return New(cfg)
	})
}

// Compile-time check.
var _ index.Index = (*Tree)(nil)

// treapNode holds one distinct [start, end] interval. Identical intervals
// share a node; their records accumulate in entries, deduplicated by
// handle, so re-inserting the same (prefix, record) pair is a no-op.
type treapNode struct {
	left, right *treapNode

	start, end uint32
	// maxEnd is the largest interval end in this subtree, recalculated on
	// every structural change.
	maxEnd uint32
	prio   uint32

	entries []*record.Record
}

// Tree is the interval tree backend.
type Tree struct {
	root *treapNode

	// single pins the tree to the first provider seen when the legacy
	// single-provider policy is enabled.
	single bool
	source record.ProviderID

	closed bool
}

// New creates an empty tree. cfg.SingleProvider selects the legacy
// one-provider policy.
func New(cfg *index.Config) (*Tree, error) {
	var single bool
	if cfg != nil {
		single = cfg.SingleProvider
	}
	return &Tree{single: single}, nil
}

// Name implements the index.Index interface.
func (t *Tree) Name() string { return "intervaltree" }

// AddPrefix implements the index.Index interface.
func (t *Tree) AddPrefix(pfx netip.Prefix, rec *record.Record) error {
	if t.closed {
		return index.ErrClosed
	}

	first, last, err := index.V4Range(pfx)
	if err != nil {
		return fmt.Errorf("intervaltree: %w", err)
	}

	if t.single {
		if t.source == 0 {
			t.source = rec.Source
		} else if t.source != rec.Source {
			return fmt.Errorf("intervaltree: tree is bound to provider %d, got %d: %w",
				t.source, rec.Source, index.ErrProviderConflict)
		}
	}

	t.root = insert(t.root, newNode(first, last, rec))
	return nil
}

// LookupPrefix implements the index.Index interface. Every stored interval
// intersecting the query contributes the size of its own intersection;
// counts for the same record are summed across intervals.
func (t *Tree) LookupPrefix(pfx netip.Prefix, mask record.ProviderMask, out *record.Set) (int, error) {
	if t.closed {
		return 0, index.ErrClosed
	}

	first, last, err := index.V4Range(pfx)
	if err != nil {
		return 0, fmt.Errorf("intervaltree: %w", err)
	}

	return t.collect(first, last, mask, out), nil
}

// LookupAddr implements the index.Index interface. The result is the set of
// all records whose interval contains addr, each with a count of one.
func (t *Tree) LookupAddr(addr netip.Addr, mask record.ProviderMask, out *record.Set) (int, error) {
	if t.closed {
		return 0, index.ErrClosed
	}

	v, ok := index.AddrV4(addr)
	if !ok {
		return 0, fmt.Errorf("intervaltree: %w", index.ErrUnsupportedFamily)
	}

	return t.collect(v, v, mask, out), nil
}

// collect aggregates all intervals overlapping [qs, qe] into out.
func (t *Tree) collect(qs, qe uint32, mask record.ProviderMask, out *record.Set) int {
	acc := index.NewAccumulator()
	t.root.overlap(qs, qe, func(n *treapNode) {
		ovStart, ovEnd := n.start, n.end
		if qs > ovStart {
			ovStart = qs
		}
		if qe < ovEnd {
			ovEnd = qe
		}
		count := uint64(ovEnd) - uint64(ovStart) + 1

		for _, rec := range n.entries {
			if mask.Has(rec.Source) {
				acc.Add(rec, count)
			}
		}
	})
	return acc.Flush(out)
}

// Close implements the index.Index interface.
func (t *Tree) Close() error {
	t.root = nil
	t.closed = true
	return nil
}

// newNode creates a single-entry node with its deterministic priority.
func newNode(start, end uint32, rec *record.Record) *treapNode {
	var b [8]byte
	binary.BigEndian.PutUint32(b[0:4], start)
	binary.BigEndian.PutUint32(b[4:8], end)

	return &treapNode{
		start:   start,
		end:     end,
		maxEnd:  end,
		prio:    crc32.ChecksumIEEE(b[:]),
		entries: []*record.Record{rec},
	}
}

// insert adds m below n, rotating to restore the heap property, and returns
// the new subtree root. Identical intervals are merged into one node.
func insert(n, m *treapNode) *treapNode {
	if n == nil {
		return m
	}

	cmp := intervalCompare(m.start, m.end, n.start, n.end)
	switch {
	case cmp == 0:
		for _, rec := range n.entries {
			if rec == m.entries[0] {
				// Identical (interval, record) pair; nothing to do.
				return n
			}
		}
		n.entries = append(n.entries, m.entries[0])
		return n
	case cmp < 0:
		n.left = insert(n.left, m)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	default:
		n.right = insert(n.right, m)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}

	n.recalc()
	return n
}

// intervalCompare orders by start ascending; on equal starts the superset
// sorts first, so enclosing intervals sit to the left.
func intervalCompare(as, ae, bs, be uint32) int {
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	case ae > be:
		return -1
	case ae < be:
		return 1
	}
	return 0
}

func rotateRight(n *treapNode) *treapNode {
	l := n.left
	n.left = l.right
	n.recalc()
	l.right = n
	l.recalc()
	return l
}

func rotateLeft(n *treapNode) *treapNode {
	r := n.right
	n.right = r.left
	n.recalc()
	r.left = n
	r.recalc()
	return r
}

// recalc refreshes the augmented maxEnd from the node and its children.
func (n *treapNode) recalc() {
	n.maxEnd = n.end
	if n.left != nil && n.left.maxEnd > n.maxEnd {
		n.maxEnd = n.left.maxEnd
	}
	if n.right != nil && n.right.maxEnd > n.maxEnd {
		n.maxEnd = n.right.maxEnd
	}
}

// overlap visits, in start order, every node whose interval intersects
// [qs, qe]. Subtrees whose maxEnd lies before qs are pruned; subtrees to
// the right of a node starting past qe cannot overlap either.
func (n *treapNode) overlap(qs, qe uint32, visit func(*treapNode)) {
	if n == nil || n.maxEnd < qs {
		return
	}

	n.left.overlap(qs, qe, visit)

	if n.start <= qe && qs <= n.end {
		visit(n)
	}
	if n.start <= qe {
		n.right.overlap(qs, qe, visit)
	}
}
