package index

import (
	"encoding/binary"
	"math"
	"net/netip"

	"github.com/hupe1980/ipmeta/record"
)

// V4Range returns the first and last address of an IPv4 prefix as host-order
// integers. The base address is masked down to the prefix boundary.
func V4Range(pfx netip.Prefix) (first, last uint32, err error) {
	if !pfx.Addr().Is4() {
		return 0, 0, ErrUnsupportedFamily
	}

	a := pfx.Masked().Addr().As4()
	first = binary.BigEndian.Uint32(a[:])
	last = first | hostMask(pfx.Bits())
	return first, last, nil
}

// AddrV4 converts an IPv4 address to a host-order integer. ok is false for
// any other family, including IPv4-in-IPv6.
func AddrV4(addr netip.Addr) (v uint32, ok bool) {
	if !addr.Is4() {
		return 0, false
	}
	a := addr.As4()
	return binary.BigEndian.Uint32(a[:]), true
}

// FromV4 converts a host-order integer back to an IPv4 address.
func FromV4(v uint32) netip.Addr {
	var a [4]byte
	binary.BigEndian.PutUint32(a[:], v)
	return netip.AddrFrom4(a)
}

// V4Count returns the number of addresses covered by an IPv4 prefix.
func V4Count(pfx netip.Prefix) uint64 {
	return uint64(hostMask(pfx.Bits())) + 1
}

// hostMask returns the host-part mask for an IPv4 prefix length.
func hostMask(bits int) uint32 {
	if bits <= 0 {
		return ^uint32(0)
	}
	if bits >= 32 {
		return 0
	}
	return ^uint32(0) >> bits
}

// Accumulator aggregates per-record address counts during one range query.
//
// It preserves first-seen order so that results are deterministic, and it is
// local to the query call, which keeps read-only lookups reentrant. Records
// are grouped by handle identity: Go pointers are stable, so the handle
// itself is the grouping key.
type Accumulator struct {
	order []*record.Record
	count map[*record.Record]uint64
}

// NewAccumulator returns an empty accumulator sized for a handful of
// matches.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		count: make(map[*record.Record]uint64, 8),
	}
}

// Add credits n addresses to rec. Counts saturate at MaxUint64, which can
// only be reached by very short IPv6 queries.
func (a *Accumulator) Add(rec *record.Record, n uint64) {
	prev, ok := a.count[rec]
	if !ok {
		a.order = append(a.order, rec)
	}
	sum := prev + n
	if sum < prev {
		sum = math.MaxUint64
	}
	a.count[rec] = sum
}

// Flush appends the aggregated matches to out in first-seen order and
// returns the number of distinct records appended.
func (a *Accumulator) Flush(out *record.Set) int {
	for _, rec := range a.order {
		out.Add(rec, a.count[rec])
	}
	return len(a.order)
}
