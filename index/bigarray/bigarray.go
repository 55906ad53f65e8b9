// Package bigarray implements the flat address-space array backend.
//
// The backend trades memory for guaranteed O(1) point lookups: a directly
// indexed table holds one 4-byte cell for every IPv4 address and provider
// slot, i.e. 4 bytes × 2^32 × providers. The table lives in an anonymous,
// lazily committed mapping (see internal/mmap), so the virtual size is a
// hard precondition but resident memory grows only with the cells actually
// written. A 64-bit OS is required.
//
// A cell is either zero (empty) or a lookup id resolving through a side
// table to one record per provider slot. Records are deduplicated by
// (provider, record id), so repeated insertions of the same logical record
// reuse one lookup id.
//
// Insertion writes every address of the prefix and therefore costs
// O(address count); the backend is meant for workloads dominated by long,
// narrow prefixes. Range lookups walk per-provider bitmaps of populated
// addresses instead of scanning the raw cells. Only IPv4 is supported.
package bigarray

import (
	"encoding/binary"
	"fmt"
	"math"
	"net/netip"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/ipmeta/index"
	"github.com/hupe1980/ipmeta/internal/mmap"
	"github.com/hupe1980/ipmeta/record"
)

func init() {
	index.Register(index.TypeBigArray, "bigarray", func(cfg *index.Config) (index.Index, error) {
		return New(cfg)
	})
}

// Compile-time check.
var _ index.Index = (*Array)(nil)

// maxLookupID caps the id space; zero means empty and MaxUint32 is kept
// out of reach of the exclusive overflow check.
const maxLookupID = math.MaxUint32 - 1

// idKey deduplicates records by provider-scoped id rather than by pointer,
// so reloading a provider with equal records reuses lookup ids.
type idKey struct {
	source record.ProviderID
	id     uint32
}

// Array is the flat address array backend.
type Array struct {
	providers int

	mapping *mmap.Mapping
	cells   []byte

	// rows maps lookup id to one record per provider slot; rows[0] is the
	// empty-cell placeholder.
	rows [][]*record.Record
	ids  map[idKey]uint32

	// populated tracks written addresses per provider slot so that range
	// lookups can skip empty address space.
	populated []*roaring.Bitmap

	closed bool
}

// New allocates the backing table for the given number of provider slots.
// The virtual allocation is 4 bytes × 2^32 × cfg.Providers; failure to map
// it surfaces as an initialization error.
func New(cfg *index.Config) (*Array, error) {
	if cfg == nil || cfg.Providers <= 0 {
		return nil, fmt.Errorf("bigarray: provider count must be positive")
	}

	size := int64(cfg.Providers) << 34 // 4 bytes * 2^32 addresses
	m, err := mmap.MapAnon(size)
	if err != nil {
		return nil, fmt.Errorf("bigarray: mapping %d bytes: %w", size, err)
	}

	populated := make([]*roaring.Bitmap, cfg.Providers)
	for i := range populated {
		populated[i] = roaring.New()
	}

	return &Array{
		providers: cfg.Providers,
		mapping:   m,
		cells:     m.Bytes(),
		rows:      make([][]*record.Record, 1), // id 0 is reserved
		ids:       make(map[idKey]uint32),
		populated: populated,
	}, nil
}

// Name implements the index.Index interface.
func (a *Array) Name() string { return "bigarray" }

// cellIndex returns the byte offset of the (addr, slot) cell.
func (a *Array) cellIndex(addr uint32, slot int) uint64 {
	return (uint64(addr)*uint64(a.providers) + uint64(slot)) * 4
}

func (a *Array) cell(addr uint32, slot int) uint32 {
	i := a.cellIndex(addr, slot)
	return binary.LittleEndian.Uint32(a.cells[i : i+4])
}

func (a *Array) setCell(addr uint32, slot int, id uint32) {
	i := a.cellIndex(addr, slot)
	binary.LittleEndian.PutUint32(a.cells[i:i+4], id)
}

// slotFor validates the record's provider against the configured slots.
func (a *Array) slotFor(rec *record.Record) (int, error) {
	slot := int(rec.Source) - 1
	if rec.Source == 0 || slot >= a.providers {
		return 0, fmt.Errorf("bigarray: provider %d outside the %d configured slots", rec.Source, a.providers)
	}
	return slot, nil
}

// AddPrefix implements the index.Index interface. Cost is proportional to
// the number of addresses in pfx.
func (a *Array) AddPrefix(pfx netip.Prefix, rec *record.Record) error {
	if a.closed {
		return index.ErrClosed
	}

	first, last, err := index.V4Range(pfx)
	if err != nil {
		return fmt.Errorf("bigarray: %w", err)
	}

	slot, err := a.slotFor(rec)
	if err != nil {
		return err
	}

	key := idKey{source: rec.Source, id: rec.ID}
	id, ok := a.ids[key]
	if !ok {
		if uint64(len(a.rows)) > maxLookupID {
			return fmt.Errorf("bigarray: lookup id space exhausted: %w", index.ErrCapacityExceeded)
		}
		a.rows = append(a.rows, make([]*record.Record, a.providers))
		id = uint32(len(a.rows) - 1)
		a.ids[key] = id
	}
	a.rows[id][slot] = rec

	for addr := first; ; addr++ {
		a.setCell(addr, slot, id)
		if addr == last {
			break
		}
	}
	a.populated[slot].AddRange(uint64(first), uint64(last)+1)

	return nil
}

// LookupAddr implements the index.Index interface: one cell read per
// selected provider slot.
func (a *Array) LookupAddr(addr netip.Addr, mask record.ProviderMask, out *record.Set) (int, error) {
	if a.closed {
		return 0, index.ErrClosed
	}

	v, ok := index.AddrV4(addr)
	if !ok {
		return 0, fmt.Errorf("bigarray: %w", index.ErrUnsupportedFamily)
	}

	n := 0
	for slot := 0; slot < a.providers; slot++ {
		if !mask.Has(record.ProviderID(slot + 1)) {
			continue
		}
		if id := a.cell(v, slot); id != 0 {
			if rec := a.rows[id][slot]; rec != nil {
				out.Add(rec, 1)
				n++
			}
		}
	}
	return n, nil
}

// LookupPrefix implements the index.Index interface. This is the slow path,
// O(populated addresses × providers); the populated bitmaps keep it from
// touching empty address space.
func (a *Array) LookupPrefix(pfx netip.Prefix, mask record.ProviderMask, out *record.Set) (int, error) {
	if a.closed {
		return 0, index.ErrClosed
	}

	first, last, err := index.V4Range(pfx)
	if err != nil {
		return 0, fmt.Errorf("bigarray: %w", err)
	}

	acc := index.NewAccumulator()
	for slot := 0; slot < a.providers; slot++ {
		if !mask.Has(record.ProviderID(slot + 1)) {
			continue
		}

		it := a.populated[slot].Iterator()
		it.AdvanceIfNeeded(first)
		for it.HasNext() {
			addr := it.Next()
			if addr > last {
				break
			}
			if id := a.cell(addr, slot); id != 0 {
				if rec := a.rows[id][slot]; rec != nil {
					acc.Add(rec, 1)
				}
			}
		}
	}
	return acc.Flush(out), nil
}

// Close implements the index.Index interface, releasing the whole table in
// one munmap.
func (a *Array) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true

	a.cells = nil
	a.rows = nil
	a.ids = nil
	a.populated = nil
	return a.mapping.Close()
}
