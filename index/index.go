// Package index provides the prefix-index contract and the registry of its
// implementations.
//
// An Index associates IP prefixes with provider records and answers point
// and range lookups, merging results across overlapping insertions. Three
// implementations exist, each making a different space/time trade-off:
//
//   - patricia: binary radix trie, longest-prefix-match semantics, the
//     default. IPv4 and IPv6.
//   - intervaltree: augmented treap retaining every overlapping insertion
//     independently. IPv4 only.
//   - bigarray: directly indexed table over the whole IPv4 address space,
//     O(1) point lookups at the cost of 4 bytes × 2^32 per provider.
//
// # Contract
//
// AddPrefix associates every address in pfx with rec. Lookups append into a
// caller-held [record.Set]; each distinct record appears at most once per
// query, with its count aggregated across all matching sub-ranges, and
// records whose provider bit is not set in the mask are never returned.
//
// Indexes are built once by a single writer and then queried; concurrent
// mutation is not supported and must be serialized by the caller.
package index

import (
	"net/netip"

	"github.com/hupe1980/ipmeta/record"
)

// Index is the uniform contract of all prefix-index backends.
type Index interface {
	// Name returns the registry name of the backend.
	Name() string

	// AddPrefix associates every address in pfx with rec. Re-inserting the
	// same (pfx, rec) pair is a no-op. The record must outlive the index.
	AddPrefix(pfx netip.Prefix, rec *record.Record) error

	// LookupPrefix appends every record overlapping pfx whose provider
	// passes mask, with its per-record address count, and returns the
	// number of distinct records appended. Zero is a valid result.
	LookupPrefix(pfx netip.Prefix, mask record.ProviderMask, out *record.Set) (int, error)

	// LookupAddr is the single-address fast path, equivalent to a /32 (or
	// /128) LookupPrefix.
	LookupAddr(addr netip.Addr, mask record.ProviderMask, out *record.Set) (int, error)

	// Close releases all index-owned memory. The referenced records stay
	// untouched; they belong to the providers.
	Close() error
}

// Config carries construction parameters shared by the backends.
type Config struct {
	// Providers is the number of provider slots. Required by the bigarray
	// backend to size its table; ignored by the others.
	Providers int

	// SingleProvider enables the legacy interval-tree policy: the first
	// inserted record pins the provider and records from any other
	// provider are rejected with ErrProviderConflict.
	SingleProvider bool
}
