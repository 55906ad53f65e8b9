// Package testutil provides deterministic generators for index tests.
package testutil

import (
	"math/rand"
	"net/netip"
	"sync"

	"github.com/hupe1980/ipmeta/record"
)

// RNG is a seeded, resettable random source. It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Uint32 returns a pseudo-random uint32.
func (r *RNG) Uint32() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint32()
}

// Addr4 returns a uniformly random IPv4 address.
func (r *RNG) Addr4() netip.Addr {
	v := r.Uint32()
	return netip.AddrFrom4([4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)})
}

// Prefix4 returns a random IPv4 prefix with a mask length in
// [minBits, maxBits], masked to its canonical base.
func (r *RNG) Prefix4(minBits, maxBits int) netip.Prefix {
	bits := minBits
	if maxBits > minBits {
		bits += r.Intn(maxBits - minBits + 1)
	}
	return netip.PrefixFrom(r.Addr4(), bits).Masked()
}

// Prefixes4 returns n random IPv4 prefixes with mask lengths in
// [minBits, maxBits].
func (r *RNG) Prefixes4(n, minBits, maxBits int) []netip.Prefix {
	prefixes := make([]netip.Prefix, n)
	for i := range prefixes {
		prefixes[i] = r.Prefix4(minBits, maxBits)
	}
	return prefixes
}

// Records returns n records for the given provider, with ids 1..n.
func Records(source record.ProviderID, n int) []*record.Record {
	recs := make([]*record.Record, n)
	for i := range recs {
		recs[i] = &record.Record{
			ID:     uint32(i + 1),
			Source: source,
		}
	}
	return recs
}
