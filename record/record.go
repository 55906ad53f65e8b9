// Package record defines the metadata records the index backends store and
// the reusable result container queries are answered into.
//
// A Record is owned by the provider that created it. The index layer never
// copies or frees records; it stores handles (*Record) and groups query
// results by handle identity. The only fields the index layer inspects are
// ID (flat-array deduplication) and Source (provider mask filtering); the
// remaining schema belongs to the providers.
package record

// ProviderID identifies a metadata provider. Valid ids start at 1; the id
// selects bit (id-1) in a ProviderMask.
type ProviderID uint8

// ProviderMask selects which providers' records a query returns.
//
// The zero mask is a sentinel meaning "all providers".
type ProviderMask uint64

// MaskAll selects records from every provider.
const MaskAll ProviderMask = 0

// MaskOf builds a mask selecting exactly the given providers.
func MaskOf(ids ...ProviderID) ProviderMask {
	var m ProviderMask
	for _, id := range ids {
		if id == 0 {
			continue
		}
		m |= 1 << (id - 1)
	}
	return m
}

// Has reports whether records from the given provider pass the mask.
func (m ProviderMask) Has(id ProviderID) bool {
	if m == MaskAll {
		return true
	}
	if id == 0 {
		return false
	}
	return m&(1<<(id-1)) != 0
}

// Record is one provider-supplied metadata record.
//
// ID must be unique within a provider. Fields below Source carry the
// geolocation/AS metadata and are opaque to the index backends.
type Record struct {
	// ID is the provider-scoped record identifier.
	ID uint32

	// Source is the provider that owns this record.
	Source ProviderID

	CountryCode   string
	ContinentCode string
	Region        string
	City          string
	PostalCode    string

	Latitude  float64
	Longitude float64

	// ASNs is the origin AS set, for AS-mapping providers.
	ASNs []uint32
}
