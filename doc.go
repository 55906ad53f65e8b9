// Package ipmeta maps IP address ranges to provider-supplied metadata
// records (geolocation, origin ASNs) and answers point and range lookups
// over them.
//
// The core is the prefix-index layer: three interchangeable backends store
// (prefix → record) associations behind one contract, each making a
// different space/time trade-off:
//
//   - patricia: binary radix trie, longest-prefix-match semantics (default)
//   - intervaltree: keeps every overlapping insertion and weights each by
//     its overlap with the query
//   - bigarray: O(1) point lookups backed by a table covering the whole
//     IPv4 address space
//
// Results arrive in a reusable [record.Set]; overlapping matches for the
// same record are merged, never duplicated, and a provider mask filters
// which sources a query may return.
//
// # Quick Start
//
//	ctx := context.Background()
//
//	im, err := ipmeta.New(func(o *ipmeta.Options) {
//	    o.Index = index.TypeIntervalTree
//	    o.Providers = 2
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer im.Close()
//
//	store := blobstore.NewLocalStore("./data")
//	_ = im.RegisterProvider(pfx2as.New(1, store, "routeviews.pfx2as.gz"))
//	_ = im.RegisterProvider(maxmind.New(2, store, "GeoLiteCity-Blocks.csv.gz", "GeoLiteCity-Location.csv.gz"))
//
//	if err := im.Load(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	set := record.NewSet()
//	_, _ = im.LookupAddr(netip.MustParseAddr("1.0.0.5"), record.MaskAll, set)
//	for rec, n := range set.All() {
//	    fmt.Println(rec.CountryCode, rec.ASNs, n)
//	}
//
// Loading is a single-writer bulk phase; queries afterwards are read-only
// and may run concurrently. Provider source files are read through the
// blobstore abstraction (local files, S3 or MinIO), gzip-compressed or
// plain.
package ipmeta
