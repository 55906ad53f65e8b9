// Package provider defines the contract between metadata providers and the
// index core, plus the parsing helpers the loaders share.
//
// A provider owns its records and its source format; after parsing it feeds
// the index through AddPrefix, one call per (prefix, record) pair. The bulk
// load is single-writer: run every Load to completion before querying.
package provider

import (
	"context"
	"io"
	"math/bits"
	"net/netip"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/hupe1980/ipmeta/blobstore"
	"github.com/hupe1980/ipmeta/index"
	"github.com/hupe1980/ipmeta/record"
)

// Provider parses one metadata source and loads it into an index.
type Provider interface {
	// Name returns a short human-readable provider name.
	Name() string

	// ID returns the provider id stamped on every record this provider
	// creates. Ids start at 1 and select bit (id-1) of a provider mask.
	ID() record.ProviderID

	// Load parses the source data and inserts it into idx. Records created
	// here stay owned by the provider and must outlive the index.
	Load(ctx context.Context, idx index.Index) error
}

// OpenSource opens a named blob from the store, transparently decompressing
// files with a ".gz" suffix.
func OpenSource(ctx context.Context, store blobstore.Store, name string) (io.ReadCloser, error) {
	rc, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}

	if !strings.HasSuffix(name, ".gz") {
		return rc, nil
	}

	zr, err := gzip.NewReader(rc)
	if err != nil {
		_ = rc.Close()
		return nil, err
	}
	return &gzipReadCloser{zr: zr, raw: rc}, nil
}

// gzipReadCloser closes both the decompressor and the underlying blob.
type gzipReadCloser struct {
	zr  *gzip.Reader
	raw io.Closer
}

func (g *gzipReadCloser) Read(p []byte) (int, error) {
	return g.zr.Read(p)
}

func (g *gzipReadCloser) Close() error {
	zErr := g.zr.Close()
	rErr := g.raw.Close()
	if zErr != nil {
		return zErr
	}
	return rErr
}

// RangeToPrefixes decomposes an arbitrary [start, end] IPv4 address range
// into the minimal list of CIDR prefixes covering exactly that range.
// Source databases (Maxmind legacy blocks in particular) express ranges
// that do not fall on prefix boundaries.
func RangeToPrefixes(start, end uint32) []netip.Prefix {
	var prefixes []netip.Prefix

	cur := uint64(start)
	for cur <= uint64(end) {
		// Widest block aligned at cur...
		size := uint64(1) << 32
		if cur != 0 {
			size = uint64(1) << bits.TrailingZeros32(uint32(cur))
		}
		// ...shrunk to fit the remaining span.
		for size > uint64(end)-cur+1 {
			size >>= 1
		}

		maskLen := 32 - bits.TrailingZeros64(size)
		prefixes = append(prefixes, netip.PrefixFrom(index.FromV4(uint32(cur)), maskLen))
		cur += size
	}

	return prefixes
}
