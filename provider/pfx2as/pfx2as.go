// Package pfx2as loads CAIDA prefix-to-AS mappings.
//
// The source format is one mapping per line, tab separated:
//
//	1.0.0.0	24	13335
//	4.23.113.0	24	701_1239
//	163.142.0.0	16	2497,7672
//
// "_" joins the members of an AS set and "," separates multi-origin
// announcements; either way the whole AS string identifies one record, so
// every prefix announced by the same origin(s) shares a record.
package pfx2as

import (
	"bufio"
	"context"
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"github.com/hupe1980/ipmeta/blobstore"
	"github.com/hupe1980/ipmeta/index"
	"github.com/hupe1980/ipmeta/provider"
	"github.com/hupe1980/ipmeta/record"
)

// Compile-time check.
var _ provider.Provider = (*Provider)(nil)

// Provider loads a pfx2as file into an index.
type Provider struct {
	id    record.ProviderID
	store blobstore.Store
	path  string

	// records is keyed by the raw AS string; it keeps the records alive
	// for the lifetime of the index.
	records map[string]*record.Record
	nextID  uint32
}

// New creates a pfx2as provider reading path from store.
func New(id record.ProviderID, store blobstore.Store, path string) *Provider {
	return &Provider{
		id:      id,
		store:   store,
		path:    path,
		records: make(map[string]*record.Record),
	}
}

// Name implements the provider.Provider interface.
func (p *Provider) Name() string { return "pfx2as" }

// ID implements the provider.Provider interface.
func (p *Provider) ID() record.ProviderID { return p.id }

// Load implements the provider.Provider interface.
func (p *Provider) Load(ctx context.Context, idx index.Index) error {
	rc, err := provider.OpenSource(ctx, p.store, p.path)
	if err != nil {
		return fmt.Errorf("pfx2as: opening %q: %w", p.path, err)
	}
	defer func() { _ = rc.Close() }()

	sc := bufio.NewScanner(rc)
	line := 0
	for sc.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return err
		}

		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.Fields(text)
		if len(fields) != 3 {
			return fmt.Errorf("pfx2as: %q line %d: expected 3 fields, got %d", p.path, line, len(fields))
		}

		addr, err := netip.ParseAddr(fields[0])
		if err != nil {
			return fmt.Errorf("pfx2as: %q line %d: %w", p.path, line, err)
		}
		maskLen, err := strconv.Atoi(fields[1])
		if err != nil {
			return fmt.Errorf("pfx2as: %q line %d: %w", p.path, line, err)
		}
		pfx, err := addr.Prefix(maskLen)
		if err != nil {
			return fmt.Errorf("pfx2as: %q line %d: %w", p.path, line, err)
		}

		rec, err := p.recordFor(fields[2])
		if err != nil {
			return fmt.Errorf("pfx2as: %q line %d: %w", p.path, line, err)
		}

		if err := idx.AddPrefix(pfx, rec); err != nil {
			return fmt.Errorf("pfx2as: inserting %v: %w", pfx, err)
		}
	}

	if err := sc.Err(); err != nil {
		return fmt.Errorf("pfx2as: reading %q: %w", p.path, err)
	}
	return nil
}

// recordFor returns the record for an origin-AS string, creating it on
// first sight.
func (p *Provider) recordFor(asns string) (*record.Record, error) {
	if rec, ok := p.records[asns]; ok {
		return rec, nil
	}

	parsed, err := parseASNs(asns)
	if err != nil {
		return nil, err
	}

	p.nextID++
	rec := &record.Record{
		ID:     p.nextID,
		Source: p.id,
		ASNs:   parsed,
	}
	p.records[asns] = rec
	return rec, nil
}

// parseASNs splits an origin string on both the AS-set and multi-origin
// separators.
func parseASNs(s string) ([]uint32, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || r == ','
	})
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty AS list %q", s)
	}

	asns := make([]uint32, 0, len(parts))
	for _, part := range parts {
		asn, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("parsing AS %q: %w", part, err)
		}
		asns = append(asns, uint32(asn))
	}
	return asns, nil
}
