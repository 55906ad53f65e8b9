// Package maxmind loads Maxmind GeoLite legacy CSV databases.
//
// The source is a pair of CSV files: blocks, mapping address ranges to
// location ids, and locations, carrying the geodata per location id:
//
//	"16777216","16777471","17"
//	"17","AU","07","Sydney","","-33.8612","151.1982","",""
//
// Block ranges are arbitrary [start, end] spans, so each one is decomposed
// into covering CIDR prefixes before insertion. Both files parse
// concurrently; insertion stays single-writer.
package maxmind

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/ipmeta/blobstore"
	"github.com/hupe1980/ipmeta/index"
	"github.com/hupe1980/ipmeta/provider"
	"github.com/hupe1980/ipmeta/record"
)

// Compile-time check.
var _ provider.Provider = (*Provider)(nil)

// block is one parsed row of the blocks file.
type block struct {
	start, end uint32
	locID      uint32
}

// Provider loads a GeoLite legacy CSV pair into an index.
type Provider struct {
	id    record.ProviderID
	store blobstore.Store

	blocksPath    string
	locationsPath string

	// locations keeps the records alive for the lifetime of the index.
	locations map[uint32]*record.Record
}

// New creates a maxmind provider reading the blocks and locations files
// from store.
func New(id record.ProviderID, store blobstore.Store, blocksPath, locationsPath string) *Provider {
	return &Provider{
		id:            id,
		store:         store,
		blocksPath:    blocksPath,
		locationsPath: locationsPath,
		locations:     make(map[uint32]*record.Record),
	}
}

// Name implements the provider.Provider interface.
func (p *Provider) Name() string { return "maxmind" }

// ID implements the provider.Provider interface.
func (p *Provider) ID() record.ProviderID { return p.id }

// Load implements the provider.Provider interface.
func (p *Provider) Load(ctx context.Context, idx index.Index) error {
	var blocks []block

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.parseLocations(gctx)
	})
	g.Go(func() (err error) {
		blocks, err = p.parseBlocks(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	for _, b := range blocks {
		rec, ok := p.locations[b.locID]
		if !ok {
			return fmt.Errorf("maxmind: block %d-%d references unknown location %d", b.start, b.end, b.locID)
		}
		for _, pfx := range provider.RangeToPrefixes(b.start, b.end) {
			if err := idx.AddPrefix(pfx, rec); err != nil {
				return fmt.Errorf("maxmind: inserting %v: %w", pfx, err)
			}
		}
	}
	return nil
}

// parseLocations fills p.locations from the locations CSV.
func (p *Provider) parseLocations(ctx context.Context) error {
	return p.eachRow(ctx, p.locationsPath, 9, func(row []string) error {
		locID, err := strconv.ParseUint(row[0], 10, 32)
		if err != nil {
			return fmt.Errorf("location id %q: %w", row[0], err)
		}

		rec := &record.Record{
			ID:          uint32(locID),
			Source:      p.id,
			CountryCode: row[1],
			Region:      row[2],
			City:        row[3],
			PostalCode:  row[4],
		}
		rec.Latitude, _ = strconv.ParseFloat(row[5], 64)
		rec.Longitude, _ = strconv.ParseFloat(row[6], 64)

		p.locations[uint32(locID)] = rec
		return nil
	})
}

// parseBlocks reads the blocks CSV into memory.
func (p *Provider) parseBlocks(ctx context.Context) ([]block, error) {
	var blocks []block

	err := p.eachRow(ctx, p.blocksPath, 3, func(row []string) error {
		start, err := strconv.ParseUint(row[0], 10, 32)
		if err != nil {
			return fmt.Errorf("block start %q: %w", row[0], err)
		}
		end, err := strconv.ParseUint(row[1], 10, 32)
		if err != nil {
			return fmt.Errorf("block end %q: %w", row[1], err)
		}
		locID, err := strconv.ParseUint(row[2], 10, 32)
		if err != nil {
			return fmt.Errorf("block location %q: %w", row[2], err)
		}
		if end < start {
			return fmt.Errorf("block range %d-%d is inverted", start, end)
		}

		blocks = append(blocks, block{
			start: uint32(start),
			end:   uint32(end),
			locID: uint32(locID),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return blocks, nil
}

// eachRow streams the CSV rows of a source file to fn. Header and
// copyright rows, recognizable by a non-numeric first field, are skipped.
func (p *Provider) eachRow(ctx context.Context, path string, minFields int, fn func(row []string) error) error {
	rc, err := provider.OpenSource(ctx, p.store, path)
	if err != nil {
		return fmt.Errorf("maxmind: opening %q: %w", path, err)
	}
	defer func() { _ = rc.Close() }()

	cr := csv.NewReader(rc)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	line := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		row, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("maxmind: reading %q: %w", path, err)
		}
		line++

		if len(row) == 0 || !isNumeric(row[0]) {
			continue
		}
		if len(row) < minFields {
			return fmt.Errorf("maxmind: %q line %d: expected at least %d fields, got %d", path, line, minFields, len(row))
		}

		if err := fn(row); err != nil {
			return fmt.Errorf("maxmind: %q line %d: %w", path, line, err)
		}
	}
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
