package ipmeta

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"github.com/hupe1980/ipmeta/index"
	"github.com/hupe1980/ipmeta/provider"
	"github.com/hupe1980/ipmeta/record"

	// Register the built-in index backends.
	_ "github.com/hupe1980/ipmeta/index/bigarray"
	_ "github.com/hupe1980/ipmeta/index/intervaltree"
	_ "github.com/hupe1980/ipmeta/index/patricia"
)

// maxProviders is the number of provider bits a mask can carry.
const maxProviders = 64

// Ipmeta ties providers to a prefix-index backend: a single-writer bulk
// load followed by read-only lookups.
type Ipmeta struct {
	idx    index.Index
	logger *Logger

	providers []provider.Provider
	byID      map[record.ProviderID]provider.Provider
	loaded    bool
}

// New creates an Ipmeta instance with the configured index backend.
func New(optFns ...func(o *Options)) (*Ipmeta, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Providers <= 0 || opts.Providers > maxProviders {
		return nil, fmt.Errorf("ipmeta: provider count %d outside 1..%d", opts.Providers, maxProviders)
	}

	t := opts.Index
	if opts.IndexName != "" {
		var ok bool
		if t, ok = index.TypeFromName(opts.IndexName); !ok {
			return nil, &index.ErrUnknownIndex{Name: opts.IndexName}
		}
	}

	idx, err := index.New(t, &index.Config{
		Providers:      opts.Providers,
		SingleProvider: opts.SingleProvider,
	})
	if err != nil {
		return nil, fmt.Errorf("ipmeta: creating %q index: %w", index.TypeName(t), err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = NoopLogger()
	}

	return &Ipmeta{
		idx:    idx,
		logger: logger,
		byID:   make(map[record.ProviderID]provider.Provider),
	}, nil
}

// RegisterProvider adds a provider to the load set. Provider ids must be
// unique and within the mask range.
func (m *Ipmeta) RegisterProvider(p provider.Provider) error {
	id := p.ID()
	if id == 0 || id > maxProviders {
		return fmt.Errorf("ipmeta: provider id %d outside 1..%d", id, maxProviders)
	}
	if _, ok := m.byID[id]; ok {
		return fmt.Errorf("ipmeta: provider id %d already registered", id)
	}

	m.byID[id] = p
	m.providers = append(m.providers, p)
	return nil
}

// Load runs every registered provider in registration order. The load is
// the single-writer phase; do not query until it returns.
func (m *Ipmeta) Load(ctx context.Context) error {
	for _, p := range m.providers {
		start := time.Now()
		err := p.Load(ctx, m.idx)
		m.logger.LogLoad(ctx, p.Name(), uint8(p.ID()), time.Since(start), err)
		if err != nil {
			return fmt.Errorf("ipmeta: loading provider %q: %w", p.Name(), err)
		}
	}
	m.loaded = true
	return nil
}

// Loaded reports whether the bulk-load phase has completed.
func (m *Ipmeta) Loaded() bool {
	return m.loaded
}

// Index exposes the underlying backend.
func (m *Ipmeta) Index() index.Index {
	return m.idx
}

// ProviderMask returns the mask selecting all registered providers.
func (m *Ipmeta) ProviderMask() record.ProviderMask {
	var mask record.ProviderMask
	for id := range m.byID {
		mask |= record.MaskOf(id)
	}
	return mask
}

// LookupPrefix resets out and fills it with every record overlapping pfx
// whose provider passes mask. It returns the number of distinct records.
func (m *Ipmeta) LookupPrefix(pfx netip.Prefix, mask record.ProviderMask, out *record.Set) (int, error) {
	out.Reset()
	return m.idx.LookupPrefix(pfx, mask, out)
}

// LookupAddr resets out and fills it with every record matching the single
// address addr under mask.
func (m *Ipmeta) LookupAddr(addr netip.Addr, mask record.ProviderMask, out *record.Set) (int, error) {
	out.Reset()
	return m.idx.LookupAddr(addr, mask, out)
}

// Close releases the index. Provider-owned records are not touched.
func (m *Ipmeta) Close() error {
	return m.idx.Close()
}
