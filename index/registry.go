package index

import (
	"sort"
	"sync"
)

// Type identifies a registered index backend. The values are stable and can
// be used in configuration.
type Type uint8

const (
	// TypePatricia is the binary radix trie backend, the default.
	TypePatricia Type = iota + 1
	// TypeBigArray is the flat address-space array backend.
	TypeBigArray
	// TypeIntervalTree is the interval tree backend.
	TypeIntervalTree
)

// Constructor builds an index instance from a shared config. cfg is never
// nil when invoked through New.
type Constructor func(cfg *Config) (Index, error)

var (
	registryMu sync.RWMutex
	registry   = map[Type]registration{}
	byName     = map[string]Type{}
)

type registration struct {
	name string
	ctor Constructor
}

// Register registers a backend constructor under a type and name.
//
// Backend packages call this from an init() function; importing a backend
// package is what makes it selectable.
func Register(t Type, name string, ctor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[t] = registration{name: name, ctor: ctor}
	byName[name] = t
}

// New constructs the backend registered under t. A nil cfg is treated as
// the zero config.
func New(t Type, cfg *Config) (Index, error) {
	registryMu.RLock()
	reg, ok := registry[t]
	registryMu.RUnlock()
	if !ok {
		return nil, &ErrUnknownIndex{Name: TypeName(t)}
	}

	if cfg == nil {
		cfg = &Config{}
	}
	return reg.ctor(cfg)
}

// TypeFromName resolves a configuration string to a backend type.
func TypeFromName(name string) (Type, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	t, ok := byName[name]
	return t, ok
}

// TypeName returns the registered name of t, or "unknown" if t is not
// registered.
func TypeName(t Type) string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if reg, ok := registry[t]; ok {
		return reg.name
	}
	return "unknown"
}

// Names returns the names of all registered backends, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
