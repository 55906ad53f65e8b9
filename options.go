package ipmeta

import "github.com/hupe1980/ipmeta/index"

// Options contains configuration options for an Ipmeta instance.
type Options struct {
	// Index selects the prefix-index backend. Ignored when IndexName is
	// set.
	Index index.Type

	// IndexName selects the backend by its registry name ("patricia",
	// "bigarray", "intervaltree"), the form used in configuration files.
	// An unknown name fails construction.
	IndexName string

	// Providers is the number of provider slots. The bigarray backend
	// sizes its table from this; for the others it only bounds
	// RegisterProvider.
	Providers int

	// SingleProvider enables the legacy interval-tree policy of one
	// provider per tree.
	SingleProvider bool

	// Logger receives structured load/lookup diagnostics. Defaults to a
	// no-op logger.
	Logger *Logger
}

// DefaultOptions contains the default configuration options.
var DefaultOptions = Options{
	Index:     index.TypePatricia,
	Providers: 8,
}
