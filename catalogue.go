package accumulate

import (
	"sync"
)

var (
	defaultRegistryOnce sync.Once
	defaultRegistry     *Registry
)

// DefaultRegistry returns the protocol catalogue. It is built once and sealed
// on first use.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewCatalogueRegistry()
	})
	return defaultRegistry
}

// NewCatalogueRegistry returns an unsealed registry holding every protocol
// schema, for callers that want to add their own types before use.
func NewCatalogueRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister(signatureSchemas()...)
	r.MustRegister(transactionSchemas()...)
	r.MustRegister(bodySchemas()...)
	return r
}
