package catalog

import (
	"context"
)

// Searcher is the contract every provider adapter satisfies.
//
// Implementations return an empty slice for ordinary no-result
// conditions and an error only for transport-level failures; the
// aggregator converts either outcome into an empty contribution, so a
// broken source never fails the aggregate call.
type Searcher interface {
	ID() Source
	Search(ctx context.Context, query string) ([]Record, error)
}

// SourceFactory builds a Searcher from a custom provider config. The
// concrete implementation lives with the adapters; the core only sees
// the port.
type SourceFactory func(cfg ProviderConfig) (Searcher, error)
