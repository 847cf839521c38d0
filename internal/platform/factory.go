// Package platform wires the concrete source adapters to the catalog
// core.
package platform

import (
	"fmt"

	"biblioradar/internal/catalog"
	"biblioradar/internal/platform/opds"
	"biblioradar/internal/platform/scrape"
	"biblioradar/internal/safefetch"
)

// NewSourceFactory returns the one place that dispatches on a custom
// provider config's kind. The switch is exhaustive over ProviderKind.
func NewSourceFactory(fetcher *safefetch.Client) catalog.SourceFactory {
	return func(cfg catalog.ProviderConfig) (catalog.Searcher, error) {
		switch cfg.Kind {
		case catalog.KindOPDS:
			return opds.NewSource(fetcher, cfg.FeedURL)
		case catalog.KindScrape:
			return scrape.NewSource(fetcher, cfg)
		default:
			return nil, fmt.Errorf("unsupported provider kind %q", cfg.Kind)
		}
	}
}
