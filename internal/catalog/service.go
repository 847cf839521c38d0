package catalog

import (
	"context"
	"errors"
)

// ErrUnknownProvider is returned when a single-provider search names a
// source that is neither built in nor dynamically configurable.
var ErrUnknownProvider = errors.New("unknown provider")

// Service ties the fan-out, merger, ranker and cache together behind
// the HTTP handlers.
type Service struct {
	aggregator *Aggregator
	cache      *ResultCache
	factory    SourceFactory
}

func NewService(aggregator *Aggregator, cache *ResultCache, factory SourceFactory) *Service {
	return &Service{aggregator: aggregator, cache: cache, factory: factory}
}

// Providers returns the ids of the built-in sources.
func (s *Service) Providers() []Source {
	return s.aggregator.Sources()
}

// Search runs the cached fan-out across the built-in sources and
// returns merged, unranked results. Ranking is the interactive pass the
// client requests separately over recombined result sets.
func (s *Service) Search(ctx context.Context, query string, onlyPDF bool) []Record {
	key := CacheKey(query, onlyPDF, s.aggregator.Sources())
	return s.cache.GetOrFill(ctx, key, func() []Record {
		merged := Merge(s.aggregator.Search(ctx, query))
		if onlyPDF {
			merged = FilterActionable(merged)
		}
		return merged
	})
}

// SearchProvider queries a single source: one of the built-ins by id,
// or an OPDS feed given its URL. Feed URLs that fail the destination
// safety check surface the factory's error unchanged.
func (s *Service) SearchProvider(ctx context.Context, query string, provider Source, feedURL string) ([]Record, error) {
	var src Searcher
	if provider == SourceOPDS {
		built, err := s.factory(ProviderConfig{Kind: KindOPDS, Name: "opds", FeedURL: feedURL})
		if err != nil {
			return nil, err
		}
		src = built
	} else {
		found, ok := s.aggregator.Lookup(provider)
		if !ok {
			return nil, ErrUnknownProvider
		}
		src = found
	}
	single := NewAggregator(s.aggregator.Timeout(), src)
	return single.Search(ctx, query), nil
}

// SearchCustom runs one dynamic source built from cfg. Construction
// errors (unsafe destination, malformed config) are surfaced; upstream
// failures after that degrade to an empty result like any other source.
func (s *Service) SearchCustom(ctx context.Context, query string, cfg ProviderConfig) ([]Record, error) {
	src, err := s.factory(cfg)
	if err != nil {
		return nil, err
	}
	single := NewAggregator(s.aggregator.Timeout(), src)
	return single.Search(ctx, query), nil
}

// Rank relevance-orders a client-recombined record set against the
// query. Records carrying an unrecognized source tag are dropped before
// scoring; they never enter the pipeline.
func (s *Service) Rank(query string, records []Record) []Record {
	tagged := make([]Record, 0, len(records))
	for _, r := range records {
		if KnownSource(r.Source) {
			tagged = append(tagged, r)
		}
	}
	return Rank(query, tagged)
}
