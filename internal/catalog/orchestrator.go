package catalog

import (
	"context"
	"log"
	"strings"
	"time"
)

// DefaultSourceTimeout bounds how long the aggregator waits on a single
// source before discarding its contribution.
const DefaultSourceTimeout = 5 * time.Second

// Aggregator fans a query out to every configured source concurrently
// and returns the flattened union of whatever arrived in time.
type Aggregator struct {
	sources []Searcher
	timeout time.Duration
}

func NewAggregator(timeout time.Duration, sources ...Searcher) *Aggregator {
	if timeout <= 0 {
		timeout = DefaultSourceTimeout
	}
	return &Aggregator{sources: sources, timeout: timeout}
}

// Timeout returns the per-source deadline.
func (a *Aggregator) Timeout() time.Duration { return a.timeout }

// Sources returns the ids of the configured sources.
func (a *Aggregator) Sources() []Source {
	ids := make([]Source, len(a.sources))
	for i, src := range a.sources {
		ids[i] = src.ID()
	}
	return ids
}

// Lookup returns the configured source with the given id.
func (a *Aggregator) Lookup(id Source) (Searcher, bool) {
	for _, src := range a.sources {
		if src.ID() == id {
			return src, true
		}
	}
	return nil, false
}

// Search queries all sources in parallel. Each source races its own
// deadline; one that errors, panics or never returns contributes
// nothing. The flattened result carries no inter-source ordering, and
// the whole call is bounded by the per-source deadline since sources
// run concurrently. An empty query or zero sources returns immediately
// without dispatching anything.
func (a *Aggregator) Search(ctx context.Context, query string) []Record {
	query = strings.TrimSpace(query)
	if query == "" || len(a.sources) == 0 {
		return []Record{}
	}

	out := make(chan []Record, len(a.sources))
	for _, src := range a.sources {
		go func(src Searcher) {
			out <- a.searchOne(ctx, src, query)
		}(src)
	}

	flat := []Record{}
	for range a.sources {
		flat = append(flat, <-out...)
	}
	return flat
}

// searchOne runs a single source bounded by the per-source deadline.
// The inner goroutine is abandoned on timeout: a transport without
// cooperative cancellation keeps running, but its eventual result is
// discarded.
func (a *Aggregator) searchOne(ctx context.Context, src Searcher, query string) []Record {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	done := make(chan []Record, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("source %s panicked: %v", src.ID(), rec)
				done <- nil
			}
		}()
		records, err := src.Search(ctx, query)
		if err != nil {
			log.Printf("source %s failed: %v", src.ID(), err)
			done <- nil
			return
		}
		done <- records
	}()

	select {
	case records := <-done:
		return records
	case <-ctx.Done():
		log.Printf("source %s timed out after %s", src.ID(), a.timeout)
		return nil
	}
}
