// Package opds reads Atom/OPDS catalog feeds as a dynamic search
// source. Feed URLs are user-supplied and go through the destination
// safety check, both at construction and on every fetch.
package opds

import (
	"context"
	"encoding/xml"
	"fmt"
	"hash/fnv"
	"net/http"
	"net/url"
	"strings"

	"biblioradar/internal/catalog"
	"biblioradar/internal/safefetch"
)

type feed struct {
	XMLName xml.Name `xml:"feed"`
	Entries []entry  `xml:"entry"`
}

type entry struct {
	Title   string   `xml:"title"`
	Authors []author `xml:"author"`
	Links   []link   `xml:"link"`
}

type author struct {
	Name string `xml:"name"`
}

type link struct {
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
	Href string `xml:"href,attr"`
}

// Source searches one OPDS feed.
type Source struct {
	fetcher *safefetch.Client
	feedURL string
}

func NewSource(fetcher *safefetch.Client, feedURL string) (*Source, error) {
	if !safefetch.IsSafeURL(feedURL) {
		return nil, fmt.Errorf("%w: %s", safefetch.ErrUnsafeURL, feedURL)
	}
	return &Source{fetcher: fetcher, feedURL: feedURL}, nil
}

func (s *Source) ID() catalog.Source { return catalog.SourceOPDS }

// Search appends the query as a search parameter and maps the feed's
// entries. Feeds that answer with errors or non-XML degrade to zero
// results.
func (s *Source) Search(ctx context.Context, query string) ([]catalog.Record, error) {
	sep := "?"
	if strings.Contains(s.feedURL, "?") {
		sep = "&"
	}
	resp, err := s.fetcher.Get(ctx, s.feedURL+sep+"search="+url.QueryEscape(query))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return []catalog.Record{}, nil
	}

	var f feed
	if err := xml.NewDecoder(resp.Body).Decode(&f); err != nil {
		return []catalog.Record{}, nil
	}

	records := make([]catalog.Record, 0, len(f.Entries))
	for _, e := range f.Entries {
		if len(records) == catalog.MaxPerSource {
			break
		}

		var pdf, cover, read string
		for _, l := range e.Links {
			switch {
			case l.Type == "application/pdf" && pdf == "":
				pdf = l.Href
			case strings.Contains(l.Rel, "image") && cover == "":
				cover = l.Href
			case strings.Contains(l.Rel, "alternate") && read == "":
				read = l.Href
			}
		}
		if read == "" {
			read = pdf
		}

		authors := make([]string, 0, len(e.Authors))
		for _, a := range e.Authors {
			if a.Name != "" {
				authors = append(authors, a.Name)
			}
		}

		records = append(records, catalog.Record{
			ID:      recordID(e.Title, pdf, read),
			Source:  catalog.SourceOPDS,
			Title:   e.Title,
			Authors: authors,
			Cover:   cover,
			PDFURL:  pdf,
			ReadURL: read,
		})
	}
	return records, nil
}

// recordID hashes the most stable link so the same entry keeps the same
// id across calls.
func recordID(title, pdf, read string) string {
	basis := pdf
	if basis == "" {
		basis = read
	}
	if basis == "" {
		basis = title
	}
	h := fnv.New64a()
	h.Write([]byte(basis))
	return fmt.Sprintf("opds:%x", h.Sum64())
}
