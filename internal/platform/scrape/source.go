// Package scrape turns user-configured CSS-selector templates into a
// search source: fetch an HTML results page, pull out item nodes,
// extract title/link/author/cover per the configured selectors.
package scrape

import (
	"context"
	"fmt"
	"hash/fnv"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"biblioradar/internal/catalog"
	"biblioradar/internal/safefetch"
)

// maxCandidates caps how many items one scrape pass may emit. Scrape
// pages are unbounded in ways API responses are not.
const maxCandidates = 50

var pdfPattern = regexp.MustCompile(`(?i)\.pdf(\?|#|$)`)

// Source scrapes search results out of an arbitrary HTML page. All
// fetches go through the destination safety check.
type Source struct {
	fetcher *safefetch.Client
	cfg     catalog.ProviderConfig
}

func NewSource(fetcher *safefetch.Client, cfg catalog.ProviderConfig) (*Source, error) {
	if !strings.Contains(cfg.SearchURLTemplate, "{query}") {
		return nil, fmt.Errorf("search url template missing {query} placeholder")
	}
	if !safefetch.IsSafeURL(buildSearchURL(cfg.SearchURLTemplate, "probe")) {
		return nil, fmt.Errorf("%w: %s", safefetch.ErrUnsafeURL, cfg.SearchURLTemplate)
	}
	return &Source{fetcher: fetcher, cfg: cfg}, nil
}

func (s *Source) ID() catalog.Source { return catalog.SourceScrape }

func buildSearchURL(template, query string) string {
	return strings.ReplaceAll(template, "{query}", url.QueryEscape(query))
}

// Search fetches the templated results page and extracts candidates.
// When the configured item selector matches nothing, any anchor whose
// href ends in .pdf is taken as a candidate instead.
func (s *Source) Search(ctx context.Context, query string) ([]catalog.Record, error) {
	resp, err := s.fetcher.Get(ctx, buildSearchURL(s.cfg.SearchURLTemplate, query))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return []catalog.Record{}, nil
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return []catalog.Record{}, nil
	}

	base := resp.Request.URL

	var items []*html.Node
	if s.cfg.ItemSelector != "" {
		items = selectAll(doc, s.cfg.ItemSelector)
	}
	if len(items) == 0 {
		items = pdfAnchors(doc)
	}

	records := make([]catalog.Record, 0, len(items))
	for _, item := range items {
		if len(records) == maxCandidates {
			break
		}
		records = append(records, s.extract(base, item))
	}
	return records, nil
}

func (s *Source) extract(base *url.URL, item *html.Node) catalog.Record {
	title := ""
	if s.cfg.TitleSelector != "" {
		if n := findFirst(item, s.cfg.TitleSelector); n != nil {
			title = nodeText(n)
		}
	} else {
		title = attrVal(item, "title")
		if title == "" {
			title = nodeText(item)
		}
	}
	title = strings.TrimSpace(title)

	var href string
	if s.cfg.LinkSelector != "" {
		if n := findFirst(item, s.cfg.LinkSelector); n != nil {
			href = attrVal(n, "href")
		}
	} else if item.Type == html.ElementNode && item.Data == "a" {
		href = attrVal(item, "href")
	}
	href = absoluteURL(base, href)

	var authors []string
	if s.cfg.AuthorSelector != "" {
		if n := findFirst(item, s.cfg.AuthorSelector); n != nil {
			if a := strings.TrimSpace(nodeText(n)); a != "" {
				authors = []string{a}
			}
		}
	}
	if authors == nil {
		authors = []string{}
	}

	var cover string
	if s.cfg.CoverSelector != "" {
		if n := findFirst(item, s.cfg.CoverSelector); n != nil {
			cover = absoluteURL(base, attrVal(n, "src"))
		}
	}

	rec := catalog.Record{
		ID:      s.recordID(href, title),
		Source:  catalog.SourceScrape,
		Title:   title,
		Authors: authors,
		Cover:   cover,
		ReadURL: href,
	}
	if href != "" && pdfPattern.MatchString(href) {
		rec.PDFURL = href
	}
	return rec
}

// recordID derives a stable id from the extracted link (or title when
// no link exists), so the same scraped item keeps the same id across
// calls.
func (s *Source) recordID(href, title string) string {
	basis := href
	if basis == "" {
		basis = title
	}
	h := fnv.New64a()
	h.Write([]byte(basis))
	return fmt.Sprintf("scrape:%s:%x", s.cfg.Name, h.Sum64())
}

func absoluteURL(base *url.URL, href string) string {
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

// pdfAnchors is the fallback extraction: every anchor pointing straight
// at a pdf.
func pdfAnchors(doc *html.Node) []*html.Node {
	var anchors []*html.Node
	walk(doc, func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" && pdfPattern.MatchString(attrVal(n, "href")) {
			anchors = append(anchors, n)
		}
	})
	return anchors
}
