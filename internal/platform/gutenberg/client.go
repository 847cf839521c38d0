package gutenberg

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"biblioradar/internal/catalog"
)

// searchLanguages bounds Gutendex results to the catalog's display
// locales.
const searchLanguages = "en,pt,es,fr,it,de"

// Client queries the Gutendex mirror of the Project Gutenberg catalog.
type Client struct {
	httpClient *http.Client
	userAgent  string
	baseURL    string
	limiter    *rate.Limiter
}

func NewClient(userAgent string, rps int) *Client {
	if rps < 1 {
		rps = 1
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		userAgent: userAgent,
		baseURL:   "https://gutendex.com",
		limiter:   rate.NewLimiter(rate.Every(time.Second/time.Duration(rps)), 1),
	}
}

// SetBaseURL overrides the upstream endpoint, used in tests.
func (c *Client) SetBaseURL(u string) { c.baseURL = strings.TrimRight(u, "/") }

func (c *Client) ID() catalog.Source { return catalog.SourceGutenberg }

// searchResponse matches /books
type searchResponse struct {
	Count   int `json:"count"`
	Results []struct {
		ID      int `json:"id"`
		Title   string `json:"title"`
		Authors []struct {
			Name string `json:"name"`
		} `json:"authors"`
		Formats map[string]string `json:"formats"`
	} `json:"results"`
}

// Search maps Gutendex books into catalog records. A direct document
// link comes from the pdf format when present, falling back to the
// octet-stream format; readUrl always resolves to something usable.
func (c *Client) Search(ctx context.Context, query string) ([]catalog.Record, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/books?search=%s&languages=%s", c.baseURL, url.QueryEscape(query), searchLanguages)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return []catalog.Record{}, nil
	}

	var data searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return []catalog.Record{}, nil
	}

	records := make([]catalog.Record, 0, len(data.Results))
	for _, b := range data.Results {
		if len(records) == catalog.MaxPerSource {
			break
		}
		pdf := b.Formats["application/pdf"]
		if pdf == "" {
			pdf = b.Formats["application/octet-stream"]
		}
		read := pdf
		if read == "" {
			read = fmt.Sprintf("https://www.gutenberg.org/ebooks/%d", b.ID)
		}

		names := make([]string, 0, len(b.Authors))
		for _, a := range b.Authors {
			names = append(names, a.Name)
		}

		records = append(records, catalog.Record{
			ID:      fmt.Sprintf("gutenberg:%d", b.ID),
			Source:  catalog.SourceGutenberg,
			Title:   b.Title,
			Authors: uniqNames(names),
			Cover:   b.Formats["image/jpeg"],
			PDFURL:  pdf,
			ReadURL: read,
		})
	}
	return records, nil
}

// uniqNames drops empty entries and exact duplicates, keeping first
// occurrence order. Fuzzy author matching belongs to the cross-provider
// merger, not here.
func uniqNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
