package openlibrary

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

type Client struct {
	httpClient *http.Client
	userAgent  string
	baseURL    string
	limiter    *rate.Limiter
	maxRetries int
}

func NewClient(userAgent string, rps int, maxRetries int) *Client {
	if rps < 1 {
		rps = 1
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		userAgent:  userAgent,
		baseURL:    "https://openlibrary.org",
		limiter:    rate.NewLimiter(rate.Every(time.Second/time.Duration(rps)), 1),
		maxRetries: maxRetries,
	}
}

// SetBaseURL overrides the upstream endpoint, used in tests.
func (c *Client) SetBaseURL(u string) { c.baseURL = strings.TrimRight(u, "/") }

func (c *Client) ID() catalog.Source { return catalog.SourceOpenLibrary }

// searchResponse matches search.json
type searchResponse struct {
	NumFound int `json:"numFound"`
	Docs     []struct {
		Key              string   `json:"key"`
		Title            string   `json:"title"`
		AuthorNames      []string `json:"author_name"`
		CoverID          int      `json:"cover_i"`
		FirstPublishYear int      `json:"first_publish_year"`
	} `json:"docs"`
}

// Search maps Open Library works into catalog records. Open Library
// never exposes a direct document link, so pdfUrl stays empty and
// readUrl points at the work page.
func (c *Client) Search(ctx context.Context, query string) ([]catalog.Record, error) {
	u := fmt.Sprintf("%s/search.json?q=%s&fields=key,title,author_name,cover_i,first_publish_year&limit=%d",
		c.baseURL, url.QueryEscape(query), catalog.MaxPerSource)

	var res searchResponse
	if err := c.get(ctx, u, &res); err != nil {
		return nil, err
	}

	records := make([]catalog.Record, 0, len(res.Docs))
	for _, doc := range res.Docs {
		if len(records) == catalog.MaxPerSource {
			break
		}
		rec := catalog.Record{
			ID:      "open_library:" + doc.Key,
			Source:  catalog.SourceOpenLibrary,
			Title:   doc.Title,
			Authors: doc.AuthorNames,
		}
		if rec.Authors == nil {
			rec.Authors = []string{}
		}
		if doc.FirstPublishYear != 0 {
			year := doc.FirstPublishYear
			rec.Year = &year
		}
		if doc.CoverID != 0 {
			rec.Cover = fmt.Sprintf("https://covers.openlibrary.org/b/id/%d-M.jpg", doc.CoverID)
		}
		if doc.Key != "" {
			rec.ReadURL = "https://openlibrary.org" + doc.Key
		}
		records = append(records, rec)
	}
	return records, nil
}

// get retries transient upstream failures with exponential backoff.
// Non-retryable statuses and malformed payloads leave target untouched:
// they degrade to zero results instead of erroring.
func (c *Client) get(ctx context.Context, url string, target interface{}) error {
	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		if i > 0 {
			// Backoff: 1s, 2s, 4s...
			backoff := time.Duration(1<<uint(i-1)) * time.Second
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("unexpected status code: %d", resp.StatusCode)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil
		}

		decodeErr := json.NewDecoder(resp.Body).Decode(target)
		resp.Body.Close()
		if decodeErr != nil {
			return nil
		}
		return nil
	}
	return fmt.Errorf("after %d retries: %w", c.maxRetries, lastErr)
}
