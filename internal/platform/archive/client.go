package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"biblioradar/internal/catalog"
)

// Client queries the Internet Archive advanced search API, restricted
// to text items.
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
		baseURL:   "https://archive.org",
		limiter:   rate.NewLimiter(rate.Every(time.Second/time.Duration(rps)), 1),
	}
}

// SetBaseURL overrides the upstream endpoint, used in tests.
func (c *Client) SetBaseURL(u string) { c.baseURL = strings.TrimRight(u, "/") }

func (c *Client) ID() catalog.Source { return catalog.SourceInternetArchive }

// stringList tolerates the API returning creator as either a string or
// a list of strings.
type stringList []string

func (s *stringList) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '[' {
		var list []string
		if err := json.Unmarshal(b, &list); err != nil {
			return err
		}
		*s = list
		return nil
	}
	var one string
	if err := json.Unmarshal(b, &one); err != nil {
		return err
	}
	if one != "" {
		*s = stringList{one}
	}
	return nil
}

// flexInt tolerates year arriving as a number or a numeric string.
type flexInt struct {
	value *int
}

func (f *flexInt) UnmarshalJSON(b []byte) error {
	raw := strings.Trim(string(b), `"`)
	if raw == "" || raw == "null" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	f.value = &n
	return nil
}

type searchResponse struct {
	Response struct {
		Docs []struct {
			Identifier string     `json:"identifier"`
			Title      string     `json:"title"`
			Creator    stringList `json:"creator"`
			Year       flexInt    `json:"year"`
		} `json:"docs"`
	} `json:"response"`
}

// Search maps archive items into catalog records. Every item gets a
// speculative direct pdf link under /download plus a landing page under
// /details; the download proxy deals with links that turn out dead.
func (c *Client) Search(ctx context.Context, query string) ([]catalog.Record, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("q", query+" AND mediatype:texts")
	params.Add("fl[]", "identifier,title,creator,year,mediatype")
	params.Set("rows", strconv.Itoa(catalog.MaxPerSource))
	params.Set("page", "1")
	params.Set("output", "json")

	u := c.baseURL + "/advancedsearch.php?" + params.Encode()
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

	records := make([]catalog.Record, 0, len(data.Response.Docs))
	for _, d := range data.Response.Docs {
		if len(records) == catalog.MaxPerSource {
			break
		}
		if d.Identifier == "" {
			continue
		}
		authors := []string(d.Creator)
		if authors == nil {
			authors = []string{}
		}
		records = append(records, catalog.Record{
			ID:      "internet_archive:" + d.Identifier,
			Source:  catalog.SourceInternetArchive,
			Title:   d.Title,
			Authors: authors,
			Year:    d.Year.value,
			Cover:   fmt.Sprintf("https://archive.org/services/img/%s", d.Identifier),
			PDFURL:  fmt.Sprintf("https://archive.org/download/%s/%s.pdf", d.Identifier, d.Identifier),
			ReadURL: fmt.Sprintf("https://archive.org/details/%s", d.Identifier),
		})
	}
	return records, nil
}
