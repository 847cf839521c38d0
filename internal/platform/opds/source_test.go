package opds

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biblioradar/internal/catalog"
	"biblioradar/internal/safefetch"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Test Catalog</title>
  <entry>
    <title>Dom Casmurro</title>
    <author><name>Machado de Assis</name></author>
    <link rel="http://opds-spec.org/acquisition" type="application/pdf" href="https://books.example.com/dom-casmurro.pdf"/>
    <link rel="http://opds-spec.org/image" type="image/jpeg" href="https://books.example.com/dom-casmurro.jpg"/>
    <link rel="alternate" type="text/html" href="https://books.example.com/dom-casmurro"/>
  </entry>
  <entry>
    <title>Quincas Borba</title>
    <link rel="alternate" type="text/html" href="https://books.example.com/quincas-borba"/>
  </entry>
</feed>`

// cannedTransport serves fixed responses keyed by nothing: every request
// gets the same body and status, and the last request URL is recorded.
type cannedTransport struct {
	status  int
	body    string
	lastURL string
}

func (t *cannedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.lastURL = req.URL.String()
	return &http.Response{
		StatusCode: t.status,
		Body:       io.NopCloser(strings.NewReader(t.body)),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

func newTestSource(t *testing.T, feedURL string, transport *cannedTransport) *Source {
	t.Helper()
	fetcher := safefetch.NewClient("test-agent/1.0", time.Second)
	fetcher.SetTransport(transport)
	source, err := NewSource(fetcher, feedURL)
	require.NoError(t, err)
	return source
}

func TestNewSource(t *testing.T) {
	fetcher := safefetch.NewClient("test-agent/1.0", time.Second)

	t.Run("rejects unsafe feed URL", func(t *testing.T) {
		for _, raw := range []string{
			"http://127.0.0.1/feed.xml",
			"http://169.254.169.254/feed.xml",
			"ftp://feeds.example.com/feed.xml",
		} {
			_, err := NewSource(fetcher, raw)
			assert.ErrorIs(t, err, safefetch.ErrUnsafeURL, raw)
		}
	})

	t.Run("accepts public feed URL", func(t *testing.T) {
		source, err := NewSource(fetcher, "https://feeds.example.com/catalog.xml")
		require.NoError(t, err)
		assert.Equal(t, catalog.SourceOPDS, source.ID())
	})
}

func TestSource_Search(t *testing.T) {
	t.Run("maps feed entries", func(t *testing.T) {
		transport := &cannedTransport{status: http.StatusOK, body: sampleFeed}
		source := newTestSource(t, "https://feeds.example.com/catalog.xml", transport)

		records, err := source.Search(context.Background(), "dom casmurro")
		require.NoError(t, err)
		require.Len(t, records, 2)

		assert.Equal(t, "https://feeds.example.com/catalog.xml?search=dom+casmurro", transport.lastURL)

		first := records[0]
		assert.Equal(t, catalog.SourceOPDS, first.Source)
		assert.Equal(t, "Dom Casmurro", first.Title)
		assert.Equal(t, []string{"Machado de Assis"}, first.Authors)
		assert.Equal(t, "https://books.example.com/dom-casmurro.pdf", first.PDFURL)
		assert.Equal(t, "https://books.example.com/dom-casmurro.jpg", first.Cover)
		assert.Equal(t, "https://books.example.com/dom-casmurro", first.ReadURL)
		assert.True(t, strings.HasPrefix(first.ID, "opds:"))

		second := records[1]
		assert.Empty(t, second.PDFURL)
		assert.Equal(t, "https://books.example.com/quincas-borba", second.ReadURL)
		assert.Empty(t, second.Authors)
	})

	t.Run("appends with ampersand when the feed URL has a query", func(t *testing.T) {
		transport := &cannedTransport{status: http.StatusOK, body: sampleFeed}
		source := newTestSource(t, "https://feeds.example.com/catalog.xml?lang=pt", transport)

		_, err := source.Search(context.Background(), "q")
		require.NoError(t, err)
		assert.Equal(t, "https://feeds.example.com/catalog.xml?lang=pt&search=q", transport.lastURL)
	})

	t.Run("non-200 degrades to empty", func(t *testing.T) {
		transport := &cannedTransport{status: http.StatusInternalServerError}
		source := newTestSource(t, "https://feeds.example.com/catalog.xml", transport)

		records, err := source.Search(context.Background(), "q")
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("non-XML degrades to empty", func(t *testing.T) {
		transport := &cannedTransport{status: http.StatusOK, body: "<html>soft error page</html>"}
		source := newTestSource(t, "https://feeds.example.com/catalog.xml", transport)

		records, err := source.Search(context.Background(), "q")
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}

func TestRecordID(t *testing.T) {
	// same basis, same id; better links win over weaker ones
	assert.Equal(t, recordID("t", "http://x/a.pdf", ""), recordID("other", "http://x/a.pdf", "http://x/read"))
	assert.NotEqual(t, recordID("t", "http://x/a.pdf", ""), recordID("t", "http://x/b.pdf", ""))
	assert.Equal(t, recordID("only title", "", ""), recordID("only title", "", ""))
}
