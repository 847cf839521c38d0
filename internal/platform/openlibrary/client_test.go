package openlibrary

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biblioradar/internal/catalog"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	client := NewClient("test-agent/1.0", 100, 2)
	client.SetBaseURL(server.URL)
	return client, server
}

func TestNewClient_ClampsRate(t *testing.T) {
	assert.NotPanics(t, func() {
		NewClient("a", 0, 2)
		NewClient("a", -3, 2)
	})
}

func TestClient_Search(t *testing.T) {
	t.Run("maps docs to records without a direct link", func(t *testing.T) {
		client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/search.json", r.URL.Path)
			assert.Equal(t, "dom casmurro", r.URL.Query().Get("q"))
			fmt.Fprint(w, `{
				"numFound": 2,
				"docs": [
					{"key": "/works/OL81631W", "title": "Dom Casmurro", "author_name": ["Machado de Assis"], "cover_i": 8236241, "first_publish_year": 1899},
					{"key": "/works/OL999W", "title": "No extras"}
				]
			}`)
		})
		defer server.Close()

		records, err := client.Search(context.Background(), "dom casmurro")
		require.NoError(t, err)
		require.Len(t, records, 2)

		first := records[0]
		assert.Equal(t, "open_library:/works/OL81631W", first.ID)
		assert.Equal(t, catalog.SourceOpenLibrary, first.Source)
		assert.Equal(t, []string{"Machado de Assis"}, first.Authors)
		require.NotNil(t, first.Year)
		assert.Equal(t, 1899, *first.Year)
		assert.Equal(t, "https://covers.openlibrary.org/b/id/8236241-M.jpg", first.Cover)
		assert.Empty(t, first.PDFURL)
		assert.Equal(t, "https://openlibrary.org/works/OL81631W", first.ReadURL)
		assert.False(t, first.Actionable())

		second := records[1]
		assert.Equal(t, []string{}, second.Authors)
		assert.Nil(t, second.Year)
		assert.Empty(t, second.Cover)
	})

	t.Run("retries transient failures", func(t *testing.T) {
		calls := 0
		client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			fmt.Fprint(w, `{"numFound":1,"docs":[{"key":"/works/OL1W","title":"T"}]}`)
		})
		defer server.Close()

		records, err := client.Search(context.Background(), "t")
		require.NoError(t, err)
		assert.Len(t, records, 1)
		assert.Equal(t, 2, calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()
		client := NewClient("test-agent/1.0", 100, 1)
		client.SetBaseURL(server.URL)

		_, err := client.Search(context.Background(), "t")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected status code: 500")
	})

	t.Run("non-retryable status degrades to empty", func(t *testing.T) {
		client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		defer server.Close()

		records, err := client.Search(context.Background(), "t")
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("malformed payload degrades to empty", func(t *testing.T) {
		client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `not json`)
		})
		defer server.Close()

		records, err := client.Search(context.Background(), "t")
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}
