package safefetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSafeURL(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{"public https", "https://www.gutenberg.org/ebooks/55752", true},
		{"public http", "http://archive.org/advancedsearch.php", true},
		{"loopback v4", "http://127.0.0.1/feed.xml", false},
		{"loopback v4 with port", "http://127.0.0.1:8080/feed.xml", false},
		{"loopback v6", "http://[::1]/feed.xml", false},
		{"localhost name", "http://localhost:3000/feed.xml", false},
		{"cloud metadata", "http://169.254.169.254/latest/meta-data/", false},
		{"metadata hostname", "http://metadata.google.internal/computeMetadata/v1/", false},
		{"private 10/8", "http://10.0.0.5/catalog", false},
		{"private 192.168/16", "https://192.168.1.1/admin", false},
		{"private 172.16/12", "http://172.16.0.1/", false},
		{"unspecified", "http://0.0.0.0/", false},
		{"link-local v6", "http://[fe80::1]/", false},
		{"ftp scheme", "ftp://ftp.gutenberg.org/pub", false},
		{"file scheme", "file:///etc/passwd", false},
		{"no host", "http:///path", false},
		{"garbage", "http://[::bad", false},
		{"mixed-case blocked name", "http://LOCALHOST/feed", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSafeURL(tt.raw))
		})
	}
}

func TestClient_RejectsBeforeDialing(t *testing.T) {
	client := NewClient("test-agent/1.0", time.Second)

	// No server listens on these; an attempted connection would error
	// differently, so ErrUnsafeURL proves nothing was dialed.
	for _, raw := range []string{
		"http://127.0.0.1:1/x",
		"http://169.254.169.254/latest/meta-data/",
	} {
		_, err := client.Get(context.Background(), raw)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnsafeURL)
	}
}

func TestClient_SetsUserAgent(t *testing.T) {
	var gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
	}))
	defer server.Close()

	// httptest binds to 127.0.0.1, which the guard blocks. Point a
	// resolvable-looking host at the listener via the transport instead.
	client := NewClient("test-agent/1.0", time.Second)
	client.SetTransport(rewriteTransport{target: server.Listener.Addr().String()})

	resp, err := client.Get(context.Background(), "http://upstream.example.com/ok")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "test-agent/1.0", gotAgent)
}

func TestClient_GuardsRedirects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "http://169.254.169.254/latest/meta-data/", http.StatusFound)
	}))
	defer server.Close()

	client := NewClient("test-agent/1.0", time.Second)
	client.SetTransport(rewriteTransport{target: server.Listener.Addr().String()})

	resp, err := client.Get(context.Background(), "http://upstream.example.com/redirect")
	if resp != nil {
		resp.Body.Close()
	}
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsafeURL)
}

// rewriteTransport sends every request to a fixed local listener while
// leaving the request URL, and so the guard's view of it, untouched.
type rewriteTransport struct {
	target string
}

func (t rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.URL.Scheme = "http"
	clone.URL.Host = t.target
	clone.Host = req.URL.Host
	return http.DefaultTransport.RoundTrip(clone)
}
