// Package download proxies upstream documents to the client under a
// byte budget, restricted to a trusted host allowlist on top of the
// destination safety check.
package download

import (
	"io"
	"log"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"biblioradar/internal/httpx"
	"biblioradar/internal/safefetch"
)

// DefaultMaxBytes is the streaming budget per download.
const DefaultMaxBytes = 50 << 20

var defaultTrustedHosts = []string{
	"gutenberg.org", "archive.org", "openlibrary.org", "covers.openlibrary.org",
	"scielo.org", "scielo.br", "periodicos.capes.gov.br", "gov.br",
	"usp.br", "unicamp.br", "unesp.br",
	"arxiv.org", "biorxiv.org", "medrxiv.org", "ssrn.com", "core.ac.uk",
	"ncbi.nlm.nih.gov", "plos.org", "mdpi.com", "frontiersin.org",
	"springeropen.com", "hindawi.com", "researchgate.net", "academia.edu",
}

type HTTPHandler struct {
	fetcher  *safefetch.Client
	trusted  []string
	maxBytes int64
}

// NewHTTPHandler builds the proxy. extraHosts widens the allowlist
// (deploy-time configuration); maxBytes <= 0 selects the default
// budget.
func NewHTTPHandler(fetcher *safefetch.Client, extraHosts []string, maxBytes int64) *HTTPHandler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	trusted := make([]string, 0, len(defaultTrustedHosts)+len(extraHosts))
	trusted = append(trusted, defaultTrustedHosts...)
	for _, h := range extraHosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			trusted = append(trusted, h)
		}
	}
	return &HTTPHandler{fetcher: fetcher, trusted: trusted, maxBytes: maxBytes}
}

// Get handles GET /v1/download?url=...
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		httpx.JSONErrorWithRequest(r, w, http.StatusBadRequest, "VALIDATION_ERROR", "Missing url parameter", nil)
		return
	}
	src, err := url.Parse(raw)
	if err != nil || (src.Scheme != "http" && src.Scheme != "https") {
		httpx.JSONErrorWithRequest(r, w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid url parameter", nil)
		return
	}
	if !safefetch.IsSafeURL(raw) {
		httpx.JSONErrorWithRequest(r, w, http.StatusForbidden, "UNSAFE_DESTINATION", "URL rejected by destination safety check", nil)
		return
	}
	if !h.trustedHost(src.Hostname()) {
		httpx.JSONErrorWithRequest(r, w, http.StatusForbidden, "HOST_NOT_ALLOWED", "Host is not on the download allowlist", nil)
		return
	}

	// cheap preflight: refuse obviously oversized files before streaming
	if head, err := h.fetcher.Head(r.Context(), raw); err == nil {
		head.Body.Close()
		if head.StatusCode == http.StatusOK {
			if lenStr := head.Header.Get("Content-Length"); lenStr != "" {
				if n, err := strconv.ParseInt(lenStr, 10, 64); err == nil && n > h.maxBytes {
					httpx.JSONErrorWithRequest(r, w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "File exceeds the download size limit", nil)
					return
				}
			}
		}
	}

	resp, err := h.fetcher.Get(r.Context(), raw)
	if err != nil {
		httpx.JSONErrorWithRequest(r, w, http.StatusBadGateway, "UPSTREAM_ERROR", "Upstream fetch failed", nil)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		httpx.JSONErrorWithRequest(r, w, http.StatusBadGateway, "UPSTREAM_ERROR", "Upstream fetch failed", nil)
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/pdf"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+h.filename(resp, src)+`"`)
	w.Header().Set("Cache-Control", "no-store")

	// stream with a hard budget; exceeding it aborts the copy, leaving
	// the client with a truncated body
	written, err := io.Copy(w, io.LimitReader(resp.Body, h.maxBytes+1))
	if written > h.maxBytes {
		log.Printf("download aborted: %s exceeded %d bytes", src.Host, h.maxBytes)
		panic(http.ErrAbortHandler)
	}
	if err != nil {
		log.Printf("download stream error for %s: %v", src.Host, err)
	}
}

func (h *HTTPHandler) trustedHost(host string) bool {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	for _, t := range h.trusted {
		t = strings.TrimPrefix(t, "www.")
		if host == t || strings.HasSuffix(host, "."+t) {
			return true
		}
	}
	return false
}

func (h *HTTPHandler) filename(resp *http.Response, src *url.URL) string {
	if disp := resp.Header.Get("Content-Disposition"); disp != "" {
		if _, params, err := mime.ParseMediaType(disp); err == nil {
			if name := params["filename"]; name != "" {
				return name
			}
		}
	}
	if name := path.Base(src.Path); name != "" && name != "/" && name != "." {
		return name
	}
	return "document.pdf"
}
