package catalog

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"biblioradar/internal/httpx"
	"biblioradar/internal/safefetch"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

type searchResponse struct {
	Results   []Record `json:"results"`
	Providers []Source `json:"providers"`
}

// Search handles GET /v1/search. An empty query is not an error: it
// returns an empty result set without dispatching anything.
func (h *HTTPHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	onlyPDF := r.URL.Query().Get("onlyPdf") == "1"

	if query == "" {
		httpx.JSONSuccessWithRequest(r, w, searchResponse{Results: []Record{}, Providers: []Source{}}, nil)
		return
	}

	results := h.service.Search(r.Context(), query, onlyPDF)
	httpx.JSONSuccessWithRequest(r, w, searchResponse{
		Results:   results,
		Providers: h.service.Providers(),
	}, nil)
}

type providerSearchParams struct {
	Query    string `validate:"required,max=100"`
	Provider string `validate:"required,oneof=gutenberg internet_archive open_library opds"`
	Feed     string `validate:"omitempty,url"`
}

// SearchByProvider handles GET /v1/search-by-provider, the
// single-source pass used for custom provider rounds. provider=opds
// additionally requires a feed URL, which must pass the destination
// safety check or the request is rejected outright.
func (h *HTTPHandler) SearchByProvider(w http.ResponseWriter, r *http.Request) {
	params := providerSearchParams{
		Query:    strings.TrimSpace(r.URL.Query().Get("q")),
		Provider: r.URL.Query().Get("provider"),
		Feed:     r.URL.Query().Get("feed"),
	}
	if details := validateStruct(params); details != nil {
		httpx.JSONErrorWithRequest(r, w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid search parameters", details)
		return
	}
	if params.Provider == string(SourceOPDS) && params.Feed == "" {
		httpx.JSONErrorWithRequest(r, w, http.StatusBadRequest, "VALIDATION_ERROR", "provider=opds requires a feed URL", nil)
		return
	}

	results, err := h.service.SearchProvider(r.Context(), params.Query, Source(params.Provider), params.Feed)
	if err != nil {
		if errors.Is(err, safefetch.ErrUnsafeURL) {
			httpx.JSONErrorWithRequest(r, w, http.StatusForbidden, "UNSAFE_DESTINATION", "Feed URL rejected by destination safety check", nil)
			return
		}
		if errors.Is(err, ErrUnknownProvider) {
			httpx.JSONErrorWithRequest(r, w, http.StatusBadRequest, "UNKNOWN_PROVIDER", "Unknown provider", nil)
			return
		}
		httpx.JSONErrorWithRequest(r, w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
		return
	}
	httpx.JSONSuccessWithRequest(r, w, searchResponse{Results: results, Providers: []Source{Source(params.Provider)}}, nil)
}

type scrapeRequest struct {
	Query  string         `json:"q"`
	Config ProviderConfig `json:"config"`
}

// Scrape handles POST /v1/scrape: one pass of a user-configured
// selector scraper. Upstream failures degrade to an empty result set;
// only unsafe destinations and malformed configs are rejected.
func (h *HTTPHandler) Scrape(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONErrorWithRequest(r, w, http.StatusBadRequest, "INVALID_BODY", "Invalid JSON body", nil)
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" || req.Config.Kind != KindScrape {
		httpx.JSONErrorWithRequest(r, w, http.StatusBadRequest, "VALIDATION_ERROR", "Missing query or scrape config", nil)
		return
	}
	if details := validateStruct(req.Config); details != nil {
		httpx.JSONErrorWithRequest(r, w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid provider config", details)
		return
	}

	results, err := h.service.SearchCustom(r.Context(), req.Query, req.Config)
	if err != nil {
		if errors.Is(err, safefetch.ErrUnsafeURL) {
			httpx.JSONErrorWithRequest(r, w, http.StatusForbidden, "UNSAFE_DESTINATION", "Scrape URL rejected by destination safety check", nil)
			return
		}
		httpx.JSONErrorWithRequest(r, w, http.StatusBadRequest, "INVALID_CONFIG", "Could not build scraper from config", nil)
		return
	}
	httpx.JSONSuccessWithRequest(r, w, searchResponse{Results: results, Providers: []Source{SourceScrape}}, nil)
}

type rankRequest struct {
	Query   string   `json:"q"`
	Results []Record `json:"results"`
}

// Rank handles POST /v1/rank: the richer, interactive ordering pass the
// client runs over combined server and custom-provider result sets.
func (h *HTTPHandler) Rank(w http.ResponseWriter, r *http.Request) {
	var req rankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONErrorWithRequest(r, w, http.StatusBadRequest, "INVALID_BODY", "Invalid JSON body", nil)
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		httpx.JSONSuccessWithRequest(r, w, searchResponse{Results: []Record{}, Providers: []Source{}}, nil)
		return
	}
	ranked := h.service.Rank(req.Query, req.Results)
	httpx.JSONSuccessWithRequest(r, w, searchResponse{Results: ranked, Providers: []Source{}}, nil)
}
