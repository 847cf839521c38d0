package main

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"biblioradar/internal/catalog"
	"biblioradar/internal/download"
	"biblioradar/internal/httpx"
	"biblioradar/internal/platform"
	"biblioradar/internal/platform/archive"
	"biblioradar/internal/platform/gutenberg"
	"biblioradar/internal/platform/openlibrary"
	"biblioradar/internal/safefetch"
)

func main() {
	_ = godotenv.Load(".env.local")

	serverAddress := getEnv("APP_ADDR", ":8080")
	userAgent := getEnv("USER_AGENT", "BiblioRadar/1.0")
	providerTimeout := getDurationEnv("PROVIDER_TIMEOUT", catalog.DefaultSourceTimeout)
	cacheTTL := getDurationEnv("CACHE_TTL", catalog.DefaultCacheTTL)
	providerRPS := getIntEnv("PROVIDER_RPS", 3)
	downloadMaxBytes := int64(getIntEnv("DOWNLOAD_MAX_BYTES", download.DefaultMaxBytes))
	extraTrustedHosts := splitEnv("TRUSTED_DOWNLOAD_HOSTS")
	allowedOrigins := splitEnv("ALLOWED_ORIGINS")

	fetcher := safefetch.NewClient(userAgent, providerTimeout+2*time.Second)

	aggregator := catalog.NewAggregator(providerTimeout,
		gutenberg.NewClient(userAgent, providerRPS),
		archive.NewClient(userAgent, providerRPS),
		openlibrary.NewClient(userAgent, providerRPS, 2),
	)
	cache := catalog.NewResultCache(cacheTTL)
	service := catalog.NewService(aggregator, cache, platform.NewSourceFactory(fetcher))

	catalogHandler := catalog.NewHTTPHandler(service)
	downloadHandler := download.NewHTTPHandler(fetcher, extraTrustedHosts, downloadMaxBytes)

	router := http.NewServeMux()

	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.HandleFunc("GET /v1/search", catalogHandler.Search)
	router.HandleFunc("GET /v1/search-by-provider", catalogHandler.SearchByProvider)
	router.HandleFunc("POST /v1/scrape", catalogHandler.Scrape)
	router.HandleFunc("POST /v1/rank", catalogHandler.Rank)
	router.HandleFunc("GET /v1/download", downloadHandler.Get)

	rateLimit := httpx.NewRateLimitMiddleware(10, 20)

	var handler http.Handler = router
	handler = rateLimit.Middleware(handler)
	handler = httpx.RequestSizeLimitMiddleware(1<<20)(handler)
	handler = httpx.CORSMiddleware(allowedOrigins)(handler)
	handler = httpx.SecurityHeadersMiddleware(handler)
	handler = httpx.RecoveryMiddleware(handler)
	handler = httpx.AccessLogMiddleware(handler)
	handler = httpx.RequestIDMiddleware(handler)

	httpServer := &http.Server{
		Addr:         serverAddress,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("Starting server on %s", serverAddress)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Printf("ignoring invalid %s=%q", key, v)
	}
	return def
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("ignoring invalid %s=%q", key, v)
	}
	return def
}

func splitEnv(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
