package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Source identifies which catalog a record came from.
type Source string

const (
	SourceGutenberg       Source = "gutenberg"
	SourceInternetArchive Source = "internet_archive"
	SourceOpenLibrary     Source = "open_library"
	SourceOPDS            Source = "opds"
	SourceScrape          Source = "scrape"
	SourceUser            Source = "user"
)

// KnownSource reports whether s is one of the recognized source tags.
// Adapters stamp their own tag; anything else never enters the pipeline.
func KnownSource(s Source) bool {
	switch s {
	case SourceGutenberg, SourceInternetArchive, SourceOpenLibrary,
		SourceOPDS, SourceScrape, SourceUser:
		return true
	}
	return false
}

// MaxPerSource caps how many records one adapter may return per call.
const MaxPerSource = 25

// Record is the common result shape every provider adapter maps into.
// IDs are namespaced "<provider>:<native-id>" and deterministic: the
// same upstream item yields the same id across calls.
type Record struct {
	ID       string   `json:"id"`
	Source   Source   `json:"source"`
	Title    string   `json:"title"`
	Authors  []string `json:"authors"`
	Year     *int     `json:"year,omitempty"`
	Cover    string   `json:"cover,omitempty"`
	PDFURL   string   `json:"pdfUrl,omitempty"`
	ReadURL  string   `json:"readUrl,omitempty"`
	Language string   `json:"language,omitempty"`
}

// Actionable reports whether the record carries a direct document link.
func (r Record) Actionable() bool { return r.PDFURL != "" }

// MergeKey derives the duplicate-detection key: normalized title plus
// normalized first author. Records sharing a key are treated as the
// same logical book regardless of provider or id.
func (r Record) MergeKey() string {
	first := ""
	if len(r.Authors) > 0 {
		first = r.Authors[0]
	}
	return Normalize(r.Title) + "::" + Normalize(first)
}

var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases s, strips diacritics and collapses runs of
// whitespace to a single space.
func Normalize(s string) string {
	s = strings.ToLower(s)
	if out, _, err := transform.String(deaccent, s); err == nil {
		s = out
	}
	return strings.Join(strings.Fields(s), " ")
}
