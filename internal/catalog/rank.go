package catalog

import (
	"math"
	"sort"
	"strings"
)

const (
	weightTermOverlap    = 3
	weightTitlePrefix    = 6
	weightTitleContains  = 4
	weightAuthorContains = 3
	weightActionable     = 3
	weightHasYear        = 1
	weightLangPrimary    = 3
	weightLangEnglish    = 1
	weightTrustedSource  = 1
)

// primaryLanguage is the locale prefix that earns the full language
// affinity bonus. No built-in adapter populates Language today; the
// hook is kept for feed and scrape sources that do.
const primaryLanguage = "pt"

// Tokenize splits s into normalized alphanumeric terms.
func Tokenize(s string) []string {
	return strings.FieldsFunc(Normalize(s), func(r rune) bool {
		return (r < 'a' || r > 'z') && (r < '0' || r > '9')
	})
}

// score rates one record against the query. A record whose title yields
// no tokens scores -1, below every retention threshold.
func score(query string, queryTokens []string, r Record) int {
	titleTokens := Tokenize(r.Title)
	if len(titleTokens) == 0 {
		return -1
	}
	authors := strings.Join(r.Authors, " ")

	vocab := make(map[string]struct{}, len(titleTokens))
	for _, t := range titleTokens {
		vocab[t] = struct{}{}
	}
	for _, t := range Tokenize(authors) {
		vocab[t] = struct{}{}
	}

	s := 0
	for _, t := range queryTokens {
		if _, ok := vocab[t]; ok {
			s += weightTermOverlap
		}
	}

	nq := Normalize(query)
	nt := Normalize(r.Title)
	na := Normalize(authors)
	switch {
	case strings.HasPrefix(nt, nq):
		s += weightTitlePrefix
	case strings.Contains(nt, nq):
		s += weightTitleContains
	}
	if na != "" && strings.Contains(na, nq) {
		s += weightAuthorContains
	}

	if r.Actionable() {
		s += weightActionable
	}
	if r.Year != nil {
		s += weightHasYear
	}

	lang := strings.ToLower(r.Language)
	switch {
	case strings.HasPrefix(lang, primaryLanguage):
		s += weightLangPrimary
	case strings.HasPrefix(lang, "en"):
		s += weightLangEnglish
	}

	if strings.Contains(string(r.Source), "gutenberg") {
		s += weightTrustedSource
	}
	return s
}

// Rank orders records by relevance to the query, descending, with ties
// broken by descending year (missing year sorts lowest). It runs its
// own merge-key dedup first because callers feed it recombined sets
// from several aggregation passes, then drops records below the
// retention threshold: >=4 for multi-token queries, >=1 for
// single-token ones.
func Rank(query string, records []Record) []Record {
	seen := make(map[string]struct{}, len(records))
	dedup := make([]Record, 0, len(records))
	for _, r := range records {
		key := Normalize(r.Title) + "::" + Normalize(strings.Join(r.Authors, " "))
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		dedup = append(dedup, r)
	}

	queryTokens := Tokenize(query)
	threshold := 1
	if len(queryTokens) >= 2 {
		threshold = 4
	}

	type scored struct {
		rec   Record
		score int
	}
	kept := make([]scored, 0, len(dedup))
	for _, r := range dedup {
		if s := score(query, queryTokens, r); s >= threshold {
			kept = append(kept, scored{rec: r, score: s})
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].score != kept[j].score {
			return kept[i].score > kept[j].score
		}
		return tieYear(kept[i].rec) > tieYear(kept[j].rec)
	})

	out := make([]Record, len(kept))
	for i, k := range kept {
		out[i] = k.rec
	}
	return out
}

// tieYear treats a missing year as the lowest value. Tie-break only;
// records without a year are never excluded here.
func tieYear(r Record) int {
	if r.Year == nil {
		return math.MinInt
	}
	return *r.Year
}
