package catalog

// ProviderKind discriminates the custom provider configuration union.
type ProviderKind string

const (
	KindOPDS   ProviderKind = "opds"
	KindScrape ProviderKind = "scrape"
)

// ProviderConfig describes a user-supplied dynamic source. Only the
// field group matching Kind is meaningful; the SourceFactory given to
// the Service is the single place that switches on Kind, exhaustively.
type ProviderConfig struct {
	Kind ProviderKind `json:"kind" validate:"required,oneof=opds scrape"`
	Name string       `json:"name" validate:"required,max=100"`

	// Kind == opds
	FeedURL string `json:"feedUrl,omitempty" validate:"required_if=Kind opds,omitempty,url"`

	// Kind == scrape. SearchURLTemplate must carry a {query}
	// placeholder; selectors beyond itemSelector are optional.
	SearchURLTemplate string `json:"searchUrlTemplate,omitempty" validate:"required_if=Kind scrape,omitempty,contains={query}"`
	ItemSelector      string `json:"itemSelector,omitempty" validate:"max=200"`
	TitleSelector     string `json:"titleSelector,omitempty" validate:"max=200"`
	LinkSelector      string `json:"linkSelector,omitempty" validate:"max=200"`
	AuthorSelector    string `json:"authorSelector,omitempty" validate:"max=200"`
	CoverSelector     string `json:"coverSelector,omitempty" validate:"max=200"`
}

// Signature is the stable identifier of one config, used in cache keys
// so that editing a provider invalidates its cached results.
func (c ProviderConfig) Signature() string {
	if c.Kind == KindOPDS {
		return string(c.Kind) + ":" + c.FeedURL
	}
	return string(c.Kind) + ":" + c.Name + ":" + c.SearchURLTemplate
}
