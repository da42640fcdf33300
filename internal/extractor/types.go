package extractor

// IDExtractorFunc derives a canonical product identifier from a URL path.
// It returns "" when the path does not carry one.
type IDExtractorFunc func(path string) string

// SiteRule describes the extraction tuned to a recognized retailer.
// Unrecognized sites fall through to the generic selector lists.
type SiteRule struct {
	// Name is the display name used for the site field.
	Name string

	// DomainContains matches the rule to a page hostname.
	DomainContains string

	// ProductPathPatterns are path fragments that mark a product detail
	// page for this retailer, checked before the generic patterns.
	ProductPathPatterns []string

	// TitleSelectors are tried before the generic title selectors.
	TitleSelectors []string

	// PriceSelectors are tried before meta tags and generic selectors.
	PriceSelectors []string

	// IDExtractor derives the retailer's canonical product identifier
	// from the URL path, when the URL shape carries one.
	IDExtractor IDExtractorFunc
}

// Selectors bundles the generic ranked selector lists applied to
// unrecognized sites and as fallback for recognized ones.
type Selectors struct {
	Title []string
	Price []string
	Image []string
}
