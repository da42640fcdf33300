package extractor

import (
	"regexp"
	"strings"
)

// Vocabulary scanned in the visible page text; three or more hits
// classify the page as e-commerce.
var ecommerceIndicators = []string{
	"add to cart",
	"add to bag",
	"buy now",
	"add to basket",
	"purchase",
	"shop now",
	"add to wishlist",
	"product details",
	"product description",
	"price",
	"size",
	"color",
	"quantity",
}

// Path fragments that mark a product detail URL on most shops.
var productURLPatterns = []string{
	"/product/",
	"/products/",
	"/item/",
	"/items/",
	"/p/",
	"/pd/",
	"/dp/",
	"/gp/product/",
	"-p-",
	"/buy/",
	"/shop/",
	"/detail/",
	"/goods/",
}

// Domains that never host product pages; extraction short-circuits there.
var nonCommerceDomains = []string{
	"claude.ai",
	"openai.com",
	"github.com",
	"google.com",
	"stackoverflow.com",
}

var (
	nikeIDPattern     = regexp.MustCompile(`/t/[^/]+/([^/?]+)`)
	amazonASINPattern = regexp.MustCompile(`/(?:dp|gp/product)/([A-Z0-9]{10})`)
	genericIDPatterns = []*regexp.Regexp{
		regexp.MustCompile(`/product/([a-zA-Z0-9-]+)`),
		regexp.MustCompile(`/p/([a-zA-Z0-9-]+)`),
		regexp.MustCompile(`/item/([0-9]+)`),
		regexp.MustCompile(`/([A-Z0-9]{10})(?:/|$)`),
	}
	tldSuffixPattern = regexp.MustCompile(`\.(com|net|org|co|io|store|shop|in|uk|ca|au|de|fr|es|it|jp|cn|sg).*$`)
)

// siteRules is the ordered table of recognized retailers. New sites are
// added here without touching the extraction control flow.
var siteRules = []SiteRule{
	{
		Name:                "Nike",
		DomainContains:      "nike.com",
		ProductPathPatterns: []string{"/t/", "/w/", "/m/"},
		TitleSelectors: []string{
			`[data-test="product-title"]`,
			`h1[id*="pdp_product_title"]`,
			".product-title",
		},
		PriceSelectors: []string{
			`[data-test="product-price"]`,
			`[data-test="product-price-reduced"]`,
			".product-price",
			".css-b9fpep",
			".css-1g0n8lx",
			".headline-5",
			".css-17t8u4e",
		},
		IDExtractor: func(path string) string {
			if m := nikeIDPattern.FindStringSubmatch(path); m != nil {
				return m[1]
			}
			return ""
		},
	},
	{
		Name:           "Amazon",
		DomainContains: "amazon",
		TitleSelectors: []string{
			"#productTitle",
			"h1.a-size-large",
		},
		PriceSelectors: []string{
			".a-price.a-text-price.a-size-medium.apexPriceToPay span.a-offscreen",
			".a-price.a-text-price.a-size-medium span.a-offscreen",
			`span.a-price[data-a-size="xl"] span.a-offscreen`,
			".a-price-whole",
			"#priceblock_dealprice",
			"#priceblock_ourprice",
			".a-price > span.a-offscreen",
		},
		IDExtractor: func(path string) string {
			if m := amazonASINPattern.FindStringSubmatch(path); m != nil {
				return m[1]
			}
			return ""
		},
	},
	{
		Name:           "eBay",
		DomainContains: "ebay",
	},
	{
		Name:           "Walmart",
		DomainContains: "walmart",
	},
	{
		Name:           "Target",
		DomainContains: "target",
	},
}

// genericSelectors are the ranked fallback lists shared by every site.
var genericSelectors = Selectors{
	Title: []string{
		"h1",
		`[class*="product-title"]`,
		`[class*="product-name"]`,
		`[class*="productTitle"]`,
		`[class*="productName"]`,
		`[itemprop="name"]`,
	},
	Price: []string{
		`[class*="price"]:not([class*="strike"]):not([class*="old"]):not([class*="was"]):not([class*="list"])`,
		`[class*="Price"]:not([class*="Strike"]):not([class*="Old"]):not([class*="Was"]):not([class*="List"])`,
		"[data-price]",
		`[itemprop="price"]`,
		".sale-price",
		".current-price",
	},
	Image: []string{
		`[class*="product-image"] img`,
		`[class*="main-image"] img`,
		`[itemprop="image"]`,
	},
}

// ruleForDomain returns the site rule matching the hostname, or nil.
func ruleForDomain(domain string) *SiteRule {
	for i := range siteRules {
		if strings.Contains(domain, siteRules[i].DomainContains) {
			return &siteRules[i]
		}
	}
	return nil
}

// isNonCommerceDomain reports whether the domain is known to never
// host product pages.
func isNonCommerceDomain(domain string) bool {
	for _, d := range nonCommerceDomains {
		if strings.Contains(domain, d) {
			return true
		}
	}
	return false
}

// CanonicalID derives a site-specific canonical product identifier from
// a URL path, falling back to generic product-URL shapes. It returns ""
// when no identifier can be derived.
func CanonicalID(domain, path string) string {
	if rule := ruleForDomain(domain); rule != nil && rule.IDExtractor != nil {
		if id := rule.IDExtractor(path); id != "" {
			return id
		}
	}
	for _, pattern := range genericIDPatterns {
		if m := pattern.FindStringSubmatch(path); m != nil {
			return m[1]
		}
	}
	return ""
}

// SiteName derives a display name for the page's site. Recognized
// retailers use their table name; everything else is derived from the
// domain by stripping the www. prefix and TLD suffix.
func SiteName(domain string) string {
	if isNonCommerceDomain(domain) {
		return "Non-Ecommerce Site"
	}
	if rule := ruleForDomain(domain); rule != nil {
		return rule.Name
	}

	name := strings.TrimPrefix(domain, "www.")
	name = tldSuffixPattern.ReplaceAllString(name, "")
	if name == "" {
		return "Unknown Site"
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
