// Package comparison produces simulated cross-retailer price
// comparisons with real search URLs. No retailer API is called; prices
// vary inside per-site bands that mimic each retailer's typical
// positioning.
package comparison

import (
	"math"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"math/rand"

	"owlprice/priceworker/internal/product"
)

// Entry is one retailer's offer for the product being compared.
type Entry struct {
	Site        string  `json:"site"`
	Price       float64 `json:"price"`
	Difference  float64 `json:"difference"`
	PercentDiff int     `json:"percentDiff"`
	URL         string  `json:"url"`
	Available   bool    `json:"available"`
}

// Stats summarizes one comparison run for analytics.
type Stats struct {
	LowestPrice       float64 `json:"lowestPrice"`
	HighestPrice      float64 `json:"highestPrice"`
	AveragePrice      float64 `json:"averagePrice"`
	SitesCompared     int     `json:"sitesCompared"`
	CheaperOptions    int     `json:"cheaperOptions"`
	PotentialSavings  float64 `json:"potentialSavings"`
	SavingsPercentage float64 `json:"savingsPercentage"`
}

// siteProfile describes one retailer: how to search it, its typical
// price band relative to the source price (percent), how often it has
// the item, and whether it only makes sense for electronics.
type siteProfile struct {
	name            string
	searchURL       func(query string) string
	varyMin         float64
	varyMax         float64
	availability    float64
	electronicsOnly bool
}

var siteProfiles = []siteProfile{
	{
		name:         "Amazon",
		searchURL:    func(q string) string { return "https://www.amazon.com/s?k=" + url.QueryEscape(q) },
		varyMin:      -5,
		varyMax:      5,
		availability: 0.95,
	},
	{
		name:         "eBay",
		searchURL:    func(q string) string { return "https://www.ebay.com/sch/i.html?_nkw=" + url.QueryEscape(q) },
		varyMin:      -15,
		varyMax:      10,
		availability: 0.9,
	},
	{
		name:         "Walmart",
		searchURL:    func(q string) string { return "https://www.walmart.com/search?q=" + url.QueryEscape(q) },
		varyMin:      -3,
		varyMax:      8,
		availability: 0.85,
	},
	{
		name:         "Target",
		searchURL:    func(q string) string { return "https://www.target.com/s?searchTerm=" + url.QueryEscape(q) },
		varyMin:      -2,
		varyMax:      10,
		availability: 0.8,
	},
	{
		name: "Best Buy",
		searchURL: func(q string) string {
			return "https://www.bestbuy.com/site/searchpage.jsp?st=" + url.QueryEscape(q)
		},
		varyMin:         0,
		varyMax:         15,
		availability:    0.75,
		electronicsOnly: true,
	},
	{
		name:            "Newegg",
		searchURL:       func(q string) string { return "https://www.newegg.com/p/pl?d=" + url.QueryEscape(q) },
		varyMin:         -10,
		varyMax:         5,
		availability:    0.8,
		electronicsOnly: true,
	},
}

var electronicsKeywords = []string{
	"laptop", "computer", "monitor", "keyboard", "mouse", "phone", "tablet",
	"camera", "tv", "television", "headphone", "speaker", "gaming", "console",
}

var commonWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "this": true,
	"that": true, "from": true, "your": true, "our": true,
	"new": true, "all": true, "one": true, "two": true, "three": true,
	"best": true, "top": true, "great": true, "good": true,
	"men": true, "mens": true, "women": true, "womens": true,
	"kids": true, "adult": true, "size": true,
}

var (
	parenPattern   = regexp.MustCompile(`\([^)]*\)`)
	bracketPattern = regexp.MustCompile(`\[[^\]]*\]`)
	specialPattern = regexp.MustCompile(`[^\w\s-]`)
	spacePattern   = regexp.MustCompile(`\s+`)
)

// Generate builds 4 to 6 comparison entries for the record, sorted by
// price ascending. The record's own retailer is excluded, and
// electronics-only retailers appear only for electronics titles.
func Generate(rec *product.Record) []Entry {
	query := CleanTitle(rec.Title)
	electronics := IsElectronics(rec.Title)
	currentSite := strings.ToLower(rec.Site)

	var available []siteProfile
	for _, p := range siteProfiles {
		if p.electronicsOnly && !electronics {
			continue
		}
		if strings.Contains(strings.ToLower(p.name), currentSite) {
			continue
		}
		available = append(available, p)
	}

	rand.Shuffle(len(available), func(i, j int) {
		available[i], available[j] = available[j], available[i]
	})
	want := 4 + rand.Intn(3)
	if want > len(available) {
		want = len(available)
	}

	entries := make([]Entry, 0, want)
	for _, p := range available[:want] {
		variation := (rand.Float64()*(p.varyMax-p.varyMin) + p.varyMin) / 100
		price := math.Round(rec.Price * (1 + variation))
		diff := price - rec.Price
		entries = append(entries, Entry{
			Site:        p.name,
			Price:       price,
			Difference:  diff,
			PercentDiff: int(math.Round(diff / rec.Price * 100)),
			URL:         p.searchURL(query),
			Available:   rand.Float64() < p.availability,
		})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Price < entries[j].Price })
	return entries
}

// Summarize computes the analytics stats for one comparison run.
func Summarize(rec *product.Record, entries []Entry) Stats {
	lowest := rec.Price
	highest := rec.Price
	sum := rec.Price
	cheaper := 0
	for _, e := range entries {
		if e.Price < lowest {
			lowest = e.Price
		}
		if e.Price > highest {
			highest = e.Price
		}
		if e.Price < rec.Price {
			cheaper++
		}
		sum += e.Price
	}

	savings := rec.Price - lowest
	pct := 0.0
	if rec.Price > 0 {
		pct = math.Round(savings/rec.Price*100*10) / 10
	}
	return Stats{
		LowestPrice:       lowest,
		HighestPrice:      highest,
		AveragePrice:      math.Round(sum / float64(len(entries)+1)),
		SitesCompared:     len(entries),
		CheaperOptions:    cheaper,
		PotentialSavings:  savings,
		SavingsPercentage: pct,
	}
}

// CleanTitle reduces a product title to up to six search keywords.
// Parenthesized qualifiers, punctuation and filler words are dropped.
func CleanTitle(title string) string {
	cleaned := parenPattern.ReplaceAllString(title, "")
	cleaned = bracketPattern.ReplaceAllString(cleaned, "")
	cleaned = specialPattern.ReplaceAllString(cleaned, " ")
	cleaned = spacePattern.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)

	var keywords []string
	for _, word := range strings.Fields(cleaned) {
		if len(word) > 2 && !commonWords[strings.ToLower(word)] {
			keywords = append(keywords, word)
		}
		if len(keywords) == 6 {
			break
		}
	}
	return strings.Join(keywords, " ")
}

// IsElectronics reports whether the title looks like an electronics
// product.
func IsElectronics(title string) bool {
	lower := strings.ToLower(title)
	for _, kw := range electronicsKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
