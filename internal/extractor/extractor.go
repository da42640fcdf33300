// Package extractor classifies pages and derives product records from
// their markup. Extraction is a ranked-rule pipeline: site-specific
// selectors first, then structured metadata, then generic heuristics,
// with every candidate failure swallowed so the next one can run.
package extractor

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"owlprice/priceworker/helpers"
	"owlprice/priceworker/internal/currency"
	"owlprice/priceworker/internal/priceparse"
	"owlprice/priceworker/internal/product"
	"owlprice/priceworker/logger"

	"github.com/PuerkitoBio/goquery"
)

const (
	minTitleLength    = 5
	minIndicatorCount = 3
	minImageDimension = 200
)

// Extractor derives product records from parsed pages.
type Extractor struct {
	generic Selectors
	log     *logger.Logger
}

// New creates an extractor with the default site rules and generic selectors.
func New() *Extractor {
	return &Extractor{generic: genericSelectors, log: logger.ForExtractor()}
}

// IsProductPage classifies whether the document looks like a product
// detail page. Any one of the signals is sufficient.
func (e *Extractor) IsProductPage(doc *goquery.Document, pageURL string) bool {
	u, err := url.Parse(pageURL)
	if err != nil {
		return false
	}
	domain := u.Hostname()

	if isNonCommerceDomain(domain) {
		return false
	}

	lowerURL := strings.ToLower(pageURL)
	for _, pattern := range productURLPatterns {
		if strings.Contains(lowerURL, pattern) {
			return true
		}
	}

	if rule := ruleForDomain(domain); rule != nil {
		for _, pattern := range rule.ProductPathPatterns {
			if strings.Contains(lowerURL, pattern) {
				return true
			}
		}
	}

	pageText := strings.ToLower(doc.Find("body").Text())
	indicatorCount := 0
	for _, indicator := range ecommerceIndicators {
		if strings.Contains(pageText, indicator) {
			indicatorCount++
		}
	}
	if indicatorCount >= minIndicatorCount {
		return true
	}

	if doc.Find(`[itemtype*="schema.org/Product"]`).Length() > 0 {
		return true
	}

	if doc.Find(`meta[property="og:type"][content="product"]`).Length() > 0 ||
		doc.Find(`meta[property="product:price:amount"]`).Length() > 0 {
		return true
	}

	return false
}

// Extract produces a product record from the document, or nil when the
// page is not a product page or a required field is missing.
func (e *Extractor) Extract(doc *goquery.Document, pageURL string) *product.Record {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}
	domain := u.Hostname()

	if isNonCommerceDomain(domain) {
		return nil
	}
	if !e.IsProductPage(doc, pageURL) {
		return nil
	}

	rule := ruleForDomain(domain)

	title := e.extractTitle(doc, rule)
	priceText := e.extractPriceText(doc, rule)
	price := priceparse.Amount(priceText)
	cur := currency.Resolve(priceText, domain)
	image := e.extractImage(doc)

	if title == "" || price <= 0 {
		e.log.Debug().Str("site", SiteName(domain)).Str("url", pageURL).
			Str("title", title).Str("price_text", priceText).
			Msg("product page missing required fields")
		return nil
	}

	rec := &product.Record{
		Title:          title,
		Price:          price,
		Currency:       cur.Code,
		CurrencySymbol: cur.Symbol,
		Image:          image,
		URL:            pageURL,
		Site:           SiteName(domain),
		ExtractedAt:    time.Now(),
	}
	rec.Hash = product.ComputeHash(pageURL, title, price)
	e.log.Debug().Str("site", rec.Site).Str("title", rec.Title).
		Float64("price", rec.Price).Msg("extracted product")
	return rec
}

// extractTitle walks the site-specific list, the generic list, the meta
// tags and finally the document title.
func (e *Extractor) extractTitle(doc *goquery.Document, rule *SiteRule) string {
	var selectors []string
	if rule != nil {
		selectors = append(selectors, rule.TitleSelectors...)
	}
	selectors = append(selectors, e.generic.Title...)

	for _, selector := range selectors {
		if title := firstText(doc, selector); len(title) > minTitleLength {
			return title
		}
	}

	for _, selector := range []string{`meta[property="og:title"]`, `meta[name="twitter:title"]`} {
		if title := metaContent(doc, selector); len(title) > minTitleLength {
			return title
		}
	}

	// Fallback: document title split on common separators.
	docTitle := strings.TrimSpace(doc.Find("title").First().Text())
	for _, sep := range []string{"|", "-"} {
		if part, err := helpers.GetSplitPart(docTitle, sep, 0); err == nil {
			docTitle = strings.TrimSpace(part)
		}
	}
	return docTitle
}

// extractPriceText returns the first raw price text that parses to a
// positive amount. Site-specific selectors win over meta tags, which
// win over the generic ranked list.
func (e *Extractor) extractPriceText(doc *goquery.Document, rule *SiteRule) string {
	if rule != nil {
		for _, selector := range rule.PriceSelectors {
			if text := firstParsablePrice(doc, selector); text != "" {
				return text
			}
		}
	}

	for _, selector := range []string{`meta[property="product:price:amount"]`, `meta[property="og:price:amount"]`} {
		if text := metaContent(doc, selector); priceparse.Amount(text) > 0 {
			return text
		}
	}

	for _, selector := range e.generic.Price {
		if text := firstParsablePrice(doc, selector); text != "" {
			return text
		}
	}

	return ""
}

// extractImage prefers Open Graph and Twitter meta images, then the
// ranked image selectors, then the first sufficiently large non-logo img.
func (e *Extractor) extractImage(doc *goquery.Document) string {
	for _, selector := range []string{`meta[property="og:image"]`, `meta[name="twitter:image"]`} {
		if src := metaContent(doc, selector); src != "" {
			return src
		}
	}

	for _, selector := range e.generic.Image {
		sel := doc.Find(selector).First()
		if src, exists := sel.Attr("src"); exists && src != "" {
			return src
		}
	}

	var fallback string
	doc.Find("img").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src, exists := s.Attr("src")
		if !exists || src == "" || strings.Contains(src, "logo") {
			return true
		}
		if attrDimension(s, "width") > minImageDimension && attrDimension(s, "height") > minImageDimension {
			fallback = src
			return false
		}
		return true
	})
	return fallback
}

// firstText returns the trimmed text of the first non-empty match.
func firstText(doc *goquery.Document, selector string) string {
	var result string
	doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			if attr, exists := s.Attr("content"); exists {
				text = strings.TrimSpace(attr)
			}
		}
		if text != "" {
			result = text
			return false
		}
		return true
	})
	return result
}

// metaContent returns the trimmed content attribute of the first match.
func metaContent(doc *goquery.Document, selector string) string {
	content, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(content)
}

// firstParsablePrice returns the text of the first match whose content
// parses to a positive amount.
func firstParsablePrice(doc *goquery.Document, selector string) string {
	var result string
	doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			if attr, exists := s.Attr("content"); exists {
				text = strings.TrimSpace(attr)
			}
		}
		if priceparse.Amount(text) > 0 {
			result = text
			return false
		}
		return true
	})
	return result
}

// attrDimension parses a numeric img dimension attribute, 0 when absent.
func attrDimension(s *goquery.Selection, attr string) int {
	raw, exists := s.Attr(attr)
	if !exists {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(raw), "px"))
	if err != nil {
		return 0
	}
	return n
}
