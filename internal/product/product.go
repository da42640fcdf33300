package product

import (
	"encoding/base64"
	"net/url"
	"strconv"
	"time"
)

// Record represents a product extracted from a page.
type Record struct {
	Title          string    `json:"title"`
	Price          float64   `json:"price"`
	Currency       string    `json:"currency"`
	CurrencySymbol string    `json:"currency_symbol"`
	Image          string    `json:"image,omitempty"`
	URL            string    `json:"url"`
	Site           string    `json:"site"`
	ExtractedAt    time.Time `json:"extracted_at"`
	Hash           string    `json:"hash"`
}

// Valid reports whether the record has the required fields.
// A record without a title or with a non-positive price is discarded.
func (r *Record) Valid() bool {
	return r != nil && r.Title != "" && r.Price > 0
}

// Path returns the URL path of the record, or "" if the URL is unparseable.
func (r *Record) Path() string {
	u, err := url.Parse(r.URL)
	if err != nil {
		return ""
	}
	return u.Path
}

// Domain returns the hostname of the record, or "" if the URL is unparseable.
func (r *Record) Domain() string {
	u, err := url.Parse(r.URL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// ComputeHash derives the content hash from (urlPath, title, price).
// The hash is a cheap identity proxy for a product listing and must be
// deterministic for identical inputs. The 16-char truncation keeps only
// the first 12 input bytes, so long paths dominate the hash.
func ComputeHash(pageURL, title string, price float64) string {
	if pageURL == "" || title == "" || price == 0 {
		return "fallback_" + strconv.FormatInt(time.Now().UnixMilli(), 10)
	}

	u, err := url.Parse(pageURL)
	if err != nil {
		return "fallback_" + strconv.FormatInt(time.Now().UnixMilli(), 10)
	}

	raw := u.Path + title + strconv.FormatFloat(price, 'f', -1, 64)
	encoded := base64.StdEncoding.EncodeToString([]byte(raw))
	if len(encoded) > 16 {
		encoded = encoded[:16]
	}
	return encoded
}

// EnsureHash fills in the content hash if the extraction left it empty.
func (r *Record) EnsureHash() {
	if r.Hash == "" {
		r.Hash = ComputeHash(r.URL, r.Title, r.Price)
	}
}
