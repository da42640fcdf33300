// Package detector decides whether a freshly extracted product record is
// genuinely new or a redundant re-detection of the last accepted one.
package detector

import (
	"math"
	"net/url"

	"owlprice/priceworker/internal/product"
)

// priceTolerance is the absolute price delta below which two detections
// of the same listing are considered identical.
const priceTolerance = 1.0

// Decision is the outcome of comparing a candidate against the last
// accepted record.
type Decision int

const (
	// DecisionNew means the candidate replaces the last accepted record
	// and downstream side effects should run.
	DecisionNew Decision = iota
	// DecisionDuplicate means the caller should suppress storage writes
	// and external notifications.
	DecisionDuplicate
)

// IDFunc derives a canonical product identifier from (domain, path).
// It returns "" when none can be derived.
type IDFunc func(domain, path string) string

// Detector owns the last accepted record for a single page context.
// It is not safe for concurrent use; the navigation monitor drives it
// from a single goroutine.
type Detector struct {
	idFunc   IDFunc
	last     *product.Record
	lastHash string
}

// New creates a detector. idFunc may be nil, in which case canonical
// identifiers never participate in the decision.
func New(idFunc IDFunc) *Detector {
	return &Detector{idFunc: idFunc}
}

// Last returns the last accepted record, or nil.
func (d *Detector) Last() *product.Record {
	return d.last
}

// HasRecord reports whether a record is currently held.
func (d *Detector) HasRecord() bool {
	return d.last != nil
}

// Clear drops the last accepted record. Callers must invoke this on any
// domain or URL change that is not accompanied by a successful
// extraction, so later decisions are never made against stale
// cross-domain state.
func (d *Detector) Clear() {
	d.last = nil
	d.lastHash = ""
}

// Decide compares the candidate against the last accepted record and,
// when the candidate is new, accepts it as the new last record.
func (d *Detector) Decide(candidate *product.Record) Decision {
	if !candidate.Valid() {
		return DecisionDuplicate
	}
	candidate.EnsureHash()

	if d.last == nil {
		d.accept(candidate)
		return DecisionNew
	}

	candPath, candDomain := pathAndDomain(candidate.URL)
	lastPath, lastDomain := pathAndDomain(d.last.URL)

	if candDomain != lastDomain {
		d.accept(candidate)
		return DecisionNew
	}

	if d.idFunc != nil {
		candID := d.idFunc(candDomain, candPath)
		lastID := d.idFunc(lastDomain, lastPath)
		if candID != "" && lastID != "" && candID != lastID {
			d.accept(candidate)
			return DecisionNew
		}
	}

	titleChanged := candidate.Title != d.last.Title
	priceChanged := math.Abs(candidate.Price-d.last.Price) > priceTolerance
	pathChanged := candPath != lastPath

	if titleChanged || priceChanged || pathChanged {
		d.accept(candidate)
		return DecisionNew
	}

	return DecisionDuplicate
}

func (d *Detector) accept(candidate *product.Record) {
	d.last = candidate
	d.lastHash = candidate.Hash
}

func pathAndDomain(rawURL string) (string, string) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", ""
	}
	return u.Path, u.Hostname()
}
