// Package monitor drives extraction for one page session. Navigation
// signals are coalesced through a debounce window and at most one
// extraction pass runs at a time.
package monitor

import (
	"context"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"

	"owlprice/priceworker/internal/detector"
	"owlprice/priceworker/internal/extractor"
	"owlprice/priceworker/internal/product"
	"owlprice/priceworker/logger"
)

// SignalKind identifies the navigation event that triggered a pass.
type SignalKind int

const (
	MutationObserved SignalKind = iota
	HistoryPushed
	HistoryReplaced
	PopState
	FocusGained
	VisibilityShown
)

func (k SignalKind) String() string {
	switch k {
	case MutationObserved:
		return "mutation_observed"
	case HistoryPushed:
		return "history_pushed"
	case HistoryReplaced:
		return "history_replaced"
	case PopState:
		return "pop_state"
	case FocusGained:
		return "focus_gained"
	case VisibilityShown:
		return "visibility_shown"
	default:
		return "unknown"
	}
}

// Signal is one navigation event. URL may be empty for signals that do
// not change the page, such as DOM mutations.
type Signal struct {
	Kind SignalKind
	URL  string
}

// Fetcher loads a page for extraction.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (*goquery.Document, error)
}

// Sink receives the monitor's outcomes.
type Sink interface {
	ProductDetected(ctx context.Context, rec *product.Record)
	ProductCleared(ctx context.Context, domain string)
}

// Monitor owns one session: current URL, the detector and whether the
// last fetched page classified as a product page. All state is touched
// only from the Run goroutine.
type Monitor struct {
	fetcher  Fetcher
	ext      *extractor.Extractor
	det      *detector.Detector
	sink     Sink
	debounce time.Duration
	pollInt  time.Duration
	log      *logger.Logger

	signals chan Signal

	currentURL    string
	onProductPage bool
}

// New creates a monitor. debounce and pollInterval come from config.
func New(fetcher Fetcher, ext *extractor.Extractor, det *detector.Detector, sink Sink, debounce, pollInterval time.Duration) *Monitor {
	return &Monitor{
		fetcher:  fetcher,
		ext:      ext,
		det:      det,
		sink:     sink,
		debounce: debounce,
		pollInt:  pollInterval,
		log:      logger.ForMonitor(),
		signals:  make(chan Signal, 64),
	}
}

// Observe enqueues a navigation signal. It never blocks; when the
// queue is full the signal is dropped, since a later pass over the
// same page sees the same content anyway.
func (m *Monitor) Observe(sig Signal) {
	select {
	case m.signals <- sig:
	default:
		m.log.Warn().Str("kind", sig.Kind.String()).Msg("signal queue full, dropping")
	}
}

// Run processes signals until ctx is cancelled. Each signal arms (or
// re-arms) the debounce timer; the pass runs only once the window
// elapses with no further signals. The poll ticker re-attempts
// extraction when the page looks like a product page but no record has
// been accepted yet.
func (m *Monitor) Run(ctx context.Context) {
	poll := time.NewTicker(m.pollInt)
	defer poll.Stop()

	var pending *time.Timer
	var pendingC <-chan time.Time
	defer func() {
		if pending != nil {
			pending.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-m.signals:
			m.applySignal(ctx, sig)
			if pending == nil {
				pending = time.NewTimer(m.debounce)
				pendingC = pending.C
			} else {
				if !pending.Stop() {
					select {
					case <-pending.C:
					default:
					}
				}
				pending.Reset(m.debounce)
			}
		case <-pendingC:
			pendingC = nil
			pending = nil
			m.pass(ctx)
		case <-poll.C:
			if m.onProductPage && !m.det.HasRecord() {
				m.pass(ctx)
			}
		}
	}
}

func (m *Monitor) applySignal(ctx context.Context, sig Signal) {
	if sig.URL == "" || sig.URL == m.currentURL {
		return
	}
	newDomain := hostOf(sig.URL)
	oldDomain := hostOf(m.currentURL)
	switch {
	case m.currentURL != "" && newDomain != oldDomain:
		m.det.Clear()
		m.onProductPage = false
		m.sink.ProductCleared(ctx, newDomain)
		m.log.Info().Str("from", oldDomain).Str("to", newDomain).Msg("domain changed, cleared session")
	case m.currentURL != "" && pathOf(sig.URL) != pathOf(m.currentURL):
		// A same-domain path change invalidates the held record even
		// when the next extraction fails or yields nothing. Query-only
		// changes keep it, matching the detector's path comparison.
		if m.det.HasRecord() {
			m.det.Clear()
			m.sink.ProductCleared(ctx, newDomain)
			m.log.Info().Str("url", sig.URL).Msg("url changed, cleared held product")
		}
	}
	m.currentURL = sig.URL
}

func (m *Monitor) pass(ctx context.Context) {
	if m.currentURL == "" {
		return
	}
	doc, err := m.fetcher.Fetch(ctx, m.currentURL)
	if err != nil {
		m.log.Warn().Err(err).Str("url", m.currentURL).Msg("fetch failed")
		return
	}

	m.onProductPage = m.ext.IsProductPage(doc, m.currentURL)
	if !m.onProductPage {
		// Navigated to a non-product page without a new detection.
		if m.det.HasRecord() {
			m.det.Clear()
		}
		return
	}

	rec := m.ext.Extract(doc, m.currentURL)
	if rec == nil {
		// Product page with incomplete fields; the poll ticker retries.
		return
	}
	if m.det.Decide(rec) == detector.DecisionNew {
		m.log.Info().Str("title", rec.Title).Float64("price", rec.Price).Msg("product detected")
		m.sink.ProductDetected(ctx, rec)
	}
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func pathOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Path
}
