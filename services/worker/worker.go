// Package worker wires the session pipeline together: navigation
// signals flow through the monitor into extraction, and every accepted
// detection fans out to storage, the message stream, comparisons,
// coupons and analytics.
package worker

import (
	"context"

	"github.com/robfig/cron/v3"

	"owlprice/priceworker/internal/analytics"
	"owlprice/priceworker/internal/extractor"
	"owlprice/priceworker/internal/monitor"
	"owlprice/priceworker/internal/product"
	"owlprice/priceworker/logger"
	"owlprice/priceworker/services/comparison"
	"owlprice/priceworker/services/coupon"
	"owlprice/priceworker/services/publisher"
	"owlprice/priceworker/services/store"
	"owlprice/priceworker/services/user"
)

// maintenanceSpec runs the periodic sweeps.
const maintenanceSpec = "@every 1m"

// Worker owns one watching session and its collaborators.
type Worker struct {
	store     *store.Store
	pub       publisher.Publisher
	analytics *analytics.Client
	coupons   *coupon.Service
	users     *user.Service
	mon       *monitor.Monitor
	cron      *cron.Cron
	log       *logger.Logger
}

// New assembles a worker. The monitor is created by the caller so its
// fetcher and timings stay configurable; the worker installs itself as
// the monitor's sink via Bind.
func New(
	st *store.Store,
	pub publisher.Publisher,
	client *analytics.Client,
	coupons *coupon.Service,
	users *user.Service,
) *Worker {
	return &Worker{
		store:     st,
		pub:       pub,
		analytics: client,
		coupons:   coupons,
		users:     users,
		cron:      cron.New(),
		log:       logger.ForWorker(),
	}
}

// Bind attaches the monitor this worker consumes detections from.
func (w *Worker) Bind(mon *monitor.Monitor) {
	w.mon = mon
}

// Observe forwards a navigation signal to the session monitor.
func (w *Worker) Observe(sig monitor.Signal) {
	w.mon.Observe(sig)
}

// Run starts the maintenance schedule and blocks on the monitor loop
// until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if _, err := w.cron.AddFunc(maintenanceSpec, func() { w.maintain() }); err != nil {
		return err
	}
	w.cron.Start()
	defer w.cron.Stop()

	w.mon.Run(ctx)
	return nil
}

// ProductDetected handles one accepted detection. Failures in any
// branch are logged and do not stop the others.
func (w *Worker) ProductDetected(ctx context.Context, rec *product.Record) {
	if err := w.store.SaveProduct(rec); err != nil {
		w.log.Error().Err(err).Msg("product save failed")
	}
	if err := w.pub.Publish(publisher.KindProductDetected, rec); err != nil {
		w.log.Error().Err(err).Msg("product publish failed")
	}

	userID := w.currentUserID()
	category := coupon.DetectCategory(rec.Title)

	if err := w.analytics.Track(ctx, userID, "Product Viewed", map[string]interface{}{
		"product_id":   extractor.CanonicalID(rec.Domain(), rec.Path()),
		"product_name": rec.Title,
		"price":        rec.Price,
		"currency":     rec.Currency,
		"site":         rec.Site,
		"category":     category,
		"url":          rec.URL,
	}); err != nil {
		w.log.Warn().Err(err).Msg("product view track failed")
	}

	if err := w.users.RecordActivity(rec.Site, category, rec.Title); err != nil {
		w.log.Warn().Err(err).Msg("activity record failed")
	}

	w.runComparisons(ctx, rec, userID)

	if userID != "" {
		w.issueCoupons(ctx, rec, userID)
	}
}

// ProductCleared handles leaving a product context.
func (w *Worker) ProductCleared(_ context.Context, domain string) {
	if err := w.store.ClearProduct(); err != nil {
		w.log.Warn().Err(err).Msg("product clear failed")
	}
	if err := w.pub.Publish(publisher.KindClearProduct, map[string]interface{}{"domain": domain}); err != nil {
		w.log.Error().Err(err).Msg("clear publish failed")
	}
}

// SignIn authenticates the email, announces the session and refreshes
// the user's analytics profile.
func (w *Worker) SignIn(ctx context.Context, email string) (*user.Record, error) {
	rec, err := w.users.SignIn(email)
	if err != nil {
		return nil, err
	}

	if traits, terr := w.users.IdentifyTraits(); terr == nil && traits != nil {
		if ierr := w.analytics.Identify(ctx, rec.ID, traits); ierr != nil {
			w.log.Warn().Err(ierr).Msg("identify failed")
		}
	}
	if err := w.analytics.Track(ctx, rec.ID, "Session Started", map[string]interface{}{
		"session_type": "authenticated",
		"login_method": "email",
	}); err != nil {
		w.log.Warn().Err(err).Msg("session track failed")
	}
	if err := w.pub.Publish(publisher.KindCheckAuthStatus, map[string]interface{}{"userId": rec.ID}); err != nil {
		w.log.Error().Err(err).Msg("auth status publish failed")
	}
	return rec, nil
}

// SignOut ends the session and asks downstream consumers to clear and
// re-detect without user context.
func (w *Worker) SignOut(_ context.Context) error {
	if err := w.users.SignOut(); err != nil {
		return err
	}
	return w.pub.Publish(publisher.KindClearAndRedetect, nil)
}

// RequestAuth asks the host surface to open the sign-in flow.
func (w *Worker) RequestAuth(returnURL string) error {
	return w.pub.Publish(publisher.KindOpenAuth, map[string]interface{}{"returnUrl": returnURL})
}

func (w *Worker) runComparisons(ctx context.Context, rec *product.Record, userID string) {
	productID := extractor.CanonicalID(rec.Domain(), rec.Path())
	if err := w.analytics.Track(ctx, userID, "Price Comparison Started", map[string]interface{}{
		"product_id":    productID,
		"product_name":  rec.Title,
		"current_price": rec.Price,
		"currency":      rec.Currency,
		"current_site":  rec.Site,
	}); err != nil {
		w.log.Warn().Err(err).Msg("comparison start track failed")
	}

	entries := comparison.Generate(rec)
	stats := comparison.Summarize(rec, entries)

	rec.EnsureHash()
	if err := w.store.SaveComparisons(rec.Hash, entries); err != nil {
		w.log.Error().Err(err).Msg("comparison save failed")
	}

	if err := w.analytics.Track(ctx, userID, "Price Comparison Completed", map[string]interface{}{
		"product_id":            productID,
		"product_name":          rec.Title,
		"current_price":         rec.Price,
		"currency":              rec.Currency,
		"lowest_price":          stats.LowestPrice,
		"highest_price":         stats.HighestPrice,
		"average_price":         stats.AveragePrice,
		"sites_compared":        stats.SitesCompared,
		"cheaper_options_found": stats.CheaperOptions,
		"potential_savings":     stats.PotentialSavings,
		"savings_percentage":    stats.SavingsPercentage,
	}); err != nil {
		w.log.Warn().Err(err).Msg("comparison completion track failed")
	}

	if err := w.users.AddSavings(stats.PotentialSavings); err != nil {
		w.log.Warn().Err(err).Msg("savings update failed")
	}
}

func (w *Worker) issueCoupons(ctx context.Context, rec *product.Record, userID string) {
	issued, err := w.coupons.GenerateFor(rec, userID)
	if err != nil {
		w.log.Error().Err(err).Msg("coupon generation failed")
		return
	}
	if len(issued) == 0 {
		return
	}
	if err := w.users.CreditCoupons(len(issued)); err != nil {
		w.log.Warn().Err(err).Msg("coupon credit failed")
	}
	if err := w.analytics.Track(ctx, userID, "Coupons Generated", map[string]interface{}{
		"site":         rec.Site,
		"coupon_count": len(issued),
		"category":     issued[0].Category,
	}); err != nil {
		w.log.Warn().Err(err).Msg("coupon track failed")
	}
}

// maintain runs the periodic sweeps: stream trimming, dedup expiry and
// the current user's coupon expiry.
func (w *Worker) maintain() {
	if err := w.pub.TrimStreams(); err != nil {
		w.log.Error().Err(err).Msg("stream trim failed")
	}
	w.analytics.Deduper().Sweep()
	if userID := w.currentUserID(); userID != "" {
		if err := w.coupons.SweepExpired(userID); err != nil {
			w.log.Warn().Err(err).Msg("coupon sweep failed")
		}
	}
}

func (w *Worker) currentUserID() string {
	rec, ok, err := w.users.Current()
	if err != nil || !ok {
		return ""
	}
	return rec.ID
}
