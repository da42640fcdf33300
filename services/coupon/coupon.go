// Package coupon hands signed-in users simulated retailer coupons.
// Each site has a template table; everything else falls back to a
// generic set. A user holds at most two live coupons per site.
package coupon

import (
	"strings"
	"time"

	"math/rand"

	"github.com/google/uuid"

	"owlprice/priceworker/internal/product"
	"owlprice/priceworker/logger"
	"owlprice/priceworker/services/store"
)

const (
	validity         = 14 * 24 * time.Hour
	maxActivePerSite = 2
	storeKeyPrefix   = "coupons:"
)

// Coupon is one earned coupon.
type Coupon struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	Discount    string    `json:"discount"`
	Site        string    `json:"site"`
	Category    string    `json:"category"`
	MinPurchase float64   `json:"minPurchase"`
	ExpiresAt   time.Time `json:"expiresAt"`
	CreatedAt   time.Time `json:"createdAt"`
	Used        bool      `json:"used"`
	UserID      string    `json:"userId"`
}

// Active reports whether the coupon is still usable.
func (c Coupon) Active(now time.Time) bool {
	return !c.Used && c.ExpiresAt.After(now)
}

type template struct {
	code        string
	discount    string
	minPurchase float64
}

var siteTemplates = map[string][]template{
	"Nike": {
		{code: "NIKE10", discount: "10% off", minPurchase: 100},
		{code: "FREERUN", discount: "Free shipping", minPurchase: 50},
		{code: "ATHLETE15", discount: "15% off athletic wear", minPurchase: 150},
	},
	"Amazon": {
		{code: "PRIME5", discount: "5% off", minPurchase: 25},
		{code: "BULK10", discount: "10% off orders over $50", minPurchase: 50},
		{code: "NEWUSER", discount: "15% off first order", minPurchase: 30},
	},
	"Target": {
		{code: "TARGET10", discount: "10% off", minPurchase: 50},
		{code: "REDCARD", discount: "5% additional discount", minPurchase: 0},
		{code: "CIRCLE15", discount: "15% off select items", minPurchase: 100},
	},
	"Walmart": {
		{code: "SAVE5", discount: "5% off", minPurchase: 35},
		{code: "PICKUP10", discount: "10% off pickup orders", minPurchase: 50},
		{code: "GROCERY", discount: "$10 off groceries", minPurchase: 100},
	},
}

var genericTemplates = []template{
	{code: "SAVE10", discount: "10% off", minPurchase: 50},
	{code: "WELCOME15", discount: "15% off first order", minPurchase: 75},
	{code: "FREESHIP", discount: "Free shipping", minPurchase: 25},
}

var categoryKeywords = map[string][]string{
	"Electronics": {"phone", "laptop", "tablet", "camera", "headphone", "speaker", "computer", "monitor"},
	"Fashion":     {"shirt", "dress", "shoe", "watch", "bag", "jacket", "pants", "jeans"},
	"Sports":      {"nike", "adidas", "running", "training", "gym", "fitness", "athletic", "sport"},
	"Home":        {"furniture", "decor", "kitchen", "bedding", "lamp", "sofa", "table", "chair"},
	"Books":       {"book", "novel", "guide", "manual", "ebook", "textbook"},
	"Beauty":      {"makeup", "cosmetic", "skincare", "perfume", "beauty", "cream"},
}

// categoryOrder keeps detection deterministic across runs.
var categoryOrder = []string{"Electronics", "Fashion", "Sports", "Home", "Books", "Beauty"}

// DetectCategory classifies a product title.
func DetectCategory(title string) string {
	lower := strings.ToLower(title)
	for _, category := range categoryOrder {
		for _, kw := range categoryKeywords[category] {
			if strings.Contains(lower, kw) {
				return category
			}
		}
	}
	return "Other"
}

// Service manages the per-user coupon list.
type Service struct {
	store *store.Store
	log   *logger.Logger
	now   func() time.Time
}

func New(st *store.Store) *Service {
	return &Service{
		store: st,
		log:   logger.ForCoupon(),
		now:   time.Now,
	}
}

// GenerateFor issues a coupon for the product's site when the user has
// fewer than two live coupons there. It returns the newly issued
// coupons, which is empty when the per-site cap is already met.
func (s *Service) GenerateFor(rec *product.Record, userID string) ([]Coupon, error) {
	all, err := s.All(userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	active := 0
	for _, c := range all {
		if strings.EqualFold(c.Site, rec.Site) && c.Active(now) {
			active++
		}
	}
	if active >= maxActivePerSite {
		return nil, nil
	}

	templates, ok := siteTemplates[rec.Site]
	if !ok {
		templates = genericTemplates
	}
	tpl := templates[rand.Intn(len(templates))]

	issued := Coupon{
		ID:          "coupon_" + uuid.NewString(),
		Code:        tpl.code,
		Discount:    tpl.discount,
		Site:        rec.Site,
		Category:    DetectCategory(rec.Title),
		MinPurchase: tpl.minPurchase,
		ExpiresAt:   now.Add(validity),
		CreatedAt:   now,
		UserID:      userID,
	}

	all = append(all, issued)
	if err := s.store.SetJSON(storeKeyPrefix+userID, all, 0); err != nil {
		return nil, err
	}
	return []Coupon{issued}, nil
}

// All returns every coupon the user has, live or not.
func (s *Service) All(userID string) ([]Coupon, error) {
	var all []Coupon
	if _, err := s.store.GetJSON(storeKeyPrefix+userID, &all); err != nil {
		return nil, err
	}
	return all, nil
}

// ActiveFor returns the user's live coupons for one site.
func (s *Service) ActiveFor(userID, site string) ([]Coupon, error) {
	all, err := s.All(userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	var active []Coupon
	for _, c := range all {
		if strings.EqualFold(c.Site, site) && c.Active(now) {
			active = append(active, c)
		}
	}
	return active, nil
}

// SweepExpired drops expired unused coupons from the user's list.
// Used coupons are kept for the stats they feed.
func (s *Service) SweepExpired(userID string) error {
	all, err := s.All(userID)
	if err != nil {
		return err
	}

	now := s.now()
	kept := all[:0]
	for _, c := range all {
		if c.Used || c.ExpiresAt.After(now) {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(all) {
		return nil
	}
	s.log.Info().Int("dropped", len(all)-len(kept)).Str("user", userID).Msg("expired coupons swept")
	return s.store.SetJSON(storeKeyPrefix+userID, kept, 0)
}

// MarkUsed flags one coupon as redeemed.
func (s *Service) MarkUsed(userID, couponID string) error {
	all, err := s.All(userID)
	if err != nil {
		return err
	}
	for i := range all {
		if all[i].ID == couponID {
			all[i].Used = true
			return s.store.SetJSON(storeKeyPrefix+userID, all, 0)
		}
	}
	return nil
}
