// Package user keeps the local user account. Records are stored as
// plain JSON; there is no server-side account and no credential check
// beyond the email lookup.
package user

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"owlprice/priceworker/logger"
	werrors "owlprice/priceworker/pkg/errors"
	"owlprice/priceworker/services/coupon"
	"owlprice/priceworker/services/store"
)

const (
	keyCurrentUser = "user:record"
	keyRegistered  = "users:registered"
	keyActivity    = "user:activity"

	maxActivityEntries = 100
	recentWindow       = 30 * 24 * time.Hour
)

// Record is one user account.
type Record struct {
	ID              string    `json:"id"`
	FirstName       string    `json:"firstName"`
	Email           string    `json:"email"`
	CreatedAt       time.Time `json:"createdAt"`
	LastLogin       time.Time `json:"lastLogin"`
	MarketingEmails bool      `json:"marketingEmails"`
	TotalSavings    float64   `json:"totalSavings"`
	CouponsEarned   int       `json:"couponsEarned"`
	LoginCount      int       `json:"loginCount"`
	SessionCount    int       `json:"sessionCount"`
}

// Activity is one product view, kept for coupon personalization.
type Activity struct {
	Site        string    `json:"site"`
	Category    string    `json:"category"`
	ProductName string    `json:"productName"`
	Timestamp   time.Time `json:"timestamp"`
}

// Service manages accounts, sessions and the activity log.
type Service struct {
	store   *store.Store
	coupons *coupon.Service
	log     *logger.Logger
	now     func() time.Time
}

func New(st *store.Store, coupons *coupon.Service) *Service {
	return &Service{
		store:   st,
		coupons: coupons,
		log:     logger.ForUser(),
		now:     time.Now,
	}
}

// Register creates an account and signs it in.
func (s *Service) Register(firstName, email string, marketingEmails bool) (*Record, error) {
	if firstName == "" || !strings.Contains(email, "@") {
		return nil, werrors.NewValidation("user", "first name and a valid email are required")
	}

	registered, err := s.registered()
	if err != nil {
		return nil, err
	}
	for _, r := range registered {
		if strings.EqualFold(r.Email, email) {
			return nil, werrors.NewValidation("user", "an account with this email already exists")
		}
	}

	now := s.now()
	rec := Record{
		ID:              uuid.NewString(),
		FirstName:       firstName,
		Email:           email,
		CreatedAt:       now,
		LastLogin:       now,
		MarketingEmails: marketingEmails,
		LoginCount:      1,
		SessionCount:    1,
	}
	registered = append(registered, rec)
	if err := s.store.SetJSON(keyRegistered, registered, 0); err != nil {
		return nil, err
	}
	if err := s.setCurrent(rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// SignIn looks the email up among registered accounts and makes it the
// current user.
func (s *Service) SignIn(email string) (*Record, error) {
	registered, err := s.registered()
	if err != nil {
		return nil, err
	}

	idx := -1
	for i, r := range registered {
		if strings.EqualFold(r.Email, email) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, werrors.NewValidation("user", "no account found for this email")
	}

	rec := registered[idx]
	rec.LastLogin = s.now()
	rec.LoginCount++
	rec.SessionCount++
	registered[idx] = rec

	if err := s.store.SetJSON(keyRegistered, registered, 0); err != nil {
		return nil, err
	}
	if err := s.setCurrent(rec); err != nil {
		return nil, err
	}
	s.log.Info().Str("user", rec.ID).Msg("user signed in")
	return &rec, nil
}

// SignOut drops the current user but keeps the registered account.
func (s *Service) SignOut() error {
	if err := s.store.Delete(keyCurrentUser); err != nil {
		return err
	}
	return s.store.SaveLoginState(store.LoginState{})
}

// Current returns the signed-in user, if any.
func (s *Service) Current() (*Record, bool, error) {
	var rec Record
	ok, err := s.store.GetJSON(keyCurrentUser, &rec)
	if err != nil || !ok {
		return nil, false, err
	}
	return &rec, true, nil
}

// RecordActivity appends one product view to the capped activity log.
func (s *Service) RecordActivity(site, category, productName string) error {
	var activity []Activity
	if _, err := s.store.GetJSON(keyActivity, &activity); err != nil {
		return err
	}
	activity = append(activity, Activity{
		Site:        site,
		Category:    category,
		ProductName: productName,
		Timestamp:   s.now(),
	})
	if len(activity) > maxActivityEntries {
		activity = activity[len(activity)-maxActivityEntries:]
	}
	return s.store.SetJSON(keyActivity, activity, 0)
}

// AddSavings credits comparison savings to the current user.
func (s *Service) AddSavings(amount float64) error {
	rec, ok, err := s.Current()
	if err != nil || !ok {
		return err
	}
	if amount > 0 {
		rec.TotalSavings += amount
	}
	return s.updateCurrent(*rec)
}

// CreditCoupons bumps the earned-coupon counter.
func (s *Service) CreditCoupons(count int) error {
	rec, ok, err := s.Current()
	if err != nil || !ok {
		return err
	}
	rec.CouponsEarned += count
	return s.updateCurrent(*rec)
}

// IdentifyTraits computes the analytics traits for the current user:
// profile fields plus coupon and activity stats.
func (s *Service) IdentifyTraits() (map[string]interface{}, error) {
	rec, ok, err := s.Current()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	active := 0
	used := 0
	if all, err := s.coupons.All(rec.ID); err == nil {
		now := s.now()
		for _, c := range all {
			switch {
			case c.Used:
				used++
			case c.Active(now):
				active++
			}
		}
	}

	var activity []Activity
	_, _ = s.store.GetJSON(keyActivity, &activity)
	cutoff := s.now().Add(-recentWindow)
	var recentSites []string
	seen := map[string]bool{}
	recentCount := 0
	for _, a := range activity {
		if a.Timestamp.Before(cutoff) {
			continue
		}
		recentCount++
		if a.Site != "" && !seen[a.Site] {
			seen[a.Site] = true
			recentSites = append(recentSites, a.Site)
		}
	}
	favorites := recentSites
	if len(favorites) > 3 {
		favorites = favorites[:3]
	}
	daysActive := recentCount
	if daysActive > 30 {
		daysActive = 30
	}

	return map[string]interface{}{
		"firstName":            rec.FirstName,
		"email":                rec.Email,
		"signup_date":          rec.CreatedAt.Format(time.RFC3339),
		"last_active":          s.now().Format(time.RFC3339),
		"total_sessions":       rec.SessionCount,
		"total_savings":        rec.TotalSavings,
		"total_coupons":        rec.CouponsEarned,
		"total_logins":         rec.LoginCount,
		"marketing_emails":     rec.MarketingEmails,
		"account_status":       "active",
		"user_type":            "returning",
		"active_coupons":       active,
		"used_coupons":         used,
		"recent_sites_visited": len(recentSites),
		"days_active_last_30":  daysActive,
		"favorite_sites":       favorites,
	}, nil
}

func (s *Service) registered() ([]Record, error) {
	var registered []Record
	if _, err := s.store.GetJSON(keyRegistered, &registered); err != nil {
		return nil, err
	}
	return registered, nil
}

func (s *Service) setCurrent(rec Record) error {
	if err := s.store.SetJSON(keyCurrentUser, rec, 0); err != nil {
		return err
	}
	return s.store.SaveLoginState(store.LoginState{LoggedIn: true, UserID: rec.ID})
}

func (s *Service) updateCurrent(rec Record) error {
	registered, err := s.registered()
	if err != nil {
		return err
	}
	for i := range registered {
		if registered[i].ID == rec.ID {
			registered[i] = rec
			break
		}
	}
	if err := s.store.SetJSON(keyRegistered, registered, 0); err != nil {
		return err
	}
	return s.store.SetJSON(keyCurrentUser, rec, 0)
}
