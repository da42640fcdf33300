// Package store persists session and user state as JSON blobs. Writes
// are read-modify-write with last-writer-wins; nothing here locks
// across processes.
package store

import (
	"encoding/json"
	"errors"
	"time"

	"owlprice/priceworker/internal/analytics"
	"owlprice/priceworker/internal/product"
	"owlprice/priceworker/logger"
	werrors "owlprice/priceworker/pkg/errors"
)

const (
	keyCurrentProduct = "product:current"
	keySettings       = "settings"
	keyEventLog       = "events:log"
	keyLoginState     = "login:state"

	comparisonTTL = time.Hour

	// maxEventLogEntries bounds the local analytics log.
	maxEventLogEntries = 100
)

// Settings are the user-controlled feature flags.
type Settings struct {
	AnalyticsEnabled bool `json:"analyticsEnabled"`
	TrackPrices      bool `json:"trackPrices"`
	Notifications    bool `json:"notifications"`
}

// DefaultSettings has everything switched on.
func DefaultSettings() Settings {
	return Settings{AnalyticsEnabled: true, TrackPrices: true, Notifications: true}
}

// LoginState records whether a user is signed in and as whom.
type LoginState struct {
	LoggedIn bool   `json:"loggedIn"`
	UserID   string `json:"userId,omitempty"`
}

// Store wraps a Blob with JSON codecs and the domain key schema.
type Store struct {
	blob Blob
	log  *logger.Logger
}

func New(blob Blob) *Store {
	return &Store{
		blob: blob,
		log:  logger.ForStore(),
	}
}

// GetJSON unmarshals the value at key into out. The bool reports
// whether the key existed.
func (s *Store) GetJSON(key string, out interface{}) (bool, error) {
	data, err := s.blob.Get(key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, werrors.NewStorage("store", "get "+key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, werrors.NewStorage("store", "decode "+key, err)
	}
	return true, nil
}

// SetJSON marshals v and stores it at key.
func (s *Store) SetJSON(key string, v interface{}, expiration time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return werrors.NewStorage("store", "encode "+key, err)
	}
	if err := s.blob.Set(key, data, expiration); err != nil {
		return werrors.NewStorage("store", "set "+key, err)
	}
	return nil
}

// Delete removes key.
func (s *Store) Delete(key string) error {
	if err := s.blob.Delete(key); err != nil {
		return werrors.NewStorage("store", "delete "+key, err)
	}
	return nil
}

// SaveProduct stores the current product record.
func (s *Store) SaveProduct(rec *product.Record) error {
	return s.SetJSON(keyCurrentProduct, rec, 0)
}

// CurrentProduct returns the stored product record, if any.
func (s *Store) CurrentProduct() (*product.Record, bool, error) {
	var rec product.Record
	ok, err := s.GetJSON(keyCurrentProduct, &rec)
	if err != nil || !ok {
		return nil, false, err
	}
	return &rec, true, nil
}

// ClearProduct drops the current product record.
func (s *Store) ClearProduct() error {
	return s.Delete(keyCurrentProduct)
}

// Settings returns the stored flags, or the defaults when none exist.
func (s *Store) Settings() (Settings, error) {
	var got Settings
	ok, err := s.GetJSON(keySettings, &got)
	if err != nil {
		return DefaultSettings(), err
	}
	if !ok {
		return DefaultSettings(), nil
	}
	return got, nil
}

// SaveSettings replaces the stored flags.
func (s *Store) SaveSettings(settings Settings) error {
	return s.SetJSON(keySettings, settings, 0)
}

// AnalyticsEnabled reads the flag the analytics client honors. Storage
// errors fall back to enabled so a flaky cache never silences events.
func (s *Store) AnalyticsEnabled() bool {
	settings, err := s.Settings()
	if err != nil {
		s.log.Warn().Err(err).Msg("settings unavailable")
		return true
	}
	return settings.AnalyticsEnabled
}

// AppendEvent adds one entry to the local analytics log, keeping only
// the most recent entries.
func (s *Store) AppendEvent(entry analytics.LogEntry) error {
	var entries []analytics.LogEntry
	if _, err := s.GetJSON(keyEventLog, &entries); err != nil {
		return err
	}
	entries = append(entries, entry)
	if len(entries) > maxEventLogEntries {
		entries = entries[len(entries)-maxEventLogEntries:]
	}
	return s.SetJSON(keyEventLog, entries, 0)
}

// Append adapts AppendEvent to the analytics log sink. A failed local
// append must not fail the send, so errors are only logged.
func (s *Store) Append(entry analytics.LogEntry) {
	if err := s.AppendEvent(entry); err != nil {
		s.log.Warn().Err(err).Msg("event log append failed")
	}
}

// Events returns the local analytics log, oldest first.
func (s *Store) Events() ([]analytics.LogEntry, error) {
	var entries []analytics.LogEntry
	if _, err := s.GetJSON(keyEventLog, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// SaveLoginState records sign-in status.
func (s *Store) SaveLoginState(state LoginState) error {
	return s.SetJSON(keyLoginState, state, 0)
}

// GetLoginState returns the recorded sign-in status, signed out when
// none was stored.
func (s *Store) GetLoginState() (LoginState, error) {
	var state LoginState
	_, err := s.GetJSON(keyLoginState, &state)
	return state, err
}

// SaveComparisons stores the comparison list for a product hash.
func (s *Store) SaveComparisons(productHash string, v interface{}) error {
	return s.SetJSON("comparisons:"+productHash, v, comparisonTTL)
}

// GetComparisons loads the comparison list for a product hash into out.
func (s *Store) GetComparisons(productHash string, out interface{}) (bool, error) {
	return s.GetJSON("comparisons:"+productHash, out)
}
