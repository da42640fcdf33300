package coupon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"owlprice/priceworker/internal/product"
	"owlprice/priceworker/services/store"
)

type memoryBlob struct {
	data map[string][]byte
}

func newMemoryBlob() *memoryBlob {
	return &memoryBlob{data: make(map[string][]byte)}
}

func (m *memoryBlob) Get(key string) ([]byte, error) {
	v, ok := m.data[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return v, nil
}

func (m *memoryBlob) Set(key string, value []byte, _ time.Duration) error {
	m.data[key] = value
	return nil
}

func (m *memoryBlob) Delete(key string) error {
	delete(m.data, key)
	return nil
}

func newTestService() (*Service, *time.Time) {
	s := New(store.New(newMemoryBlob()))
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	return s, &now
}

func nikeShoe() *product.Record {
	return &product.Record{
		Title: "Air Zoom Pegasus Running Shoe",
		Price: 120,
		URL:   "https://www.nike.com/t/air-zoom-pegasus/DH1234-001",
		Site:  "Nike",
	}
}

func TestGenerateIssuesSiteCoupon(t *testing.T) {
	s, _ := newTestService()

	issued, err := s.GenerateFor(nikeShoe(), "user-1")
	require.NoError(t, err)
	require.Len(t, issued, 1)

	c := issued[0]
	assert.Contains(t, []string{"NIKE10", "FREERUN", "ATHLETE15"}, c.Code)
	assert.Equal(t, "Nike", c.Site)
	assert.Equal(t, "Fashion", c.Category) // "shoe" matches Fashion ahead of Sports
	assert.Equal(t, "user-1", c.UserID)
	assert.False(t, c.Used)
	assert.Equal(t, 14*24*time.Hour, c.ExpiresAt.Sub(c.CreatedAt))
}

func TestGenerateFallsBackToGenericTemplates(t *testing.T) {
	s, _ := newTestService()

	rec := &product.Record{Title: "Ceramic Coffee Mug", Price: 15, Site: "Shopsite"}
	issued, err := s.GenerateFor(rec, "user-1")
	require.NoError(t, err)
	require.Len(t, issued, 1)
	assert.Contains(t, []string{"SAVE10", "WELCOME15", "FREESHIP"}, issued[0].Code)
}

func TestPerSiteCapIsTwo(t *testing.T) {
	s, _ := newTestService()

	for i := 0; i < 2; i++ {
		issued, err := s.GenerateFor(nikeShoe(), "user-1")
		require.NoError(t, err)
		require.Len(t, issued, 1)
	}

	issued, err := s.GenerateFor(nikeShoe(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, issued, "third live coupon for the same site must not be issued")

	// A different site is unaffected by the cap.
	other := &product.Record{Title: "USB-C Charger", Price: 40, Site: "Amazon"}
	issued, err = s.GenerateFor(other, "user-1")
	require.NoError(t, err)
	assert.Len(t, issued, 1)
}

func TestExpiredCouponsFreeTheCap(t *testing.T) {
	s, now := newTestService()

	_, err := s.GenerateFor(nikeShoe(), "user-1")
	require.NoError(t, err)
	_, err = s.GenerateFor(nikeShoe(), "user-1")
	require.NoError(t, err)

	*now = now.Add(15 * 24 * time.Hour)

	issued, err := s.GenerateFor(nikeShoe(), "user-1")
	require.NoError(t, err)
	assert.Len(t, issued, 1, "expired coupons must not count against the cap")
}

func TestActiveForFiltersSiteAndLiveness(t *testing.T) {
	s, now := newTestService()

	_, err := s.GenerateFor(nikeShoe(), "user-1")
	require.NoError(t, err)
	_, err = s.GenerateFor(&product.Record{Title: "USB-C Charger", Price: 40, Site: "Amazon"}, "user-1")
	require.NoError(t, err)

	active, err := s.ActiveFor("user-1", "nike")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Nike", active[0].Site)

	*now = now.Add(15 * 24 * time.Hour)
	active, err = s.ActiveFor("user-1", "nike")
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestSweepExpiredKeepsUsedCoupons(t *testing.T) {
	s, now := newTestService()

	issued, err := s.GenerateFor(nikeShoe(), "user-1")
	require.NoError(t, err)
	require.NoError(t, s.MarkUsed("user-1", issued[0].ID))

	_, err = s.GenerateFor(nikeShoe(), "user-1")
	require.NoError(t, err)

	*now = now.Add(15 * 24 * time.Hour)
	require.NoError(t, s.SweepExpired("user-1"))

	all, err := s.All("user-1")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Used)
}

func TestDetectCategory(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Gaming Laptop 15 inch", "Electronics"},
		{"Leather Jacket Medium", "Fashion"},
		{"Air Zoom Running Shoe", "Fashion"}, // "shoe" hits Fashion before Sports
		{"Arc Floor Lamp", "Home"},
		{"Paperback Novel Collection", "Books"},
		{"Vitamin C Skincare Serum", "Beauty"},
		{"Ceramic Coffee Mug", "Other"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectCategory(tt.title), tt.title)
	}
}
