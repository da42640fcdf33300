package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestDeduper(start time.Time) (*Deduper, *time.Time) {
	d := NewDeduper()
	now := start
	d.now = func() time.Time { return now }
	return d, &now
}

func TestTrackRepeatInsideBucketIsSuppressed(t *testing.T) {
	d, now := newTestDeduper(time.Unix(1000, 0))

	props := map[string]interface{}{"title": "Ceramic Coffee Mug", "price": 14.99}
	assert.True(t, d.ShouldSend(KindTrack, "anon-1", props))
	assert.False(t, d.ShouldSend(KindTrack, "anon-1", props))

	*now = now.Add(3 * time.Second)
	assert.False(t, d.ShouldSend(KindTrack, "anon-1", props))
}

func TestTrackBucketBoundary(t *testing.T) {
	// Two identical events straddling a 10s bucket edge both go out.
	d, now := newTestDeduper(time.Unix(1000, 0).Add(9 * time.Second))

	props := map[string]interface{}{"title": "Desk Lamp"}
	assert.True(t, d.ShouldSend(KindTrack, "anon-1", props))

	*now = now.Add(2 * time.Second)
	assert.True(t, d.ShouldSend(KindTrack, "anon-1", props))
}

func TestDifferentSubjectsDoNotCollide(t *testing.T) {
	d, _ := newTestDeduper(time.Unix(1000, 0))

	props := map[string]interface{}{"title": "Desk Lamp"}
	assert.True(t, d.ShouldSend(KindTrack, "anon-1", props))
	assert.True(t, d.ShouldSend(KindTrack, "anon-2", props))
}

func TestScreenUsesSetPolicy(t *testing.T) {
	d, now := newTestDeduper(time.Unix(1000, 0))

	assert.True(t, d.ShouldSend(KindScreen, "anon-1", map[string]interface{}{"name": "product"}))
	assert.False(t, d.ShouldSend(KindScreen, "anon-1", map[string]interface{}{"name": "product"}))

	*now = now.Add(10 * time.Second)
	assert.True(t, d.ShouldSend(KindScreen, "anon-1", map[string]interface{}{"name": "product"}))
}

func TestIdentifyRepeatInsideBucketIsSuppressed(t *testing.T) {
	d, now := newTestDeduper(time.Unix(1000, 0))

	traits := map[string]interface{}{"email": "owl@example.com", "loginCount": 3}
	assert.True(t, d.ShouldSend(KindIdentify, "user-1", traits))

	*now = now.Add(2 * time.Second)
	assert.False(t, d.ShouldSend(KindIdentify, "user-1", traits))
}

func TestIdentifySlotExpiresWithRetention(t *testing.T) {
	d, now := newTestDeduper(time.Unix(1000, 0))

	traits := map[string]interface{}{"email": "owl@example.com", "loginCount": 3}
	assert.True(t, d.ShouldSend(KindIdentify, "user-1", traits))

	// An unchanged identify recorded longer than the retention window
	// ago has expired and goes out again.
	*now = now.Add(61 * time.Second)
	assert.True(t, d.ShouldSend(KindIdentify, "user-1", traits))
}

func TestIdentifyChangedTraitsGoOut(t *testing.T) {
	d, now := newTestDeduper(time.Unix(1000, 0))

	assert.True(t, d.ShouldSend(KindIdentify, "user-1", map[string]interface{}{"loginCount": 3}))

	*now = now.Add(6 * time.Second)
	assert.True(t, d.ShouldSend(KindIdentify, "user-1", map[string]interface{}{"loginCount": 4}))

	// Flipping back to earlier traits counts as a change again.
	*now = now.Add(6 * time.Second)
	assert.True(t, d.ShouldSend(KindIdentify, "user-1", map[string]interface{}{"loginCount": 3}))
}

func TestSweepDropsExpiredEntries(t *testing.T) {
	d, now := newTestDeduper(time.Unix(1000, 0))

	assert.True(t, d.ShouldSend(KindTrack, "anon-1", map[string]interface{}{"title": "Desk Lamp"}))
	assert.Len(t, d.seen, 1)

	*now = now.Add(31 * time.Second)
	d.Sweep()
	assert.Empty(t, d.seen)
}
