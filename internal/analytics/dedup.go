package analytics

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Kind is the analytics call type a deduplication decision applies to.
type Kind string

const (
	KindIdentify Kind = "identify"
	KindTrack    Kind = "track"
	KindPage     Kind = "page"
	KindScreen   Kind = "screen"
)

// dedupPolicy groups the tunables of one suppression strategy.
type dedupPolicy struct {
	bucket    time.Duration
	retention time.Duration
	slot      bool
}

var (
	// setPolicy suppresses track/page/screen repeats inside a 10s
	// bucket and forgets them after 30s.
	setPolicy = dedupPolicy{bucket: 10 * time.Second, retention: 30 * time.Second}

	// slotPolicy additionally holds the single most recent identify
	// digest. The slot carries the bucketed digest and expires with
	// the retention window, so an identify repeated in a later bucket
	// is sent again.
	slotPolicy = dedupPolicy{bucket: 5 * time.Second, retention: 60 * time.Second, slot: true}
)

func policyFor(kind Kind) dedupPolicy {
	if kind == KindIdentify {
		return slotPolicy
	}
	return setPolicy
}

// Deduper tracks recently sent analytics calls. Safe for concurrent use.
type Deduper struct {
	mu          sync.Mutex
	seen        map[string]time.Time
	slotDigest  string
	slotExpires time.Time
	now         func() time.Time
}

func NewDeduper() *Deduper {
	return &Deduper{
		seen: make(map[string]time.Time),
		now:  time.Now,
	}
}

// ShouldSend reports whether this call is a fresh one and, when it is,
// records it. Expired entries encountered on the way are dropped.
func (d *Deduper) ShouldSend(kind Kind, subjectID string, payload interface{}) bool {
	p := policyFor(kind)

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	d.sweepLocked(now)

	body := serialize(payload)
	bucket := now.Truncate(p.bucket).Unix()
	bucketed := digest(fmt.Sprintf("%s|%s|%s|%d", kind, subjectID, body, bucket))

	if _, dup := d.seen[bucketed]; dup {
		return false
	}
	if p.slot {
		if d.slotDigest == bucketed && now.Before(d.slotExpires) {
			return false
		}
		d.slotDigest = bucketed
		d.slotExpires = now.Add(p.retention)
	}

	d.seen[bucketed] = now.Add(p.retention)
	return true
}

// Sweep drops all expired entries. Wired to the maintenance schedule;
// ShouldSend also sweeps lazily so the hook is a bound, not a
// correctness requirement.
func (d *Deduper) Sweep() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sweepLocked(d.now())
}

func (d *Deduper) sweepLocked(now time.Time) {
	for k, expires := range d.seen {
		if now.After(expires) {
			delete(d.seen, k)
		}
	}
	if d.slotDigest != "" && now.After(d.slotExpires) {
		d.slotDigest = ""
	}
}

func serialize(payload interface{}) string {
	if payload == nil {
		return "null"
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf("%v", payload)
	}
	return string(b)
}

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:16]
}
