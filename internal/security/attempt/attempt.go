// Package attempt rate-limits authentication attempts with a sliding window
// per (identifier, purpose) pair.
package attempt

import (
	"strings"
	"sync"
	"time"
)

// Purpose distinguishes independent attempt budgets for one identifier.
type Purpose string

const (
	PurposeLogin        Purpose = "login"
	PurposeRegistration Purpose = "registration"
)

// Limits defines the budget for one purpose.
type Limits struct {
	Threshold int
	Window    time.Duration
}

// Config maps each purpose to its limits.
type Config map[Purpose]Limits

// DefaultConfig mirrors the platform's auth policy: logins get a tight
// window, registrations a looser one.
func DefaultConfig() Config {
	return Config{
		PurposeLogin:        {Threshold: 3, Window: 5 * time.Minute},
		PurposeRegistration: {Threshold: 2, Window: 10 * time.Minute},
	}
}

type key struct {
	identifier string
	purpose    Purpose
}

// Tracker keeps the sliding-window timestamps per (identifier, purpose).
type Tracker struct {
	mu      sync.Mutex
	cfg     Config
	records map[key][]time.Time

	now func() time.Time
}

// NewTracker creates a Tracker. A nil config falls back to DefaultConfig.
func NewTracker(cfg Config) *Tracker {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Tracker{
		cfg:     cfg,
		records: make(map[key][]time.Time),
		now:     time.Now,
	}
}

// CheckAndRecord prunes stale timestamps, then either records the current
// attempt and allows it, or denies it. A denied attempt is NOT recorded,
// which bounds memory under sustained abuse. Check and record happen under
// one lock so two concurrent attempts cannot both slip under the threshold.
func (t *Tracker) CheckAndRecord(identifier string, p Purpose) bool {
	limits, ok := t.cfg[p]
	if !ok {
		// Unknown purposes have no budget at all
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	k := key{identifier: normalize(identifier), purpose: p}

	kept := pruneBefore(t.records[k], now.Add(-limits.Window))
	if len(kept) >= limits.Threshold {
		t.records[k] = kept
		return false
	}

	t.records[k] = append(kept, now)
	return true
}

// Clear wipes every record for identifier across all purposes. Called on
// successful authentication so one mistyped credential does not linger
// against the limit.
func (t *Tracker) Clear(identifier string) {
	id := normalize(identifier)

	t.mu.Lock()
	defer t.mu.Unlock()

	for k := range t.records {
		if k.identifier == id {
			delete(t.records, k)
		}
	}
}

// Sweep drops records whose whole window has elapsed. Returns how many
// entries were removed.
func (t *Tracker) Sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	removed := 0
	for k, stamps := range t.records {
		limits, ok := t.cfg[k.purpose]
		if !ok {
			delete(t.records, k)
			removed++
			continue
		}
		kept := pruneBefore(stamps, now.Add(-limits.Window))
		if len(kept) == 0 {
			delete(t.records, k)
			removed++
			continue
		}
		t.records[k] = kept
	}
	return removed
}

// pruneBefore keeps only timestamps at or after cutoff.
// Timestamps are appended in order, so the first kept index is enough.
func pruneBefore(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(stamps) && stamps[i].Before(cutoff) {
		i++
	}
	if i == 0 {
		return stamps
	}
	return append([]time.Time(nil), stamps[i:]...)
}

func normalize(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}
