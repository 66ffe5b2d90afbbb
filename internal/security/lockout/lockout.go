// Package lockout suspends identifiers after repeated failed attempts.
//
// State machine per identifier:
//
//	UNLOCKED --(threshold breach)--> LOCKED --(lockedUntil elapsed)--> UNLOCKED
//
// There is no manual unlock: locks only expire.
package lockout

import (
	"strings"
	"sync"
	"time"
)

// DefaultDuration is how long an identifier stays locked.
const DefaultDuration = 15 * time.Minute

// Manager tracks locked identifiers.
type Manager struct {
	mu       sync.Mutex
	duration time.Duration
	locked   map[string]time.Time

	now func() time.Time
}

// NewManager creates a Manager. duration <= 0 falls back to DefaultDuration.
func NewManager(duration time.Duration) *Manager {
	if duration <= 0 {
		duration = DefaultDuration
	}
	return &Manager{
		duration: duration,
		locked:   make(map[string]time.Time),
		now:      time.Now,
	}
}

// Lock suspends identifier until now + duration. Repeated calls never
// shorten an active lock: the later lockedUntil always wins.
func (m *Manager) Lock(identifier string) {
	id := normalize(identifier)

	m.mu.Lock()
	defer m.mu.Unlock()

	until := m.now().Add(m.duration)
	if current, ok := m.locked[id]; ok && current.After(until) {
		return
	}
	m.locked[id] = until
}

// IsLocked reports whether identifier is currently locked. An elapsed lock
// is removed lazily on this read.
func (m *Manager) IsLocked(identifier string) bool {
	id := normalize(identifier)

	m.mu.Lock()
	defer m.mu.Unlock()

	until, ok := m.locked[id]
	if !ok {
		return false
	}
	if !m.now().Before(until) {
		delete(m.locked, id)
		return false
	}
	return true
}

// Remaining returns how long the lock still holds, or zero when unlocked.
// This is the only detail about a lock that may be surfaced to callers.
func (m *Manager) Remaining(identifier string) time.Duration {
	id := normalize(identifier)

	m.mu.Lock()
	defer m.mu.Unlock()

	until, ok := m.locked[id]
	if !ok {
		return 0
	}
	rem := until.Sub(m.now())
	if rem <= 0 {
		delete(m.locked, id)
		return 0
	}
	return rem
}

// Sweep removes elapsed locks. Returns how many were removed.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for id, until := range m.locked {
		if !now.Before(until) {
			delete(m.locked, id)
			removed++
		}
	}
	return removed
}

func normalize(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}
