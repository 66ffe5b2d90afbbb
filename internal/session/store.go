// Package session manages opaque session tokens for authenticated principals.
//
// Tokens are high-entropy random strings with no internal structure; the
// store keeps only their SHA-256 hash, so a dump of server memory never
// yields a usable credential. Idle expiry is sliding: every validated use
// pushes the horizon forward.
package session

import (
	"sync"
	"time"

	tokens "github.com/agrotm/accessguard/internal/security/token"
)

const (
	// DefaultMaxSessions caps concurrent sessions per principal.
	DefaultMaxSessions = 5
	// DefaultIdleTimeout expires a session after this much inactivity.
	DefaultIdleTimeout = 30 * time.Minute

	tokenBytes = 32
)

// Session is one live authenticated session.
type Session struct {
	PrincipalID    string
	CreatedAt      time.Time
	LastActivityAt time.Time
}

// Store holds the live sessions.
type Store struct {
	mu          sync.Mutex
	maxSessions int
	idleTimeout time.Duration
	byHash      map[string]*Session

	now func() time.Time
}

// NewStore creates a Store. Non-positive arguments fall back to defaults.
func NewStore(maxSessions int, idleTimeout time.Duration) *Store {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &Store{
		maxSessions: maxSessions,
		idleTimeout: idleTimeout,
		byHash:      make(map[string]*Session),
		now:         time.Now,
	}
}

// Create mints a session for principalID and returns the raw token. When the
// principal already holds the maximum number of live sessions, the one with
// the oldest lastActivity is evicted first; eviction and insert happen under
// one lock so concurrent creates cannot overshoot the cap.
func (s *Store) Create(principalID string) (string, error) {
	raw, err := tokens.GenerateOpaqueToken(tokenBytes)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	// Lazy expiry first so dead sessions do not count against the cap
	s.expireLocked(now)

	var (
		count      int
		oldestHash string
		oldestAt   time.Time
	)
	for h, sess := range s.byHash {
		if sess.PrincipalID != principalID {
			continue
		}
		count++
		if oldestHash == "" || sess.LastActivityAt.Before(oldestAt) {
			oldestHash = h
			oldestAt = sess.LastActivityAt
		}
	}
	if count >= s.maxSessions && oldestHash != "" {
		delete(s.byHash, oldestHash)
	}

	s.byHash[tokens.SHA256Base64URL(raw)] = &Session{
		PrincipalID:    principalID,
		CreatedAt:      now,
		LastActivityAt: now,
	}
	return raw, nil
}

// Validate checks a presented token. Absent and idle-expired sessions are
// the same "not valid" outcome. A valid session gets its lastActivity
// refreshed, which slides the idle window.
func (s *Store) Validate(sessionID string) (principalID string, valid bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := tokens.SHA256Base64URL(sessionID)
	sess, ok := s.byHash[h]
	if !ok {
		return "", false
	}

	now := s.now()
	if now.Sub(sess.LastActivityAt) > s.idleTimeout {
		delete(s.byHash, h)
		return "", false
	}

	// lastActivity is monotonically non-decreasing
	if now.After(sess.LastActivityAt) {
		sess.LastActivityAt = now
	}
	return sess.PrincipalID, true
}

// Revoke destroys one session. Revoking an unknown token is a no-op.
func (s *Store) Revoke(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byHash, tokens.SHA256Base64URL(sessionID))
}

// RevokeAll destroys every session of principalID ("logout everywhere").
func (s *Store) RevokeAll(principalID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for h, sess := range s.byHash {
		if sess.PrincipalID == principalID {
			delete(s.byHash, h)
		}
	}
}

// Active returns how many live sessions exist across all principals.
func (s *Store) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireLocked(s.now())
	return len(s.byHash)
}

// Sweep evicts idle-expired sessions. Returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expireLocked(s.now())
}

func (s *Store) expireLocked(now time.Time) int {
	removed := 0
	for h, sess := range s.byHash {
		if now.Sub(sess.LastActivityAt) > s.idleTimeout {
			delete(s.byHash, h)
			removed++
		}
	}
	return removed
}
