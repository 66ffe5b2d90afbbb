// Package nonce issues single-use signing challenges for wallet login.
//
// Each identifier holds at most one live challenge: issuing a new one
// replaces the previous. A challenge can be redeemed exactly once and only
// within its TTL; absent, expired and already-consumed challenges are
// indistinguishable to the caller.
package nonce

import (
	"fmt"
	"strings"
	"sync"
	"time"

	tokens "github.com/agrotm/accessguard/internal/security/token"
)

// signMessageFormat is the exact string the wallet signs. It must not change:
// clients build their UX around it and the signature covers every byte.
const signMessageFormat = "Sign this message to authenticate with AGROTM DeFi Platform.\n\nNonce: %s\n\nTimestamp: %d"

// DefaultTTL is how long a challenge stays redeemable.
const DefaultTTL = 5 * time.Minute

// nonceBytes gives a 256-bit nonce, hex-encoded in the message.
const nonceBytes = 32

type record struct {
	message  string
	issuedAt time.Time
	consumed bool
}

// Service issues and redeems signing challenges.
type Service struct {
	mu      sync.Mutex
	ttl     time.Duration
	pending map[string]*record

	now func() time.Time
}

// NewService creates a challenge service. ttl <= 0 falls back to DefaultTTL.
func NewService(ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		ttl:     ttl,
		pending: make(map[string]*record),
		now:     time.Now,
	}
}

// Issue generates a fresh challenge for identifier and returns the message
// the wallet must sign. Any previous challenge for the identifier is dropped.
func (s *Service) Issue(identifier string) (string, error) {
	n, err := tokens.GenerateHexToken(nonceBytes)
	if err != nil {
		return "", err
	}

	now := s.now()
	message := fmt.Sprintf(signMessageFormat, n, now.UnixMilli())

	s.mu.Lock()
	s.pending[normalize(identifier)] = &record{message: message, issuedAt: now}
	s.mu.Unlock()

	return message, nil
}

// Redeem consumes the live challenge for identifier and returns the message
// that was signed. It reports false when there is no challenge, the challenge
// expired, or it was already consumed.
func (s *Service) Redeem(identifier string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := normalize(identifier)
	rec, ok := s.pending[key]
	if !ok || rec.consumed {
		return "", false
	}
	if s.now().Sub(rec.issuedAt) > s.ttl {
		delete(s.pending, key)
		return "", false
	}

	rec.consumed = true
	return rec.message, true
}

// Sweep drops expired and consumed challenges. Returns how many were removed.
func (s *Service) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, rec := range s.pending {
		if rec.consumed || now.Sub(rec.issuedAt) > s.ttl {
			delete(s.pending, key)
			removed++
		}
	}
	return removed
}

func normalize(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}
