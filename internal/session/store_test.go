package session

import (
	"testing"
	"time"
)

func newFixedStore(max int, idle time.Duration) (*Store, *time.Time) {
	s := NewStore(max, idle)
	now := time.Now()
	s.now = func() time.Time { return now }
	return s, &now
}

func TestCreateAndValidate(t *testing.T) {
	s, _ := newFixedStore(5, 30*time.Minute)

	id, err := s.Create("principal-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id == "" {
		t.Fatal("session id should not be empty")
	}

	principal, ok := s.Validate(id)
	if !ok || principal != "principal-1" {
		t.Fatalf("Validate = %q, %v", principal, ok)
	}
}

func TestValidate_AbsentToken(t *testing.T) {
	s, _ := newFixedStore(5, 30*time.Minute)
	if _, ok := s.Validate("made-up-token"); ok {
		t.Fatal("absent token must be invalid")
	}
}

func TestValidate_IdleTimeoutSlides(t *testing.T) {
	s, now := newFixedStore(5, 30*time.Minute)

	id, _ := s.Create("p")

	// Validated every minute, the session never expires
	for i := 0; i < 60; i++ {
		*now = now.Add(time.Minute)
		if _, ok := s.Validate(id); !ok {
			t.Fatalf("session expired at minute %d despite regular use", i+1)
		}
	}

	// Untouched for 31 minutes, it is invalid
	*now = now.Add(31 * time.Minute)
	if _, ok := s.Validate(id); ok {
		t.Fatal("session should expire after 31 idle minutes")
	}

	// And stays invalid afterwards (evicted, not just rejected)
	*now = now.Add(-20 * time.Minute)
	if _, ok := s.Validate(id); ok {
		t.Fatal("expired session must not come back")
	}
}

func TestCreate_CapEvictsOldest(t *testing.T) {
	s, now := newFixedStore(5, 30*time.Minute)

	ids := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		id, err := s.Create("p")
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		ids = append(ids, id)
		*now = now.Add(time.Second)
	}

	// Touch all but the second one, making ids[1] the oldest by lastActivity
	for i, id := range ids {
		if i == 1 {
			continue
		}
		*now = now.Add(time.Second)
		s.Validate(id)
	}

	sixth, err := s.Create("p")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, ok := s.Validate(ids[1]); ok {
		t.Fatal("oldest-by-activity session should have been evicted")
	}
	for i, id := range ids {
		if i == 1 {
			continue
		}
		if _, ok := s.Validate(id); !ok {
			t.Fatalf("session %d should have survived the eviction", i)
		}
	}
	if _, ok := s.Validate(sixth); !ok {
		t.Fatal("new session should be valid")
	}
}

func TestCreate_CapIsPerPrincipal(t *testing.T) {
	s, _ := newFixedStore(2, 30*time.Minute)

	a1, _ := s.Create("a")
	a2, _ := s.Create("a")
	b1, _ := s.Create("b")

	for _, id := range []string{a1, a2, b1} {
		if _, ok := s.Validate(id); !ok {
			t.Fatal("sessions of different principals must not evict each other")
		}
	}
}

func TestRevoke(t *testing.T) {
	s, _ := newFixedStore(5, 30*time.Minute)

	id, _ := s.Create("p")
	s.Revoke(id)
	if _, ok := s.Validate(id); ok {
		t.Fatal("revoked session must be invalid")
	}

	// Revoking twice is harmless
	s.Revoke(id)
}

func TestRevokeAll(t *testing.T) {
	s, _ := newFixedStore(5, 30*time.Minute)

	a1, _ := s.Create("a")
	a2, _ := s.Create("a")
	b1, _ := s.Create("b")

	s.RevokeAll("a")

	if _, ok := s.Validate(a1); ok {
		t.Fatal("a1 should be gone")
	}
	if _, ok := s.Validate(a2); ok {
		t.Fatal("a2 should be gone")
	}
	if _, ok := s.Validate(b1); !ok {
		t.Fatal("other principals must be untouched")
	}
}

func TestSweep(t *testing.T) {
	s, now := newFixedStore(5, 30*time.Minute)

	s.Create("a")
	s.Create("b")

	if removed := s.Sweep(); removed != 0 {
		t.Fatalf("Sweep of live sessions = %d, want 0", removed)
	}

	*now = now.Add(31 * time.Minute)
	if removed := s.Sweep(); removed != 2 {
		t.Fatalf("Sweep = %d, want 2", removed)
	}
	if s.Active() != 0 {
		t.Fatalf("Active = %d, want 0", s.Active())
	}
}
