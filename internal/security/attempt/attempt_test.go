package attempt

import (
	"testing"
	"time"
)

func newFixedTracker(cfg Config) (*Tracker, *time.Time) {
	t := NewTracker(cfg)
	now := time.Now()
	t.now = func() time.Time { return now }
	return t, &now
}

func TestCheckAndRecord_ThresholdWithinWindow(t *testing.T) {
	tr, now := newFixedTracker(Config{
		PurposeLogin: {Threshold: 5, Window: 5 * time.Minute},
	})

	for i := 0; i < 5; i++ {
		if !tr.CheckAndRecord("user", PurposeLogin) {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
		*now = now.Add(10 * time.Second)
	}

	// 6th within the same window is denied
	if tr.CheckAndRecord("user", PurposeLogin) {
		t.Fatal("6th attempt within window should be denied")
	}
}

func TestCheckAndRecord_WindowSlides(t *testing.T) {
	tr, now := newFixedTracker(Config{
		PurposeLogin: {Threshold: 5, Window: 5 * time.Minute},
	})

	for i := 0; i < 5; i++ {
		tr.CheckAndRecord("user", PurposeLogin)
	}
	if tr.CheckAndRecord("user", PurposeLogin) {
		t.Fatal("over threshold should deny")
	}

	// After the window fully elapses the identifier is allowed again
	*now = now.Add(5*time.Minute + time.Second)
	if !tr.CheckAndRecord("user", PurposeLogin) {
		t.Fatal("attempt after window elapsed should be allowed")
	}
}

func TestCheckAndRecord_ConcreteLoginScenario(t *testing.T) {
	// threshold 3 per 5 minutes, attempts at t=0s, 60s, 120s, 150s
	tr, now := newFixedTracker(Config{
		PurposeLogin: {Threshold: 3, Window: 5 * time.Minute},
	})
	start := *now

	for i, offset := range []time.Duration{0, time.Minute, 2 * time.Minute} {
		*now = start.Add(offset)
		if !tr.CheckAndRecord("0xABCD", PurposeLogin) {
			t.Fatalf("attempt %d at %s should be allowed", i+1, offset)
		}
	}

	*now = start.Add(150 * time.Second)
	if tr.CheckAndRecord("0xABCD", PurposeLogin) {
		t.Fatal("attempt at t=150s should be denied")
	}
}

func TestCheckAndRecord_DeniedAttemptNotRecorded(t *testing.T) {
	tr, now := newFixedTracker(Config{
		PurposeLogin: {Threshold: 2, Window: time.Minute},
	})
	start := *now

	tr.CheckAndRecord("user", PurposeLogin)
	tr.CheckAndRecord("user", PurposeLogin)

	// Hammer while over threshold: these must not extend the block
	for i := 0; i < 10; i++ {
		*now = start.Add(time.Duration(i) * time.Second)
		if tr.CheckAndRecord("user", PurposeLogin) {
			t.Fatal("over-threshold attempt allowed")
		}
	}

	// The original two attempts age out on schedule regardless of the hammering
	*now = start.Add(61 * time.Second)
	if !tr.CheckAndRecord("user", PurposeLogin) {
		t.Fatal("window should have elapsed relative to the recorded attempts only")
	}
}

func TestPurposesAreIndependent(t *testing.T) {
	tr, _ := newFixedTracker(Config{
		PurposeLogin:        {Threshold: 1, Window: time.Minute},
		PurposeRegistration: {Threshold: 2, Window: time.Minute},
	})

	if !tr.CheckAndRecord("user", PurposeLogin) {
		t.Fatal("first login should pass")
	}
	if tr.CheckAndRecord("user", PurposeLogin) {
		t.Fatal("second login should be denied")
	}

	// Registration budget is untouched by the exhausted login budget
	if !tr.CheckAndRecord("user", PurposeRegistration) {
		t.Fatal("registration should have its own budget")
	}
}

func TestUnknownPurposeDenied(t *testing.T) {
	tr, _ := newFixedTracker(nil)
	if tr.CheckAndRecord("user", Purpose("password-reset")) {
		t.Fatal("unknown purpose must be denied")
	}
}

func TestClear(t *testing.T) {
	tr, _ := newFixedTracker(Config{
		PurposeLogin: {Threshold: 1, Window: time.Minute},
	})

	tr.CheckAndRecord("0xAbCd", PurposeLogin)
	if tr.CheckAndRecord("0xabcd", PurposeLogin) {
		t.Fatal("should be over threshold")
	}

	tr.Clear("0xABCD")
	if !tr.CheckAndRecord("0xabcd", PurposeLogin) {
		t.Fatal("Clear should reset the budget")
	}
}

func TestSweep(t *testing.T) {
	tr, now := newFixedTracker(Config{
		PurposeLogin: {Threshold: 3, Window: time.Minute},
	})

	tr.CheckAndRecord("a", PurposeLogin)
	tr.CheckAndRecord("b", PurposeLogin)

	*now = now.Add(2 * time.Minute)
	if removed := tr.Sweep(); removed != 2 {
		t.Fatalf("Sweep = %d, want 2", removed)
	}
}
