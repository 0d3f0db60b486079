package timer

import (
	"testing"
	"time"
)

var t0 = time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

func TestDisplayCountsDownFromReference(t *testing.T) {
	c := New()
	c.Start(60, t0)

	cases := []struct {
		elapsed time.Duration
		want    int
	}{
		{0, 60},
		{900 * time.Millisecond, 60},
		{time.Second, 59},
		{30 * time.Second, 30},
		{60 * time.Second, 0},
		{90 * time.Second, 0},
	}
	for _, tc := range cases {
		if got := c.Display(t0.Add(tc.elapsed)); got != tc.want {
			t.Errorf("Display(+%v) = %d, want %d", tc.elapsed, got, tc.want)
		}
	}
}

func TestDisplaySurvivesThrottledTicks(t *testing.T) {
	c := New()
	c.Start(60, t0)

	// No ticks for 10 seconds: the display is derived from wall clock,
	// not from tick counting, so it lands on the right value immediately.
	if got := c.Display(t0.Add(10 * time.Second)); got != 50 {
		t.Fatalf("Display after gap = %d, want 50", got)
	}
}

func TestSyncResetsReference(t *testing.T) {
	c := New()
	c.Start(60, t0)

	// Five seconds in, the server says 58 remain.
	c.Sync(58, t0.Add(5*time.Second))

	if got := c.Display(t0.Add(5 * time.Second)); got != 58 {
		t.Errorf("Display at sync = %d, want 58", got)
	}
	if got := c.Display(t0.Add(8 * time.Second)); got != 55 {
		t.Errorf("Display 3s after sync = %d, want 55", got)
	}
}

func TestSyncIgnoredUnlessRunning(t *testing.T) {
	c := New()
	c.Sync(100, t0)
	if c.Phase() != Idle || c.Display(t0) != 0 {
		t.Fatal("idle coordinator must ignore sync")
	}

	c.Start(10, t0)
	c.ExpireIfZero(t0.Add(10 * time.Second))
	c.Sync(100, t0.Add(11*time.Second))
	if c.Display(t0.Add(11*time.Second)) != 0 {
		t.Fatal("expired coordinator must ignore sync")
	}
}

func TestExpireFiresExactlyOnce(t *testing.T) {
	c := New()
	c.Start(5, t0)

	if c.ExpireIfZero(t0.Add(3 * time.Second)) {
		t.Fatal("must not expire with time remaining")
	}
	if !c.ExpireIfZero(t0.Add(5 * time.Second)) {
		t.Fatal("expected expiry at zero")
	}
	// Overlapping tick callbacks retry the expiry: exactly one fires.
	if c.ExpireIfZero(t0.Add(5*time.Second+time.Millisecond)) {
		t.Fatal("second expiry must not fire")
	}
	if c.Phase() != Expired {
		t.Fatalf("phase = %v", c.Phase())
	}
}

func TestRestartRearmsExpiry(t *testing.T) {
	c := New()
	c.Start(5, t0)
	c.ExpireIfZero(t0.Add(5 * time.Second))

	// A restarted session gets a fresh one-shot expiry.
	c.Start(5, t0.Add(time.Minute))
	if c.Phase() != Running {
		t.Fatalf("phase = %v", c.Phase())
	}
	if !c.ExpireIfZero(t0.Add(time.Minute + 5*time.Second)) {
		t.Fatal("rearmed expiry should fire")
	}
}

func TestStopGoesIdle(t *testing.T) {
	c := New()
	c.Start(60, t0)
	c.Stop()
	if c.Phase() != Idle {
		t.Fatalf("phase = %v", c.Phase())
	}
	if c.ExpireIfZero(t0.Add(time.Hour)) {
		t.Fatal("stopped coordinator must not expire")
	}
}

func TestProgress(t *testing.T) {
	c := New()
	c.Start(100, t0)

	if got := c.Progress(100, t0); got != 1 {
		t.Errorf("Progress at start = %v", got)
	}
	if got := c.Progress(100, t0.Add(75*time.Second)); got != 0.25 {
		t.Errorf("Progress at 75s = %v", got)
	}
	if got := c.Progress(0, t0); got != 0 {
		t.Errorf("Progress with zero total = %v", got)
	}
}
