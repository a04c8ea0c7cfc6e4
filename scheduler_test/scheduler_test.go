package scheduler_test

import (
	"testing"

	"github.com/zefrenchwan/ehwsn-sim/scheduler"
)

func TestAtOrdersByTimeThenSequence(t *testing.T) {
	s := scheduler.New()
	var order []string

	s.At(100, func() { order = append(order, "b") })
	s.At(50, func() { order = append(order, "a") })
	s.At(100, func() { order = append(order, "c") })

	s.RunUntil(200)

	expected := []string{"a", "b", "c"}
	if len(order) != len(expected) {
		t.Fatalf("got %v, want %v", order, expected)
	}
	for i := range expected {
		if order[i] != expected[i] {
			t.Fatalf("got %v, want %v", order, expected)
		}
	}
}

func TestRunUntilIsExclusiveOfTheBoundary(t *testing.T) {
	s := scheduler.New()
	fired := false
	s.At(100, func() { fired = true })

	s.RunUntil(100)
	if fired {
		t.Fatal("event scheduled exactly at the boundary fired before it, violating exclusivity")
	}
	if s.Now() != 100 {
		t.Fatalf("Now() = %d, want 100", s.Now())
	}

	s.RunUntil(101)
	if !fired {
		t.Fatal("event did not fire once the boundary passed")
	}
}

func TestRunUntilIsIdempotentAtACheckpoint(t *testing.T) {
	s := scheduler.New()
	count := 0
	s.At(10, func() { count++ })

	s.RunUntil(50)
	s.RunUntil(50)
	s.RunUntil(10)

	if count != 1 {
		t.Fatalf("event fired %d times, want exactly 1", count)
	}
}

func TestTimeoutResolvesNaturallyWithoutInterrupt(t *testing.T) {
	s := scheduler.New()
	var gotReason scheduler.Reason
	fired := false

	sus := s.Timeout(10, func(r scheduler.Reason) {
		fired = true
		gotReason = r
	})

	s.RunUntil(5)
	if sus.Resolved() {
		t.Fatal("suspension resolved before its timeout elapsed")
	}

	s.RunUntil(11)
	if !fired || sus.Resolved() == false {
		t.Fatal("timeout did not fire by its deadline")
	}
	if gotReason != scheduler.ElapsedNaturally {
		t.Fatalf("reason = %q, want ElapsedNaturally", gotReason)
	}
}

func TestInterruptResumesEarlyExactlyOnce(t *testing.T) {
	s := scheduler.New()
	var reasons []scheduler.Reason

	sus := s.Timeout(1000, func(r scheduler.Reason) {
		reasons = append(reasons, r)
	})

	s.At(5, func() {
		sus.Interrupt("discovered")
		sus.Interrupt("discovered-again") // must be a no-op
	})

	s.RunUntil(6)
	if len(reasons) != 1 {
		t.Fatalf("resume called %d times, want exactly 1", len(reasons))
	}
	if reasons[0] != "discovered" {
		t.Fatalf("reason = %q, want discovered", reasons[0])
	}

	// the original timeout must not fire a second time once interrupted.
	s.RunUntil(2000)
	if len(reasons) != 1 {
		t.Fatalf("resume called %d times after the original timeout elapsed, want still 1", len(reasons))
	}
}

func TestPendingTracksQueueDepth(t *testing.T) {
	s := scheduler.New()
	if s.Pending() != 0 {
		t.Fatalf("Pending() = %d on an empty scheduler, want 0", s.Pending())
	}
	s.At(10, func() {})
	s.At(20, func() {})
	if s.Pending() != 2 {
		t.Fatalf("Pending() = %d, want 2", s.Pending())
	}
	s.RunUntil(15)
	if s.Pending() != 1 {
		t.Fatalf("Pending() = %d after consuming one event, want 1", s.Pending())
	}
}
