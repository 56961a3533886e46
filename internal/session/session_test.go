package session

import (
	"testing"
	"time"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestStartSetsDeadline(t *testing.T) {
	t.Parallel()
	s := New(0)
	s.Start(t0)
	snap := s.Snapshot()
	if !snap.Active || !snap.Deadline.Equal(t0.Add(DefaultTimeLimit)) {
		t.Fatalf("snapshot=%+v", snap)
	}

	// Restart while active refreshes the timer.
	later := t0.Add(3 * time.Minute)
	s.Start(later)
	if got := s.Snapshot().Deadline; !got.Equal(later.Add(DefaultTimeLimit)) {
		t.Fatalf("deadline=%v", got)
	}
}

func TestExpireBoundaries(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		offset time.Duration
		want   bool
	}{
		{"before deadline", DefaultTimeLimit - time.Second, false},
		{"at deadline", DefaultTimeLimit, false},
		{"after deadline", DefaultTimeLimit + time.Second, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := New(DefaultTimeLimit)
			s.Start(t0)
			if got := s.Expire(t0.Add(tc.offset)); got != tc.want {
				t.Fatalf("Expire=%v want %v", got, tc.want)
			}
			if s.Active() == tc.want {
				t.Fatalf("Active=%v after Expire=%v", s.Active(), tc.want)
			}
		})
	}
}

func TestExpireReportsOnce(t *testing.T) {
	t.Parallel()
	s := New(time.Minute)
	s.Start(t0)
	if !s.Expire(t0.Add(2 * time.Minute)) {
		t.Fatal("first Expire should transition")
	}
	if s.Expire(t0.Add(3 * time.Minute)) {
		t.Fatal("second Expire should not transition")
	}
}

func TestStopIdempotent(t *testing.T) {
	t.Parallel()
	s := New(time.Minute)
	if s.Stop(t0) {
		t.Fatal("Stop on idle reported a transition")
	}
	s.Start(t0)
	if !s.Stop(t0.Add(time.Second)) {
		t.Fatal("Stop on active should transition")
	}
	if s.Stop(t0.Add(2*time.Second)) || s.Active() {
		t.Fatal("second Stop changed state")
	}
	if got := s.Snapshot().StoppedAt; !got.Equal(t0.Add(2 * time.Second)) {
		t.Fatalf("stoppedAt=%v, want refreshed by idle Stop", got)
	}
}
