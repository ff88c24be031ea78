package timeutil

import (
	"testing"
	"time"
)

func TestRealClock(t *testing.T) {
	var clock Clock = RealClock{}

	before := time.Now()
	now := clock.Now()
	after := time.Now()

	if now.Before(before) || now.After(after) {
		t.Errorf("RealClock.Now() = %v, want between %v and %v", now, before, after)
	}

	if since := clock.Since(before); since < 0 {
		t.Errorf("RealClock.Since() = %v, want non-negative", since)
	}
}

func TestFakeClockAdvance(t *testing.T) {
	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	clock := NewFakeClock(start)

	if got := clock.Now(); !got.Equal(start) {
		t.Errorf("Now() = %v, want %v", got, start)
	}

	clock.Advance(2500 * time.Millisecond)
	if got := clock.Now(); !got.Equal(start.Add(2500 * time.Millisecond)) {
		t.Errorf("Now() after Advance = %v, want %v", got, start.Add(2500*time.Millisecond))
	}

	if got := clock.Since(start); got != 2500*time.Millisecond {
		t.Errorf("Since(start) = %v, want 2.5s", got)
	}
}

func TestFakeClockDoesNotTick(t *testing.T) {
	clock := NewFakeClock(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))

	first := clock.Now()
	time.Sleep(5 * time.Millisecond)
	second := clock.Now()

	if !first.Equal(second) {
		t.Errorf("FakeClock moved on its own: %v then %v", first, second)
	}
}
