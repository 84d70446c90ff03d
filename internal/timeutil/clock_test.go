package timeutil

import (
	"testing"
	"time"
)

func TestRealClockNow(t *testing.T) {
	c := RealClock{}
	before := time.Now()
	now := c.Now()
	after := time.Now()
	if now.Before(before) || now.After(after) {
		t.Errorf("RealClock.Now() = %v outside [%v, %v]", now, before, after)
	}
}

func TestMockClockAdvance(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewMockClock(start)

	if got := c.Now(); !got.Equal(start) {
		t.Fatalf("Now() = %v, want %v", got, start)
	}

	c.Advance(90 * time.Second)
	want := start.Add(90 * time.Second)
	if got := c.Now(); !got.Equal(want) {
		t.Errorf("Now() after Advance = %v, want %v", got, want)
	}

	if got := c.Since(start); got != 90*time.Second {
		t.Errorf("Since(start) = %v, want 90s", got)
	}
}

func TestMockClockSleepRecords(t *testing.T) {
	c := NewMockClock(time.Unix(0, 0))

	done := make(chan struct{})
	go func() {
		c.Sleep(5 * time.Minute)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("MockClock.Sleep blocked")
	}

	sleeps := c.Sleeps()
	if len(sleeps) != 1 || sleeps[0] != 5*time.Minute {
		t.Errorf("Sleeps() = %v, want [5m]", sleeps)
	}
	if got := c.Since(time.Unix(0, 0)); got != 5*time.Minute {
		t.Errorf("clock did not advance during Sleep: %v", got)
	}
}

func TestMockClockAfterFiresImmediately(t *testing.T) {
	c := NewMockClock(time.Unix(100, 0))
	select {
	case <-c.After(time.Hour):
	case <-time.After(time.Second):
		t.Fatal("MockClock.After did not fire")
	}
}
