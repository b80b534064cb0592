package clock

import (
	"context"
	"testing"
	"time"
)

func TestFakeClockSleepAdvancesTime(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewFakeClock(start)

	if err := c.Sleep(context.Background(), time.Second); err != nil {
		t.Fatalf("sleep: %v", err)
	}
	c.Advance(time.Hour)

	if got := c.Now(); !got.Equal(start.Add(time.Hour + time.Second)) {
		t.Fatalf("unexpected now %v", got)
	}
	if sleeps := c.Sleeps(); len(sleeps) != 1 || sleeps[0] != time.Second {
		t.Fatalf("unexpected sleeps %v", sleeps)
	}
}

func TestSleepHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := (SystemClock{}).Sleep(ctx, time.Hour); err == nil {
		t.Fatal("expected cancellation error")
	}
	if err := NewFakeClock(time.Time{}).Sleep(ctx, time.Second); err == nil {
		t.Fatal("expected cancellation error from fake clock")
	}
}
