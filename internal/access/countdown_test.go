package access

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestRemaining(t *testing.T) {
	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	cases := []struct {
		end  time.Time
		want Countdown
	}{
		{base.Add(90 * time.Second), Countdown{Minutes: 1, Seconds: 30}},
		{base.Add(26*time.Hour + 3*time.Minute + 4*time.Second), Countdown{Days: 1, Hours: 2, Minutes: 3, Seconds: 4}},
		{base.Add(1500 * time.Millisecond), Countdown{Seconds: 1}},
		{base, Countdown{Complete: true}},
		{base.Add(-time.Hour), Countdown{Complete: true}},
	}
	for _, tc := range cases {
		if got := Remaining(tc.end, base); got != tc.want {
			t.Fatalf("end %v: expected %+v, got %+v", tc.end, tc.want, got)
		}
	}
}

// fakeClock advances one second per read.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(time.Second)
	return t
}

func TestTickerDecreasesUntilComplete(t *testing.T) {
	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: start}
	end := start.Add(3 * time.Second)

	var got []Countdown
	for c := range Ticker(context.Background(), end, time.Millisecond, clock.Now) {
		got = append(got, c)
	}

	if len(got) != 4 {
		t.Fatalf("expected 4 ticks, got %d: %+v", len(got), got)
	}
	for i := 1; i < len(got)-1; i++ {
		if got[i].Seconds >= got[i-1].Seconds {
			t.Fatalf("countdown must decrease, got %+v", got)
		}
	}
	if !got[len(got)-1].Complete {
		t.Fatalf("expected final tick to be complete, got %+v", got[len(got)-1])
	}
}

func TestTickerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := Ticker(ctx, time.Now().Add(time.Hour), time.Hour, nil)
	<-ch
	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatalf("expected closed channel after cancel")
		}
	case <-time.After(time.Second):
		t.Fatalf("ticker did not stop")
	}
}
