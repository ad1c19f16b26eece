package access

import (
	"context"
	"time"
)

// Countdown is the remaining time split into display units.
type Countdown struct {
	Days     int64 `json:"days"`
	Hours    int64 `json:"hours"`
	Minutes  int64 `json:"minutes"`
	Seconds  int64 `json:"seconds"`
	Complete bool  `json:"complete"`
}

// Remaining computes the countdown to end. A non-positive remainder is
// Complete with zero parts.
func Remaining(end, now time.Time) Countdown {
	d := end.Sub(now)
	if d <= 0 {
		return Countdown{Complete: true}
	}
	total := int64(d / time.Second)
	return Countdown{
		Days:    total / 86400,
		Hours:   total % 86400 / 3600,
		Minutes: total % 3600 / 60,
		Seconds: total % 60,
	}
}

// Ticker emits the countdown every interval until the first complete value,
// then closes the channel.
func Ticker(ctx context.Context, end time.Time, interval time.Duration, now func() time.Time) <-chan Countdown {
	if now == nil {
		now = time.Now
	}
	if interval <= 0 {
		interval = time.Second
	}
	out := make(chan Countdown, 1)
	go func() {
		defer close(out)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			c := Remaining(end, now())
			select {
			case out <- c:
			case <-ctx.Done():
				return
			}
			if c.Complete {
				return
			}
			select {
			case <-t.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
