package quiz

import (
	"context"
	"time"
)

// runCountdown calls tick once per interval until ctx is cancelled or tick
// reports that the countdown has stopped.
func runCountdown(ctx context.Context, interval time.Duration, tick func() bool) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if !tick() {
				return
			}
		}
	}
}
