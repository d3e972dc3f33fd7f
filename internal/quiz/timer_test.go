package quiz

import (
	"context"
	"testing"
	"time"
)

func TestRunCountdown_StopsWhenTickReportsDone(t *testing.T) {
	calls := 0
	done := make(chan struct{})

	go func() {
		runCountdown(context.Background(), time.Millisecond, func() bool {
			calls++
			return calls < 3
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runCountdown did not return")
	}
	if calls != 3 {
		t.Errorf("tick called %d times, want 3", calls)
	}
}

func TestRunCountdown_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		runCountdown(ctx, time.Hour, func() bool {
			t.Error("tick should not run")
			return true
		})
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runCountdown ignored cancellation")
	}
}
