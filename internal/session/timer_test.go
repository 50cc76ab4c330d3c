package session

import (
	"sync"
	"testing"
	"time"
)

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{0, "00:00"},
		{5, "00:05"},
		{59, "00:59"},
		{60, "01:00"},
		{83, "01:23"},
		{4205, "70:05"},
		{4500, "75:00"},
	}
	for _, tt := range tests {
		if got := FormatElapsed(tt.seconds); got != tt.want {
			t.Errorf("FormatElapsed(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestTimerLabelIsZeroImmediatelyAfterStart(t *testing.T) {
	timer := NewElapsedTimer(nil)
	timer.Start()
	defer timer.Stop()

	if got := timer.Label(); got != "00:00" {
		t.Errorf("Expected 00:00 right after start, got %q", got)
	}
}

func TestTimerTicksNonDecreasing(t *testing.T) {
	var mu sync.Mutex
	now := time.Now()
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}

	ticks := make(chan int64, 16)
	timer := NewElapsedTimer(func(_ string, seconds int64) {
		select {
		case ticks <- seconds:
		default:
		}
	}, WithClock(clock), WithTickInterval(5*time.Millisecond))

	timer.Start()
	defer timer.Stop()

	var last int64 = -1
	for i := 0; i < 5; i++ {
		select {
		case s := <-ticks:
			if s < last {
				t.Fatalf("Elapsed seconds decreased: %d after %d", s, last)
			}
			last = s
		case <-time.After(time.Second):
			t.Fatal("Timed out waiting for tick")
		}
	}
}

func TestTimerResetsBetweenSessions(t *testing.T) {
	timer := NewElapsedTimer(nil, WithTickInterval(time.Hour))
	timer.Start()
	timer.Stop()

	// A new session must not carry over elapsed time.
	timer.Start()
	defer timer.Stop()
	if got := timer.Label(); got != "00:00" {
		t.Errorf("Expected reset to 00:00, got %q", got)
	}
}

func TestTimerStopIsIdempotent(_ *testing.T) {
	timer := NewElapsedTimer(nil)
	timer.Start()
	timer.Stop()
	timer.Stop()
}

func TestTimerDoesNotTickAfterStop(t *testing.T) {
	ticked := make(chan struct{}, 16)
	timer := NewElapsedTimer(func(string, int64) {
		select {
		case ticked <- struct{}{}:
		default:
		}
	}, WithTickInterval(5*time.Millisecond))

	timer.Start()
	timer.Stop()

	// Drain anything published before the stop landed.
	time.Sleep(20 * time.Millisecond)
	for len(ticked) > 0 {
		<-ticked
	}

	select {
	case <-ticked:
		t.Error("Timer ticked after Stop")
	case <-time.After(30 * time.Millisecond):
	}
}
