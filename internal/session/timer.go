package session

import (
	"fmt"
	"sync"
	"time"
)

// zeroLabel is the elapsed label before the first tick.
const zeroLabel = "00:00"

// ElapsedTimer tracks elapsed recording time and publishes an MM:SS
// label once per second. It is active if and only if a recording
// session is active; every Start resets it to zero.
type ElapsedTimer struct {
	mu       sync.Mutex
	clock    func() time.Time
	interval time.Duration
	start    time.Time
	label    string
	stopCh   chan struct{}
	onTick   func(label string, seconds int64)
}

// TimerOption configures an ElapsedTimer.
type TimerOption func(*ElapsedTimer)

// WithClock injects the time source, for tests.
func WithClock(clock func() time.Time) TimerOption {
	return func(t *ElapsedTimer) {
		t.clock = clock
	}
}

// WithTickInterval overrides the 1-second tick interval, for tests.
func WithTickInterval(d time.Duration) TimerOption {
	return func(t *ElapsedTimer) {
		t.interval = d
	}
}

// NewElapsedTimer creates a stopped timer. onTick receives every
// published label; nil is allowed.
func NewElapsedTimer(onTick func(label string, seconds int64), opts ...TimerOption) *ElapsedTimer {
	t := &ElapsedTimer{
		clock:    time.Now,
		interval: time.Second,
		label:    zeroLabel,
		onTick:   onTick,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start records the current instant and begins the repeating tick.
// A running timer is restarted from zero.
func (t *ElapsedTimer) Start() {
	t.mu.Lock()
	if t.stopCh != nil {
		close(t.stopCh)
	}
	t.start = t.clock()
	t.label = zeroLabel
	stopCh := make(chan struct{})
	t.stopCh = stopCh
	t.mu.Unlock()

	go t.run(stopCh)
}

// Stop cancels the repeating tick and clears the start instant.
// Idempotent.
func (t *ElapsedTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopCh != nil {
		close(t.stopCh)
		t.stopCh = nil
	}
	t.start = time.Time{}
}

// Label returns the current elapsed label.
func (t *ElapsedTimer) Label() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.label
}

func (t *ElapsedTimer) run(stopCh chan struct{}) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			t.mu.Lock()
			if t.stopCh != stopCh || t.start.IsZero() {
				t.mu.Unlock()
				return
			}
			seconds := int64(t.clock().Sub(t.start).Seconds())
			if seconds < 0 {
				seconds = 0
			}
			label := FormatElapsed(seconds)
			t.label = label
			onTick := t.onTick
			t.mu.Unlock()

			if onTick != nil {
				onTick(label, seconds)
			}
		}
	}
}

// FormatElapsed formats whole seconds as MM:SS with zero-padded
// seconds and unbounded minutes (4205s renders as "70:05").
func FormatElapsed(seconds int64) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
