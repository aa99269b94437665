package chatstream

import (
	"sync"
	"time"
)

const (
	// DefaultTimeout is how long a session may go without any inbound frame.
	DefaultTimeout = 120 * time.Second

	// SlowFrameThreshold is the gap between frames that is logged as slow.
	// It is diagnostic only and never ends a session.
	SlowFrameThreshold = 10 * time.Second
)

// ActivityTimer is a resettable inactivity deadline. onExpire runs at most
// once per Arm, on the clock's goroutine, and never after Cancel or for a
// deadline superseded by Reset.
type ActivityTimer struct {
	clock    Clock
	onExpire func()

	mu      sync.Mutex
	timeout time.Duration
	timer   Timer
	gen     uint64
	armed   bool
}

// NewActivityTimer returns an unarmed timer.
func NewActivityTimer(clock Clock, onExpire func()) *ActivityTimer {
	return &ActivityTimer{clock: clock, onExpire: onExpire}
}

// Arm starts the deadline timeout from now.
func (t *ActivityTimer) Arm(timeout time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timeout = timeout
	t.armed = true
	t.scheduleLocked()
}

// Reset pushes the deadline to now plus the armed timeout. No-op when unarmed.
func (t *ActivityTimer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.armed {
		return
	}
	t.scheduleLocked()
}

// Cancel disarms the timer.
func (t *ActivityTimer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.armed = false
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func (t *ActivityTimer) scheduleLocked() {
	if t.timer != nil {
		t.timer.Stop()
	}
	t.gen++
	gen := t.gen
	t.timer = t.clock.AfterFunc(t.timeout, func() { t.fire(gen) })
}

func (t *ActivityTimer) fire(gen uint64) {
	t.mu.Lock()
	if !t.armed || gen != t.gen {
		t.mu.Unlock()
		return
	}
	t.armed = false
	t.timer = nil
	t.mu.Unlock()
	t.onExpire()
}
