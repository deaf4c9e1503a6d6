// Package netplaytimer provides one-shot deadline timers for the session
// state machine: handshake step timeouts, ping measurement windows, and
// the UI-confirmation wait.
package netplaytimer

import (
	"sync"
	"time"
)

// Timer is a cancelable one-shot deadline. Unlike time.Timer, Stop is
// always safe to call more than once and from any goroutine.
type Timer struct {
	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// Start arms a Timer that calls fn after d unless Stop is called first.
func Start(d time.Duration, fn func()) *Timer {
	t := &Timer{}
	t.timer = time.AfterFunc(d, func() {
		t.mu.Lock()
		stopped := t.stopped
		t.mu.Unlock()
		if !stopped {
			fn()
		}
	})
	return t
}

// Stop prevents fn from firing if it hasn't already. Safe to call
// multiple times.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.stopped = true
	t.timer.Stop()
}

// Reset reschedules the timer to fire d from now, undoing any pending Stop.
func (t *Timer) Reset(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = false
	t.timer.Reset(d)
}

// Deadline blocks until d elapses or cancel fires, returning true if the
// deadline itself elapsed first. Used for the UI-confirmation wait, which
// needs a select-friendly signal rather than a callback.
func Deadline(d time.Duration, cancel <-chan struct{}) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-cancel:
		return false
	}
}
