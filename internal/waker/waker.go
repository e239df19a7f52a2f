// Package waker provides a single-slot wakeup register for bridging
// callback-driven notification sources into a pull-based poll loop.
package waker

import "sync/atomic"

// Waker records at most one parked wakeup channel and fires it exactly once
// per arming. Register overwrites any previous registration, so only the most
// recent poller is guaranteed a wakeup. Wake never blocks and never
// allocates, which makes it safe to call from a notification-delivery
// goroutine that must not stall.
type Waker struct {
	slot atomic.Pointer[chan struct{}]
}

// Register arms the waker with ch. The channel should have capacity 1 so a
// wakeup is never dropped while the poller is between park and receive.
func (w *Waker) Register(ch chan struct{}) {
	w.slot.Store(&ch)
}

// Wake fires the registered channel, if any, and disarms the slot. A second
// Wake without an intervening Register is a no-op.
func (w *Waker) Wake() {
	p := w.slot.Swap(nil)
	if p == nil {
		return
	}
	select {
	case *p <- struct{}{}:
	default:
	}
}
