// Package eventloop runs the process-wide loop that services native
// notification sources. Each registered source gets a dedicated goroutine
// that waits for the source's signal and dispatches its pending callbacks,
// so callbacks always execute on a loop-owned goroutine, never on the
// caller's.
package eventloop

import (
	"sync"
)

// Source is a native run-loop source. Wait returns a channel that is
// signaled whenever the source has pending notifications; Dispatch invokes
// the callbacks registered with the source's port. Dispatch is only ever
// called from the loop goroutine that owns the source.
type Source interface {
	Wait() <-chan struct{}
	Dispatch()
}

// Loop dispatches registered sources until closed.
type Loop struct {
	mu     sync.Mutex
	wg     sync.WaitGroup
	closed chan struct{}
	done   bool
}

// NewLoop creates an empty loop.
func NewLoop() *Loop {
	return &Loop{closed: make(chan struct{})}
}

var (
	defaultLoop *Loop
	defaultOnce sync.Once
)

// Default returns the process-wide loop, creating it on first use.
func Default() *Loop {
	defaultOnce.Do(func() {
		defaultLoop = NewLoop()
	})
	return defaultLoop
}

// Registration proves a source is installed in the loop. Closing it
// unregisters the source; the source's Dispatch is never called again after
// Close returns.
type Registration struct {
	stop    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

// Close removes the source from the loop. Safe to call more than once.
func (r *Registration) Close() {
	r.once.Do(func() {
		close(r.stop)
		<-r.stopped
	})
}

// AddSource installs src and starts servicing it. The returned registration
// must be held for as long as the source should receive dispatches.
func (l *Loop) AddSource(src Source) *Registration {
	reg := &Registration{
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}

	l.mu.Lock()
	if l.done {
		l.mu.Unlock()
		close(reg.stopped)
		return reg
	}
	l.wg.Add(1)
	l.mu.Unlock()

	go func() {
		defer l.wg.Done()
		defer close(reg.stopped)
		for {
			select {
			case <-l.closed:
				return
			case <-reg.stop:
				return
			case _, ok := <-src.Wait():
				if !ok {
					return
				}
				src.Dispatch()
			}
		}
	}()

	return reg
}

// Close stops the loop and waits for all source goroutines to exit.
func (l *Loop) Close() {
	l.mu.Lock()
	if l.done {
		l.mu.Unlock()
		return
	}
	l.done = true
	close(l.closed)
	l.mu.Unlock()
	l.wg.Wait()
}
