package hotplug

import (
	"sync"
)

// streamBuffer bounds how many undelivered events a stream holds before the
// polling goroutine blocks on the consumer.
const streamBuffer = 16

// Stream adapts a Watch into a channel of events. It owns the single polling
// goroutine, satisfying the watch's one-poller-at-a-time precondition: the
// goroutine polls, parks on the waker channel when nothing is pending, and
// resumes when the native callback fires.
type Stream struct {
	watch  *Watch
	events chan Event
	ready  chan struct{}
	stop   chan struct{}
	done   chan struct{}
	close  sync.Once
}

func newStream(w *Watch) *Stream {
	s := &Stream{
		watch:  w,
		events: make(chan Event, streamBuffer),
		ready:  make(chan struct{}, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go s.run()
	return s
}

// Events returns the stream's delivery channel. It is closed when the
// stream is closed.
func (s *Stream) Events() <-chan Event {
	return s.events
}

func (s *Stream) run() {
	defer close(s.done)
	defer close(s.events)
	for {
		ev, ok := s.watch.PollNext(s.ready)
		if !ok {
			select {
			case <-s.ready:
				continue
			case <-s.stop:
				return
			}
		}
		select {
		case s.events <- ev:
		case <-s.stop:
			return
		}
	}
}

// Close stops the polling goroutine and tears down the underlying watch.
func (s *Stream) Close() {
	s.close.Do(func() {
		close(s.stop)
		<-s.done
		s.watch.Close()
	})
}
