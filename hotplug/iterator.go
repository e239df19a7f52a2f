package hotplug

import (
	"sync"

	"github.com/usbwatch/usbwatch/internal/notify"
)

// serviceIterator owns one pending-notification queue handle. It exposes the
// queue as a next-or-end sequence and releases the underlying foreign queue
// exactly once, regardless of how teardown paths overlap.
type serviceIterator struct {
	queue   notify.Iterator
	release sync.Once
}

func newServiceIterator(queue notify.Iterator) *serviceIterator {
	return &serviceIterator{queue: queue}
}

// Next returns the next queued service, or false when the current backlog is
// exhausted. Entries enqueued later are observed by a later call.
func (si *serviceIterator) Next() (notify.Service, bool) {
	return si.queue.Next()
}

// Release frees the underlying queue.
func (si *serviceIterator) Release() {
	si.release.Do(si.queue.Release)
}
