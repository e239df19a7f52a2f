package hotplug

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/usbwatch/usbwatch/internal/eventloop"
	"github.com/usbwatch/usbwatch/internal/notify"
	"github.com/usbwatch/usbwatch/internal/waker"
)

// inner is the state shared between the watch and the native callback. The
// callback's registration holds its own reference, so a callback that is
// mid-execution when the watch is torn down never touches reclaimed state.
// It holds exactly one synchronization primitive and nothing else.
type inner struct {
	waker waker.Waker
}

// Watch observes the notification subsystem for USB device arrivals and
// removals and exposes them through PollNext. A Watch must only be polled by
// one goroutine at a time; the single-slot waker guarantees a wakeup only
// for the most recent poller. Stream enforces that precondition.
type Watch struct {
	sys        notify.System
	inner      *inner
	port       notify.Port
	matched    *serviceIterator
	terminated *serviceIterator
	reg        *eventloop.Registration
	log        *slog.Logger
	destroy    sync.Once
}

// newWatch builds a watch against the given subsystem and event loop.
//
// Registration and the backlog drain cannot miss an event: the queues are
// pull-based snapshots of a kernel-maintained backlog, not edge-triggered
// signals. Anything queued before the drain is drained; anything queued
// after is left for the first real poll.
func newWatch(sys notify.System, loop *eventloop.Loop, log *slog.Logger) (*Watch, error) {
	if log == nil {
		log = slog.Default().With("component", "hotplug")
	}

	matching, err := sys.USBDeviceMatching()
	if err != nil {
		return nil, fmt.Errorf("usb matching criteria: %w", err)
	}

	port, err := sys.NewPort()
	if err != nil {
		return nil, fmt.Errorf("notification port: %w", err)
	}

	in := &inner{}

	terminatedQueue, err1 := port.AddMatchingNotification(notify.Terminated, matching, watchCallback, in)
	matchedQueue, err2 := port.AddMatchingNotification(notify.FirstMatch, matching, watchCallback, in)
	if err1 != nil || err2 != nil {
		port.Destroy()
		return nil, fmt.Errorf("register notification: %w", errors.Join(err1, err2))
	}

	terminated := newServiceIterator(terminatedQueue)
	matched := newServiceIterator(matchedQueue)

	// The subsystem reports every already-attached device as an arrival at
	// registration time. This watch is hotplug-only, so the pre-existing
	// backlog is consumed without emitting events; steady-state enumeration
	// is a separate concern.
	for {
		if _, ok := matched.Next(); !ok {
			break
		}
	}

	reg := loop.AddSource(port.Source())

	return &Watch{
		sys:        sys,
		inner:      in,
		port:       port,
		matched:    matched,
		terminated: terminated,
		reg:        reg,
		log:        log,
	}, nil
}

// watchCallback is invoked by the subsystem on the event-loop goroutine
// whenever either queue gains entries. It must not block or panic; its only
// job is to wake whatever poller is parked on the shared waker.
func watchCallback(refcon any, _ notify.Iterator) {
	if in, ok := refcon.(*inner); ok {
		in.waker.Wake()
	}
}

// PollNext reports the next hotplug event, or ok=false when none is pending.
// ready is armed before the queues are inspected, so a notification enqueued
// at any point after a pending return is guaranteed to fire it.
//
// Arrivals are drained exhaustively: the first successful probe is returned
// immediately and remaining entries wait for the next call; a failed probe
// is logged and skipped without stalling the queue. If no arrival was
// emitted, at most one termination is examined; a failed registry-id
// extraction is logged and the call reports pending.
func (w *Watch) PollNext(ready chan struct{}) (Event, bool) {
	w.inner.waker.Register(ready)

	for {
		svc, ok := w.matched.Next()
		if !ok {
			break
		}
		info, ok := svc.Probe()
		if !ok {
			w.log.Debug("failed to probe connected device")
			continue
		}
		return Event{Type: DeviceArrived, Info: deviceInfo(info), ID: DeviceID(info.RegistryID)}, true
	}

	if svc, ok := w.terminated.Next(); ok {
		id, ok := svc.RegistryID()
		if !ok {
			w.log.Debug("failed to get registry id for disconnected device")
			return Event{}, false
		}
		w.log.Debug("device disconnected", "registry_id", id)
		return Event{Type: DeviceLeft, ID: DeviceID(id)}, true
	}

	return Event{}, false
}

// Close tears the watch down: the event-loop registration is released, both
// queues are freed, and the notification port is destroyed exactly once.
// Destroying the port implicitly releases the kernel-side registrations, so
// no callback fires afterwards.
func (w *Watch) Close() {
	w.destroy.Do(func() {
		w.reg.Close()
		w.matched.Release()
		w.terminated.Release()
		w.port.Destroy()
		if c, ok := w.sys.(interface{ Close() }); ok {
			c.Close()
		}
	})
}

// deviceInfo converts a probed platform descriptor into the public type.
func deviceInfo(d *notify.DeviceInfo) *DeviceInfo {
	return &DeviceInfo{
		ID:           DeviceID(d.RegistryID),
		VendorID:     d.VendorID,
		ProductID:    d.ProductID,
		DeviceClass:  d.DeviceClass,
		Bus:          d.Bus,
		Address:      d.Address,
		Speed:        d.Speed,
		Manufacturer: d.Manufacturer,
		Product:      d.Product,
		SerialNumber: d.SerialNumber,
	}
}
