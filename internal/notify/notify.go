// Package notify abstracts the host operating system's device-notification
// subsystem: notification ports, matching criteria, pending-notification
// queues, and the callbacks the subsystem fires when a queue gains entries.
//
// The package deliberately mirrors how the native facilities behave rather
// than how Go code would like them to: callbacks are invoked from a
// goroutine the caller does not control (the event loop servicing the port's
// source), queues are pull-based snapshots of a kernel-maintained backlog,
// and probing a queued service for its descriptor can fail at any time.
package notify

import (
	"github.com/usbwatch/usbwatch/internal/eventloop"
)

// NotificationClass selects which device-state transition a registration
// observes.
type NotificationClass int

const (
	// FirstMatch reports services that newly match the criteria, including
	// every already-matching service at registration time.
	FirstMatch NotificationClass = iota
	// Terminated reports matching services that are about to go away.
	Terminated
)

// Callback is invoked by the subsystem, on the event-loop goroutine, when a
// registration's queue gains entries. refcon is the context reference
// supplied at registration; the iterator argument identifies the queue but
// is typically ignored, since registrations re-poll their own queues by
// identity.
type Callback func(refcon any, queue Iterator)

// Matching is an opaque descriptor selecting which devices a registration
// applies to. It is retained by the subsystem across registrations.
type Matching struct {
	class string
}

// DeviceInfo is the platform-level snapshot of an attached device, taken at
// the moment the subsystem enqueued its notification.
type DeviceInfo struct {
	RegistryID   uint64
	VendorID     uint16
	ProductID    uint16
	DeviceClass  uint8
	Bus          uint8
	Address      uint8
	Speed        string
	Manufacturer string
	Product      string
	SerialNumber string
}

// Service is a handle to one queued device service.
type Service interface {
	// Probe resolves the service into a full device descriptor. It reports
	// false when the device vanished or its attributes cannot be read.
	Probe() (*DeviceInfo, bool)
	// RegistryID extracts the service's stable registry identifier. It
	// reports false when the identity cannot be recovered.
	RegistryID() (uint64, bool)
}

// Iterator is a pending-notification queue handle. Next is a lazy, finite
// drain of the current backlog; entries enqueued after the drain are picked
// up by a later Next call. Release frees the underlying queue; it is the
// owner's responsibility to call it exactly once.
type Iterator interface {
	Next() (Service, bool)
	Release()
}

// Port is an owned channel through which the subsystem delivers
// notifications. Destroying the port implicitly tears down every
// registration made against it.
type Port interface {
	// AddMatchingNotification registers matching criteria for one
	// notification class, wiring fn with refcon as its context reference.
	// It returns the registration's independent pending-notification queue.
	AddMatchingNotification(class NotificationClass, m Matching, fn Callback, refcon any) (Iterator, error)
	// Source returns the port's run-loop source for event-loop integration.
	Source() eventloop.Source
	// Destroy releases the port. Callbacks never fire after Destroy returns.
	Destroy()
}

// System is a platform's notification subsystem.
type System interface {
	// USBDeviceMatching builds criteria matching any USB device. Failure is
	// fatal: it means the platform framework is broken or absent.
	USBDeviceMatching() (Matching, error)
	// NewPort opens a notification port from the platform's default
	// coordination context.
	NewPort() (Port, error)
}
