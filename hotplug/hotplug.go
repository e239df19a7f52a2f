// Package hotplug watches the host operating system's device-notification
// subsystem for USB device arrivals and removals.
//
// The backend bridges the platform's callback-driven notification API into a
// pull-based protocol: Watch.PollNext drains two pending-notification queues
// (arrivals before terminations) and arms a single-slot waker when neither
// yields an event. Stream layers a channel on top for ordinary consumption.
//
// Devices already connected when a watch is constructed are deliberately not
// reported; the construction-time backlog is drained silently and
// steady-state enumeration must go through a separate path.
package hotplug

import (
	"log/slog"
	"time"

	"github.com/usbwatch/usbwatch/internal/eventloop"
	"github.com/usbwatch/usbwatch/internal/notify"
)

// Options tune watch construction.
type Options struct {
	// ScanInterval sets the snapshot interval on platforms whose subsystem
	// is driven by periodic scans rather than kernel notifications. Zero
	// selects the platform default.
	ScanInterval time.Duration
	// Logger receives per-item probe failures at debug level. Nil selects
	// slog.Default.
	Logger *slog.Logger
}

// New opens a watch against the platform's notification subsystem and the
// process-wide event loop.
func New() (*Watch, error) {
	return NewWithOptions(Options{})
}

// NewWithOptions is New with explicit options.
func NewWithOptions(opts Options) (*Watch, error) {
	sys, err := notify.NewSystem(opts.ScanInterval)
	if err != nil {
		return nil, err
	}
	return newWatch(sys, eventloop.Default(), opts.Logger)
}

// NewStream opens a watch and wraps it in a stream.
func NewStream() (*Stream, error) {
	return NewStreamWithOptions(Options{})
}

// NewStreamWithOptions is NewStream with explicit options.
func NewStreamWithOptions(opts Options) (*Stream, error) {
	w, err := NewWithOptions(opts)
	if err != nil {
		return nil, err
	}
	return newStream(w), nil
}
