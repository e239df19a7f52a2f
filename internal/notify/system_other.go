//go:build !linux && !darwin

package notify

import (
	"errors"
	"time"
)

// ErrUnsupported reports that no notification subsystem exists for this
// platform.
var ErrUnsupported = errors.New("notify: no notification subsystem for this platform")

// NewSystem implements the platform constructor for unsupported platforms.
func NewSystem(_ time.Duration) (System, error) {
	return nil, ErrUnsupported
}
