//go:build linux

package notify

import (
	"bytes"
	"strings"
)

// uevent is a parsed kernel uevent broadcast. Only the fields the USB
// subsystem filter needs are retained.
type uevent struct {
	action    string // "add", "remove", ...
	devpath   string
	subsystem string
	devtype   string
}

// isUSBDevice reports whether the uevent concerns a whole USB device, as
// opposed to an interface or another subsystem entirely.
func (e uevent) isUSBDevice() bool {
	return e.subsystem == "usb" && e.devtype == "usb_device"
}

// parseUEvent decodes a netlink uevent message: a header of the form
// "action@devpath" followed by NUL-separated KEY=value pairs.
func parseUEvent(data []byte) uevent {
	var evt uevent

	for _, field := range bytes.Split(data, []byte{0}) {
		if len(field) == 0 {
			continue
		}
		s := string(field)

		eq := strings.IndexByte(s, '=')
		if eq < 0 {
			if at := strings.IndexByte(s, '@'); at >= 0 {
				evt.action = s[:at]
				evt.devpath = s[at+1:]
			}
			continue
		}

		switch s[:eq] {
		case "ACTION":
			evt.action = s[eq+1:]
		case "DEVPATH":
			evt.devpath = s[eq+1:]
		case "SUBSYSTEM":
			evt.subsystem = s[eq+1:]
		case "DEVTYPE":
			evt.devtype = s[eq+1:]
		}
	}

	return evt
}
