package hotplug

import "fmt"

// DeviceID is the stable, OS-assigned identity of a connected device
// instance within this session. It is the only identity available for a
// device that has already been removed.
type DeviceID uint64

func (id DeviceID) String() string {
	return fmt.Sprintf("%#x", uint64(id))
}

// EventType distinguishes arrivals from removals.
type EventType int

const (
	// DeviceArrived reports a newly connected device.
	DeviceArrived EventType = iota + 1
	// DeviceLeft reports a disconnected device.
	DeviceLeft
)

func (t EventType) String() string {
	switch t {
	case DeviceArrived:
		return "arrived"
	case DeviceLeft:
		return "left"
	default:
		return "unknown"
	}
}

// DeviceInfo describes a connected USB device, produced by probing an
// arrived service.
type DeviceInfo struct {
	ID           DeviceID
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

func (d *DeviceInfo) String() string {
	if d.Product != "" {
		return fmt.Sprintf("%04x:%04x %s", d.VendorID, d.ProductID, d.Product)
	}
	return fmt.Sprintf("%04x:%04x", d.VendorID, d.ProductID)
}

// Event is a single arrival or removal occurrence. Info is set for arrivals
// only; ID is set for both.
type Event struct {
	Type EventType
	Info *DeviceInfo
	ID   DeviceID
}
