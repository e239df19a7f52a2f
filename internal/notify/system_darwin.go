//go:build darwin

package notify

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// DefaultScanInterval is how often the darwin subsystem snapshots the USB
// tree when the caller does not specify an interval.
const DefaultScanInterval = time.Second

// NewSystem returns the darwin notification subsystem: a snapshot-diff
// poller over the system profiler's USB tree.
func NewSystem(scanInterval time.Duration) (System, error) {
	if scanInterval <= 0 {
		scanInterval = DefaultScanInterval
	}
	return newPollSystem(listProfilerDevices, scanInterval), nil
}

// profilerItem mirrors one node of `system_profiler SPUSBDataType -json`
// output. Buses and hubs nest devices under _items.
type profilerItem struct {
	Name         string         `json:"_name"`
	Items        []profilerItem `json:"_items"`
	VendorID     string         `json:"vendor_id"`
	ProductID    string         `json:"product_id"`
	LocationID   string         `json:"location_id"`
	Manufacturer string         `json:"manufacturer"`
	SerialNum    string         `json:"serial_num"`
	Speed        string         `json:"device_speed"`
}

type profilerReport struct {
	USB []profilerItem `json:"SPUSBDataType"`
}

// listProfilerDevices snapshots attached USB devices via system_profiler.
func listProfilerDevices() ([]ListedDevice, error) {
	out, err := exec.Command("system_profiler", "SPUSBDataType", "-json").Output()
	if err != nil {
		return nil, fmt.Errorf("system_profiler: %w", err)
	}
	return parseProfilerReport(out)
}

func parseProfilerReport(data []byte) ([]ListedDevice, error) {
	var report profilerReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parse system_profiler output: %w", err)
	}
	var devices []ListedDevice
	for _, bus := range report.USB {
		collectProfilerDevices(bus, &devices)
	}
	return devices, nil
}

func collectProfilerDevices(item profilerItem, out *[]ListedDevice) {
	// Buses and hubs carry no vendor_id of their own; anything with one is
	// a device.
	if item.VendorID != "" {
		*out = append(*out, ListedDevice{
			Key: item.LocationID + "/" + item.SerialNum + "/" + item.Name,
			Info: DeviceInfo{
				VendorID:     parseProfilerHex(item.VendorID),
				ProductID:    parseProfilerHex(item.ProductID),
				Speed:        item.Speed,
				Manufacturer: item.Manufacturer,
				Product:      item.Name,
				SerialNumber: item.SerialNum,
			},
		})
	}
	for _, child := range item.Items {
		collectProfilerDevices(child, out)
	}
}

// parseProfilerHex parses values like "0x046d" or "0x046d  (Logitech Inc.)".
func parseProfilerHex(s string) uint16 {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, ' '); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimPrefix(s, "0x")
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0
	}
	return uint16(v)
}
