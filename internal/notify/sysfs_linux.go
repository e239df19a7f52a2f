//go:build linux

package notify

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const sysfsUSBPath = "/sys/bus/usb/devices"

// sysfsDevice pairs a device's sysfs entry name with its probed attributes.
type sysfsDevice struct {
	name string
	info DeviceInfo
}

// scanSysfsDevices lists the USB devices currently visible in sysfs.
// Entries it cannot probe are skipped.
func scanSysfsDevices() ([]sysfsDevice, error) {
	entries, err := os.ReadDir(sysfsUSBPath)
	if err != nil {
		return nil, err
	}

	var devices []sysfsDevice
	for _, entry := range entries {
		name := entry.Name()
		// Root hub entries look like "usb1"; interface entries like
		// "1-1:1.0". Whole devices are "1-1", "1-1.2", and so on.
		if strings.HasPrefix(name, "usb") || strings.Contains(name, ":") {
			continue
		}
		info, ok := probeSysfsDevice(filepath.Join(sysfsUSBPath, name))
		if !ok {
			continue
		}
		devices = append(devices, sysfsDevice{name: name, info: info})
	}
	return devices, nil
}

// probeSysfsDevice reads a device's attributes from its sysfs directory.
// Bus and device number are required; descriptive attributes are optional.
func probeSysfsDevice(dir string) (DeviceInfo, bool) {
	var info DeviceInfo

	bus, err := sysfsUint(filepath.Join(dir, "busnum"), 10, 8)
	if err != nil {
		return info, false
	}
	addr, err := sysfsUint(filepath.Join(dir, "devnum"), 10, 8)
	if err != nil {
		return info, false
	}
	info.Bus = uint8(bus)
	info.Address = uint8(addr)

	if v, err := sysfsUint(filepath.Join(dir, "idVendor"), 16, 16); err == nil {
		info.VendorID = uint16(v)
	}
	if v, err := sysfsUint(filepath.Join(dir, "idProduct"), 16, 16); err == nil {
		info.ProductID = uint16(v)
	}
	if v, err := sysfsUint(filepath.Join(dir, "bDeviceClass"), 16, 8); err == nil {
		info.DeviceClass = uint8(v)
	}
	if s, err := sysfsString(filepath.Join(dir, "speed")); err == nil {
		info.Speed = s
	}
	if s, err := sysfsString(filepath.Join(dir, "manufacturer")); err == nil {
		info.Manufacturer = s
	}
	if s, err := sysfsString(filepath.Join(dir, "product")); err == nil {
		info.Product = s
	}
	if s, err := sysfsString(filepath.Join(dir, "serial")); err == nil {
		info.SerialNumber = s
	}

	return info, true
}

func sysfsString(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func sysfsUint(path string, base, bits int) (uint64, error) {
	s, err := sysfsString(path)
	if err != nil {
		return 0, err
	}
	if base == 16 {
		s = strings.TrimPrefix(s, "0x")
	}
	return strconv.ParseUint(s, base, bits)
}
