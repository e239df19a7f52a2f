package notify

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeLister serves snapshots tests mutate between scans.
type fakeLister struct {
	mu      sync.Mutex
	devices []ListedDevice
	err     error
}

func (f *fakeLister) list() ([]ListedDevice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]ListedDevice(nil), f.devices...), nil
}

func (f *fakeLister) set(devices ...ListedDevice) {
	f.mu.Lock()
	f.devices = devices
	f.mu.Unlock()
}

func waitForIDs(t *testing.T, it Iterator, want int) []uint64 {
	t.Helper()
	var ids []uint64
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for {
			svc, ok := it.Next()
			if !ok {
				break
			}
			id, ok := svc.RegistryID()
			if !ok {
				t.Fatal("registry id unavailable")
			}
			ids = append(ids, id)
		}
		if len(ids) >= want {
			return ids
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("saw %d notifications, want %d", len(ids), want)
	return nil
}

func TestPollSystem_InitialSnapshotPreloadsBacklog(t *testing.T) {
	lister := &fakeLister{}
	lister.set(ListedDevice{Key: "1-1", Info: DeviceInfo{VendorID: 0x046d}})

	p := newPollSystem(lister.list, time.Hour)
	defer p.Close()

	port, _ := p.NewPort()
	defer port.Destroy()
	matching, _ := p.USBDeviceMatching()
	it, err := port.AddMatchingNotification(FirstMatch, matching, func(any, Iterator) {}, nil)
	if err != nil {
		t.Fatalf("AddMatchingNotification: %v", err)
	}

	svc, ok := it.Next()
	if !ok {
		t.Fatal("device present at startup missing from backlog")
	}
	info, ok := svc.Probe()
	if !ok || info.VendorID != 0x046d {
		t.Fatalf("Probe = %+v, %v", info, ok)
	}
	if info.RegistryID == 0 {
		t.Fatal("registry id not assigned")
	}
}

func TestPollSystem_DiffSynthesizesArrivalsAndRemovals(t *testing.T) {
	lister := &fakeLister{}

	p := newPollSystem(lister.list, 5*time.Millisecond)
	defer p.Close()

	port, _ := p.NewPort()
	defer port.Destroy()
	matching, _ := p.USBDeviceMatching()
	arrived, _ := port.AddMatchingNotification(FirstMatch, matching, func(any, Iterator) {}, nil)
	removed, _ := port.AddMatchingNotification(Terminated, matching, func(any, Iterator) {}, nil)

	lister.set(ListedDevice{Key: "1-2", Info: DeviceInfo{ProductID: 0xc52b}})
	ids := waitForIDs(t, arrived, 1)

	lister.set()
	gone := waitForIDs(t, removed, 1)

	if gone[0] != ids[0] {
		t.Fatalf("removal id = %d, want arrival id %d", gone[0], ids[0])
	}
}

func TestPollSystem_ReattachGetsFreshID(t *testing.T) {
	lister := &fakeLister{}
	dev := ListedDevice{Key: "1-3", Info: DeviceInfo{}}
	lister.set(dev)

	p := newPollSystem(lister.list, 5*time.Millisecond)
	defer p.Close()

	port, _ := p.NewPort()
	defer port.Destroy()
	matching, _ := p.USBDeviceMatching()
	arrived, _ := port.AddMatchingNotification(FirstMatch, matching, func(any, Iterator) {}, nil)
	removed, _ := port.AddMatchingNotification(Terminated, matching, func(any, Iterator) {}, nil)

	first := waitForIDs(t, arrived, 1)
	lister.set()
	waitForIDs(t, removed, 1)
	lister.set(dev)
	second := waitForIDs(t, arrived, 1)

	if second[0] == first[0] {
		t.Fatalf("reattached device reused id %d", first[0])
	}
}

func TestPollSystem_ListerErrorKeepsState(t *testing.T) {
	lister := &fakeLister{}
	lister.set(ListedDevice{Key: "1-4", Info: DeviceInfo{}})

	p := newPollSystem(lister.list, 5*time.Millisecond)
	defer p.Close()

	port, _ := p.NewPort()
	defer port.Destroy()
	matching, _ := p.USBDeviceMatching()
	removed, _ := port.AddMatchingNotification(Terminated, matching, func(any, Iterator) {}, nil)

	// A failed snapshot must not be treated as "all devices gone".
	lister.mu.Lock()
	lister.err = errors.New("transient")
	lister.mu.Unlock()

	time.Sleep(30 * time.Millisecond)
	if _, ok := removed.Next(); ok {
		t.Fatal("snapshot failure produced a spurious removal")
	}
}

func TestPollSystem_CloseStopsScanning(t *testing.T) {
	lister := &fakeLister{}
	p := newPollSystem(lister.list, 5*time.Millisecond)
	p.Close()
	p.Close() // idempotent

	port, _ := p.NewPort()
	defer port.Destroy()
	matching, _ := p.USBDeviceMatching()
	arrived, _ := port.AddMatchingNotification(FirstMatch, matching, func(any, Iterator) {}, nil)

	lister.set(ListedDevice{Key: "1-5", Info: DeviceInfo{}})
	time.Sleep(30 * time.Millisecond)
	if _, ok := arrived.Next(); ok {
		t.Fatal("scan ran after Close")
	}
}
