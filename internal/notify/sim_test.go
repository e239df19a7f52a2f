package notify

import (
	"errors"
	"testing"
)

func drainIDs(t *testing.T, it Iterator) []uint64 {
	t.Helper()
	var ids []uint64
	for {
		svc, ok := it.Next()
		if !ok {
			return ids
		}
		id, ok := svc.RegistryID()
		if !ok {
			t.Fatal("registry id unavailable")
		}
		ids = append(ids, id)
	}
}

func TestSim_FirstMatchPreloadsAttached(t *testing.T) {
	sim := NewSim()
	sim.Attach(DeviceInfo{RegistryID: 1})
	sim.Attach(DeviceInfo{RegistryID: 2})

	port, err := sim.NewPort()
	if err != nil {
		t.Fatalf("NewPort: %v", err)
	}
	defer port.Destroy()

	matching, err := sim.USBDeviceMatching()
	if err != nil {
		t.Fatalf("USBDeviceMatching: %v", err)
	}

	it, err := port.AddMatchingNotification(FirstMatch, matching, func(any, Iterator) {}, nil)
	if err != nil {
		t.Fatalf("AddMatchingNotification: %v", err)
	}

	ids := drainIDs(t, it)
	if len(ids) != 2 {
		t.Fatalf("preloaded backlog has %d devices, want 2", len(ids))
	}
}

func TestSim_DetachQueuesTermination(t *testing.T) {
	sim := NewSim()
	port, _ := sim.NewPort()
	defer port.Destroy()
	matching, _ := sim.USBDeviceMatching()

	term, err := port.AddMatchingNotification(Terminated, matching, func(any, Iterator) {}, nil)
	if err != nil {
		t.Fatalf("AddMatchingNotification: %v", err)
	}

	sim.Attach(DeviceInfo{RegistryID: 7})
	sim.Detach(7)
	sim.Detach(7) // second detach of an absent device is ignored

	ids := drainIDs(t, term)
	if len(ids) != 1 || ids[0] != 7 {
		t.Fatalf("termination queue = %v, want [7]", ids)
	}
}

func TestSim_ReleasedIteratorYieldsNothing(t *testing.T) {
	sim := NewSim()
	sim.Attach(DeviceInfo{RegistryID: 1})

	port, _ := sim.NewPort()
	defer port.Destroy()
	matching, _ := sim.USBDeviceMatching()

	it, _ := port.AddMatchingNotification(FirstMatch, matching, func(any, Iterator) {}, nil)
	it.Release()

	if _, ok := it.Next(); ok {
		t.Fatal("released iterator yielded a service")
	}
}

func TestSim_InjectedErrors(t *testing.T) {
	sim := NewSim()
	boom := errors.New("boom")

	sim.SetMatchingError(boom)
	if _, err := sim.USBDeviceMatching(); !errors.Is(err, boom) {
		t.Fatalf("USBDeviceMatching err = %v, want boom", err)
	}
	sim.SetMatchingError(nil)

	sim.SetRegisterError(boom)
	port, _ := sim.NewPort()
	defer port.Destroy()
	matching, _ := sim.USBDeviceMatching()
	if _, err := port.AddMatchingNotification(FirstMatch, matching, func(any, Iterator) {}, nil); !errors.Is(err, boom) {
		t.Fatalf("AddMatchingNotification err = %v, want boom", err)
	}
}

func TestSim_DestroyedPortStopsDispatch(t *testing.T) {
	sim := NewSim()
	port, _ := sim.NewPort()
	matching, _ := sim.USBDeviceMatching()

	fired := 0
	if _, err := port.AddMatchingNotification(FirstMatch, matching, func(any, Iterator) { fired++ }, nil); err != nil {
		t.Fatalf("AddMatchingNotification: %v", err)
	}

	src := port.Source()
	port.Destroy()
	port.Destroy() // idempotent

	sim.Attach(DeviceInfo{RegistryID: 1})
	src.Dispatch()
	if fired != 0 {
		t.Fatalf("callback fired %d times after Destroy, want 0", fired)
	}

	// Wait's channel is closed, so the event loop can retire the source.
	if _, ok := <-src.Wait(); ok {
		t.Fatal("signal channel still open after Destroy")
	}
}

func TestSim_FailProbe(t *testing.T) {
	sim := NewSim()
	sim.Attach(DeviceInfo{RegistryID: 3, VendorID: 0x046d})
	sim.FailProbe(3, true)

	port, _ := sim.NewPort()
	defer port.Destroy()
	matching, _ := sim.USBDeviceMatching()
	it, _ := port.AddMatchingNotification(FirstMatch, matching, func(any, Iterator) {}, nil)

	svc, ok := it.Next()
	if !ok {
		t.Fatal("expected a preloaded service")
	}
	if _, ok := svc.Probe(); ok {
		t.Fatal("Probe succeeded despite injected failure")
	}

	sim.FailProbe(3, false)
	info, ok := svc.Probe()
	if !ok || info.VendorID != 0x046d {
		t.Fatalf("Probe after clearing failure = %+v, %v", info, ok)
	}
}
