//go:build linux

package notify

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/usbwatch/usbwatch/internal/eventloop"
)

const ueventBufferSize = 2048

// NewSystem returns the linux notification subsystem, driven by kernel
// uevent broadcasts over netlink. The scan interval is unused here; the
// kernel pushes notifications.
func NewSystem(_ time.Duration) (System, error) {
	return netlinkSystem{}, nil
}

type netlinkSystem struct{}

// USBDeviceMatching implements System.
func (netlinkSystem) USBDeviceMatching() (Matching, error) {
	return Matching{class: "usb_device"}, nil
}

// NewPort implements System. Each port owns one netlink socket bound to the
// kernel broadcast group and a reader goroutine that classifies uevents into
// the port's registration queues.
func (netlinkSystem) NewPort() (Port, error) {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, unix.NETLINK_KOBJECT_UEVENT)
	if err != nil {
		return nil, fmt.Errorf("netlink socket: %w", err)
	}
	addr := &unix.SockaddrNetlink{Family: unix.AF_NETLINK, Groups: 1}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("bind netlink socket: %w", err)
	}

	// Non-blocking plus os.File puts the socket under the runtime poller,
	// so Destroy's Close unblocks a reader parked in Read.
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("set netlink socket non-blocking: %w", err)
	}

	p := &netlinkPort{
		f:          os.NewFile(uintptr(fd), "netlink"),
		sig:        make(chan struct{}, 1),
		log:        slog.Default().With("component", "notify"),
		known:      make(map[string]DeviceInfo),
		readerDone: make(chan struct{}),
	}
	go p.readLoop()
	return p, nil
}

type netlinkPort struct {
	f   *os.File
	sig chan struct{}
	log *slog.Logger

	mu        sync.Mutex
	regs      []*nlRegistration
	known     map[string]DeviceInfo
	nextID    uint64
	destroyed bool

	readerDone chan struct{}
}

type nlRegistration struct {
	class   NotificationClass
	fn      Callback
	refcon  any
	queue   []*nlService
	pending bool
	it      *nlIterator
}

func (p *netlinkPort) readLoop() {
	defer close(p.readerDone)
	buf := make([]byte, ueventBufferSize)
	for {
		// The runtime poller parks the read and retries EINTR/EAGAIN; any
		// error means Destroy closed the file or the socket failed for good.
		n, err := p.f.Read(buf)
		if err != nil {
			return
		}
		if n <= 0 {
			continue
		}
		p.handleUEvent(parseUEvent(buf[:n]))
	}
}

func (p *netlinkPort) handleUEvent(evt uevent) {
	if !evt.isUSBDevice() {
		return
	}
	name := filepath.Base(evt.devpath)

	switch evt.action {
	case "add":
		// Snapshot the device attributes now; by the time the consumer
		// probes the queued service, sysfs may already be gone again.
		info, ok := probeSysfsDevice(filepath.Join(sysfsUSBPath, name))
		p.mu.Lock()
		if ok {
			p.nextID++
			info.RegistryID = p.nextID
			p.known[name] = info
		}
		p.enqueueLocked(FirstMatch, &nlService{info: info, ok: ok})
		p.mu.Unlock()

	case "remove":
		p.mu.Lock()
		info, ok := p.known[name]
		delete(p.known, name)
		p.enqueueLocked(Terminated, &nlService{info: info, ok: ok})
		p.mu.Unlock()
	}
}

// enqueueLocked appends svc to every registration of the given class and
// arms the port source. Called with p.mu held.
func (p *netlinkPort) enqueueLocked(class NotificationClass, svc *nlService) {
	if p.destroyed {
		return
	}
	signal := false
	for _, reg := range p.regs {
		if reg.class != class {
			continue
		}
		reg.queue = append(reg.queue, svc)
		reg.pending = true
		signal = true
	}
	if signal {
		select {
		case p.sig <- struct{}{}:
		default:
		}
	}
}

// AddMatchingNotification implements Port. A first-match registration is
// preloaded with every device currently visible in sysfs, mirroring how the
// subsystem reports the pre-existing backlog as arrivals.
func (p *netlinkPort) AddMatchingNotification(class NotificationClass, _ Matching, fn Callback, refcon any) (Iterator, error) {
	reg := &nlRegistration{class: class, fn: fn, refcon: refcon}

	p.mu.Lock()
	defer p.mu.Unlock()

	if class == FirstMatch {
		devices, err := scanSysfsDevices()
		if err != nil {
			return nil, fmt.Errorf("scan usb devices: %w", err)
		}
		for _, dev := range devices {
			info := dev.info
			if existing, ok := p.known[dev.name]; ok {
				info.RegistryID = existing.RegistryID
			} else {
				p.nextID++
				info.RegistryID = p.nextID
				p.known[dev.name] = info
			}
			reg.queue = append(reg.queue, &nlService{info: info, ok: true})
		}
	}

	reg.it = &nlIterator{port: p, reg: reg}
	p.regs = append(p.regs, reg)
	return reg.it, nil
}

// Source implements Port.
func (p *netlinkPort) Source() eventloop.Source {
	return (*nlSource)(p)
}

// Destroy implements Port.
func (p *netlinkPort) Destroy() {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return
	}
	p.destroyed = true
	p.mu.Unlock()

	p.f.Close()
	<-p.readerDone
	close(p.sig)
}

type nlSource netlinkPort

func (src *nlSource) Wait() <-chan struct{} { return src.sig }

func (src *nlSource) Dispatch() {
	p := (*netlinkPort)(src)
	p.mu.Lock()
	var fire []*nlRegistration
	for _, reg := range p.regs {
		if reg.pending {
			reg.pending = false
			fire = append(fire, reg)
		}
	}
	destroyed := p.destroyed
	p.mu.Unlock()

	if destroyed {
		return
	}
	for _, reg := range fire {
		reg.fn(reg.refcon, reg.it)
	}
}

type nlIterator struct {
	port     *netlinkPort
	reg      *nlRegistration
	released bool
}

// Next implements Iterator.
func (it *nlIterator) Next() (Service, bool) {
	it.port.mu.Lock()
	defer it.port.mu.Unlock()
	if it.released || len(it.reg.queue) == 0 {
		return nil, false
	}
	svc := it.reg.queue[0]
	it.reg.queue = it.reg.queue[1:]
	return svc, true
}

// Release implements Iterator.
func (it *nlIterator) Release() {
	it.port.mu.Lock()
	defer it.port.mu.Unlock()
	it.released = true
	it.reg.queue = nil
}

// nlService is one queued device service. For removals the snapshot taken at
// arrival time supplies the registry identity; a device never seen attaching
// cannot be identified, and its RegistryID reports failure.
type nlService struct {
	info DeviceInfo
	ok   bool
}

// Probe implements Service.
func (s *nlService) Probe() (*DeviceInfo, bool) {
	if !s.ok {
		return nil, false
	}
	info := s.info
	return &info, true
}

// RegistryID implements Service.
func (s *nlService) RegistryID() (uint64, bool) {
	if !s.ok || s.info.RegistryID == 0 {
		return 0, false
	}
	return s.info.RegistryID, true
}
