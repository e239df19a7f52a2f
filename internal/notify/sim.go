package notify

import (
	"sync"

	"github.com/usbwatch/usbwatch/internal/eventloop"
)

// Sim is an in-memory notification subsystem. It reproduces the native
// contract faithfully enough to exercise the watch backend end to end:
// first-match registrations are preloaded with the already-attached backlog,
// queues are drained pull-style, and callbacks fire on the event-loop
// goroutine via the port's source. Tests drive it with Attach and Detach and
// can inject per-device probe and registry-id failures.
type Sim struct {
	mu          sync.Mutex
	devices     map[uint64]*simDevice
	ports       []*simPort
	matchingErr error
	registerErr error
}

type simDevice struct {
	info           DeviceInfo
	attached       bool
	failProbe      bool
	failRegistryID bool
}

// NewSim creates an empty simulated subsystem.
func NewSim() *Sim {
	return &Sim{devices: make(map[uint64]*simDevice)}
}

// SetMatchingError makes USBDeviceMatching fail with err.
func (s *Sim) SetMatchingError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matchingErr = err
}

// SetRegisterError makes every AddMatchingNotification fail with err.
func (s *Sim) SetRegisterError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registerErr = err
}

// Attach plugs in a device. Its RegistryID keys later Detach and failure
// injection. First-match registrations are notified; registrations made
// after Attach see the device in their preloaded backlog.
func (s *Sim) Attach(info DeviceInfo) {
	s.mu.Lock()
	dev := &simDevice{info: info, attached: true}
	s.devices[info.RegistryID] = dev
	s.enqueueLocked(FirstMatch, dev)
	s.mu.Unlock()
}

// Detach unplugs the device with the given registry id.
func (s *Sim) Detach(registryID uint64) {
	s.mu.Lock()
	dev, ok := s.devices[registryID]
	if ok && dev.attached {
		dev.attached = false
		s.enqueueLocked(Terminated, dev)
	}
	s.mu.Unlock()
}

// FailProbe makes Probe fail for the device with the given registry id.
func (s *Sim) FailProbe(registryID uint64, fail bool) {
	s.mu.Lock()
	if dev, ok := s.devices[registryID]; ok {
		dev.failProbe = fail
	}
	s.mu.Unlock()
}

// FailRegistryID makes RegistryID fail for the device with the given
// registry id.
func (s *Sim) FailRegistryID(registryID uint64, fail bool) {
	s.mu.Lock()
	if dev, ok := s.devices[registryID]; ok {
		dev.failRegistryID = fail
	}
	s.mu.Unlock()
}

// enqueueLocked appends dev to every live registration of the given class
// and signals the owning ports.
func (s *Sim) enqueueLocked(class NotificationClass, dev *simDevice) {
	for _, p := range s.ports {
		if p.destroyed {
			continue
		}
		signal := false
		for _, reg := range p.regs {
			if reg.class != class {
				continue
			}
			reg.queue = append(reg.queue, &simService{sim: s, dev: dev})
			reg.pending = true
			signal = true
		}
		if signal {
			p.signalLocked()
		}
	}
}

// USBDeviceMatching implements System.
func (s *Sim) USBDeviceMatching() (Matching, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.matchingErr != nil {
		return Matching{}, s.matchingErr
	}
	return Matching{class: "usb-device"}, nil
}

// NewPort implements System.
func (s *Sim) NewPort() (Port, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &simPort{sim: s, sig: make(chan struct{}, 1)}
	s.ports = append(s.ports, p)
	return p, nil
}

type simPort struct {
	sim       *Sim
	sig       chan struct{}
	regs      []*simRegistration
	destroyed bool
}

type simRegistration struct {
	class   NotificationClass
	fn      Callback
	refcon  any
	queue   []*simService
	pending bool
	it      *simIterator
}

// signalLocked arms the port's run-loop source. Called with sim.mu held.
func (p *simPort) signalLocked() {
	if p.destroyed {
		return
	}
	select {
	case p.sig <- struct{}{}:
	default:
	}
}

// AddMatchingNotification implements Port. First-match registrations start
// with every currently attached device already queued, mirroring how the
// native subsystem reports the pre-existing backlog as arrivals.
func (p *simPort) AddMatchingNotification(class NotificationClass, _ Matching, fn Callback, refcon any) (Iterator, error) {
	p.sim.mu.Lock()
	defer p.sim.mu.Unlock()
	if p.sim.registerErr != nil {
		return nil, p.sim.registerErr
	}
	reg := &simRegistration{class: class, fn: fn, refcon: refcon}
	if class == FirstMatch {
		for _, dev := range p.sim.devices {
			if dev.attached {
				reg.queue = append(reg.queue, &simService{sim: p.sim, dev: dev})
			}
		}
	}
	reg.it = &simIterator{sim: p.sim, reg: reg}
	p.regs = append(p.regs, reg)
	return reg.it, nil
}

// Source implements Port.
func (p *simPort) Source() eventloop.Source {
	return (*simSource)(p)
}

// Destroy implements Port.
func (p *simPort) Destroy() {
	p.sim.mu.Lock()
	if p.destroyed {
		p.sim.mu.Unlock()
		return
	}
	p.destroyed = true
	sig := p.sig
	p.sim.mu.Unlock()
	close(sig)
}

// simSource adapts a port to the event loop.
type simSource simPort

func (src *simSource) Wait() <-chan struct{} { return src.sig }

// Dispatch fires the callback of every registration whose queue gained
// entries since the last dispatch. Callbacks run outside the subsystem lock.
func (src *simSource) Dispatch() {
	p := (*simPort)(src)
	p.sim.mu.Lock()
	var fire []*simRegistration
	for _, reg := range p.regs {
		if reg.pending {
			reg.pending = false
			fire = append(fire, reg)
		}
	}
	destroyed := p.destroyed
	p.sim.mu.Unlock()

	if destroyed {
		return
	}
	for _, reg := range fire {
		reg.fn(reg.refcon, reg.it)
	}
}

type simIterator struct {
	sim      *Sim
	reg      *simRegistration
	released bool
}

// Next implements Iterator.
func (it *simIterator) Next() (Service, bool) {
	it.sim.mu.Lock()
	defer it.sim.mu.Unlock()
	if it.released || len(it.reg.queue) == 0 {
		return nil, false
	}
	svc := it.reg.queue[0]
	it.reg.queue = it.reg.queue[1:]
	return svc, true
}

// Release implements Iterator.
func (it *simIterator) Release() {
	it.sim.mu.Lock()
	defer it.sim.mu.Unlock()
	it.released = true
	it.reg.queue = nil
}

type simService struct {
	sim *Sim
	dev *simDevice
}

// Probe implements Service.
func (svc *simService) Probe() (*DeviceInfo, bool) {
	svc.sim.mu.Lock()
	defer svc.sim.mu.Unlock()
	if svc.dev.failProbe {
		return nil, false
	}
	info := svc.dev.info
	return &info, true
}

// RegistryID implements Service.
func (svc *simService) RegistryID() (uint64, bool) {
	svc.sim.mu.Lock()
	defer svc.sim.mu.Unlock()
	if svc.dev.failRegistryID {
		return 0, false
	}
	return svc.dev.info.RegistryID, true
}
