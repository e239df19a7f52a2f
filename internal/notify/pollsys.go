package notify

import (
	"log/slog"
	"sync"
	"time"
)

// ListedDevice is one device reported by a platform snapshot. Key must be
// stable for as long as the device stays attached; it is how consecutive
// snapshots are correlated.
type ListedDevice struct {
	Key  string
	Info DeviceInfo
}

// Lister takes a snapshot of the currently attached devices.
type Lister func() ([]ListedDevice, error)

// pollSystem implements System on platforms without a kernel notification
// feed. A ticker-driven goroutine diffs consecutive snapshots and synthesizes
// arrival and termination notifications; the in-memory queue and callback
// machinery of Sim does the rest. Registry identifiers are session-stable
// sequence numbers assigned per attachment.
type pollSystem struct {
	mem      *Sim
	lister   Lister
	interval time.Duration
	log      *slog.Logger

	mu     sync.Mutex
	known  map[string]uint64
	nextID uint64

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func newPollSystem(lister Lister, interval time.Duration) *pollSystem {
	p := &pollSystem{
		mem:      NewSim(),
		lister:   lister,
		interval: interval,
		log:      slog.Default().With("component", "notify"),
		known:    make(map[string]uint64),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	// Devices present before the first registration must appear in its
	// preloaded backlog, so the first snapshot is taken synchronously.
	p.scan()
	go p.run()
	return p
}

func (p *pollSystem) run() {
	defer close(p.done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.scan()
		}
	}
}

func (p *pollSystem) scan() {
	listed, err := p.lister()
	if err != nil {
		p.log.Debug("device snapshot failed", "error", err)
		return
	}

	current := make(map[string]DeviceInfo, len(listed))
	for _, d := range listed {
		current[d.Key] = d.Info
	}

	p.mu.Lock()
	var attached []DeviceInfo
	var detached []uint64
	for key, id := range p.known {
		if _, ok := current[key]; !ok {
			delete(p.known, key)
			detached = append(detached, id)
		}
	}
	for key, info := range current {
		if _, ok := p.known[key]; ok {
			continue
		}
		p.nextID++
		info.RegistryID = p.nextID
		p.known[key] = p.nextID
		attached = append(attached, info)
	}
	p.mu.Unlock()

	for _, id := range detached {
		p.mem.Detach(id)
	}
	for _, info := range attached {
		p.mem.Attach(info)
	}
}

// USBDeviceMatching implements System.
func (p *pollSystem) USBDeviceMatching() (Matching, error) {
	return p.mem.USBDeviceMatching()
}

// NewPort implements System.
func (p *pollSystem) NewPort() (Port, error) {
	return p.mem.NewPort()
}

// Close stops the snapshot goroutine.
func (p *pollSystem) Close() {
	p.stopOnce.Do(func() {
		close(p.stop)
		<-p.done
	})
}
