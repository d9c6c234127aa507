package collector

import (
	"context"
	"sync"

	"codeberg.org/mutker/apollo-exporter/internal/apollo"
)

// Prober fetches a snapshot of one device.
type Prober interface {
	Probe(ctx context.Context, dev apollo.Device) (*apollo.Snapshot, error)
}

type entry struct {
	device apollo.Device
	prober Prober
}

// Registry maps device hosts to their probers. Entries are returned in
// registration order.
type Registry struct {
	mu      sync.Mutex
	order   []string
	entries map[string]entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register adds a device, replacing any earlier entry for the same host.
func (r *Registry) Register(dev apollo.Device, p Prober) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[dev.Host]; !ok {
		r.order = append(r.order, dev.Host)
	}
	r.entries[dev.Host] = entry{device: dev, prober: p}
}

// Len returns the number of registered devices.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.order)
}

// Devices returns the registered devices in registration order.
func (r *Registry) Devices() []apollo.Device {
	entries := r.snapshot()

	devices := make([]apollo.Device, len(entries))
	for i, e := range entries {
		devices[i] = e.device
	}
	return devices
}

// snapshot copies the entries so callers can iterate without the lock.
func (r *Registry) snapshot() []entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := make([]entry, 0, len(r.order))
	for _, host := range r.order {
		entries = append(entries, r.entries[host])
	}
	return entries
}
