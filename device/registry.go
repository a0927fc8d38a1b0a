// Package device tracks which input sources can currently be recorded.
package device

import (
	"context"
	"sync"

	"microwhisper/audio"
	"microwhisper/log"
)

// Lister is the read side of audio.Context.
type Lister interface {
	Devices() ([]audio.DeviceInfo, error)
	DefaultInput() (string, error)
}

type Availability struct {
	// MicrophoneAvailable is always true: recording from whatever input the
	// system considers default is always offered.
	MicrophoneAvailable bool
	LoopbackAvailable   bool

	DefaultInputID string
	// MicrophoneID is the endpoint used for microphone recordings. It equals
	// DefaultInputID unless the default is itself the loopback device, in
	// which case the first other input is used.
	MicrophoneID string
	LoopbackID   string
	LoopbackName string
}

type handler struct {
	id int
	fn func(Availability)
}

type Registry struct {
	lister Lister
	marker string

	mu       sync.Mutex
	current  Availability
	handlers []handler
	nextID   int
}

func New(lister Lister, marker string) *Registry {
	return &Registry{
		lister:  lister,
		marker:  marker,
		current: Availability{MicrophoneAvailable: true},
	}
}

func (r *Registry) Marker() string {
	return r.marker
}

// Enumerate re-reads the device list and stores the result. Failures
// degrade to microphone-only availability.
func (r *Registry) Enumerate() Availability {
	a := r.enumerate()
	r.mu.Lock()
	r.current = a
	r.mu.Unlock()
	return a
}

func (r *Registry) enumerate() Availability {
	a := Availability{MicrophoneAvailable: true}

	devices, err := r.lister.Devices()
	if err != nil {
		log.Warnf("device enumeration failed: %v", err)
		return a
	}

	if lb, ok := audio.FindDevice(devices, r.marker); ok {
		a.LoopbackAvailable = true
		a.LoopbackID = lb.ID
		a.LoopbackName = lb.Name
	}

	def, err := r.lister.DefaultInput()
	if err != nil {
		log.Warnf("default input lookup failed: %v", err)
	}
	a.DefaultInputID = def
	a.MicrophoneID = def
	if a.LoopbackAvailable && def == a.LoopbackID {
		a.MicrophoneID = ""
		for _, d := range devices {
			if d.ID != a.LoopbackID && !d.Matches(r.marker) {
				a.MicrophoneID = d.ID
				break
			}
		}
	}
	return a
}

// Availability returns the last enumerated snapshot.
func (r *Registry) Availability() Availability {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// OnTopologyChange registers fn to receive availability after every
// topology change. The returned func unregisters it.
func (r *Registry) OnTopologyChange(fn func(Availability)) (cancel func()) {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.handlers = append(r.handlers, handler{id: id, fn: fn})
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, h := range r.handlers {
			if h.id == id {
				r.handlers = append(r.handlers[:i], r.handlers[i+1:]...)
				return
			}
		}
	}
}

// Changed re-enumerates and pushes the result to every handler.
func (r *Registry) Changed() Availability {
	a := r.Enumerate()
	log.Availability(a.LoopbackAvailable, a.LoopbackName, a.DefaultInputID)

	r.mu.Lock()
	hs := make([]handler, len(r.handlers))
	copy(hs, r.handlers)
	r.mu.Unlock()

	for _, h := range hs {
		h.fn(a)
	}
	return a
}

// Watch calls Changed for every value received on changes until ctx is
// done or changes is closed.
func (r *Registry) Watch(ctx context.Context, changes <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			r.Changed()
		}
	}
}
