package audio

import (
	"os"
	"slices"
	"sync"
	"time"
)

const fakeFrameSize = 1024

// FakeContext is an in-memory Context. It plays back a fixed PCM buffer
// into every capture and records default-input switches.
type FakeContext struct {
	mu        sync.Mutex
	devices   []DeviceInfo
	defaultID string
	pcm       []byte
	realtime  bool
	switches  []string
	captures  []*FakeCapture

	DevicesErr    error
	DefaultErr    error
	SetDefaultErr error
	CaptureErr    error
	StartErr      error
}

func NewFakeContext(devices []DeviceInfo, defaultID string) *FakeContext {
	return &FakeContext{devices: slices.Clone(devices), defaultID: defaultID}
}

// NewFakeContextFromWAV feeds the samples of a 16 kHz mono WAV file. With
// realtime set the samples are paced at the capture rate.
func NewFakeContextFromWAV(wavPath string, realtime bool) (*FakeContext, error) {
	data, err := os.ReadFile(wavPath)
	if err != nil {
		return nil, err
	}
	if len(data) > WAVHeaderSize {
		data = data[WAVHeaderSize:]
	}
	f := NewFakeContext([]DeviceInfo{{ID: "fake-mic", Name: "Fake Microphone"}}, "fake-mic")
	f.pcm = data
	f.realtime = realtime
	return f, nil
}

func (f *FakeContext) SetPCM(pcm []byte) {
	f.mu.Lock()
	f.pcm = pcm
	f.mu.Unlock()
}

// SetDevices replaces the device list, as if hardware was plugged or
// unplugged.
func (f *FakeContext) SetDevices(devices []DeviceInfo) {
	f.mu.Lock()
	f.devices = slices.Clone(devices)
	f.mu.Unlock()
}

// Switches returns every ID passed to SetDefaultInput, in order.
func (f *FakeContext) Switches() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.switches)
}

func (f *FakeContext) Captures() []*FakeCapture {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.captures)
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DevicesErr != nil {
		return nil, f.DevicesErr
	}
	return slices.Clone(f.devices), nil
}

func (f *FakeContext) DefaultInput() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DefaultErr != nil {
		return "", f.DefaultErr
	}
	return f.defaultID, nil
}

func (f *FakeContext) SetDefaultInput(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetDefaultErr != nil {
		return f.SetDefaultErr
	}
	f.switches = append(f.switches, id)
	f.defaultID = id
	return nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CaptureErr != nil {
		return nil, f.CaptureErr
	}
	name := f.defaultID
	if device != nil {
		name = device.Name
	}
	c := &FakeCapture{
		name:      name,
		config:    config,
		pcm:       f.pcm,
		realtime:  f.realtime,
		startErr:  f.StartErr,
		audioDone: make(chan struct{}),
	}
	f.captures = append(f.captures, c)
	return c, nil
}

type FakeCapture struct {
	name      string
	config    CaptureConfig
	pcm       []byte
	realtime  bool
	startErr  error
	audioDone chan struct{}

	mu       sync.Mutex
	cb       DataCallback
	started  bool
	stopped  bool
	stopCh   chan struct{}
	feedDone chan struct{}
}

// AudioDone is closed once the whole PCM buffer has been delivered.
func (f *FakeCapture) AudioDone() <-chan struct{} { return f.audioDone }

func (f *FakeCapture) Config() CaptureConfig { return f.config }

func (f *FakeCapture) Stopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) DeviceName() string { return f.name }

func (f *FakeCapture) Start() error {
	if f.startErr != nil {
		return f.startErr
	}
	f.mu.Lock()
	f.started = true
	f.stopCh = make(chan struct{})
	f.feedDone = make(chan struct{})
	f.mu.Unlock()

	channels := max(int(f.config.Channels), 1)
	frameBytes := 2 * channels
	chunkBytes := fakeFrameSize * frameBytes
	interval := time.Millisecond
	if f.realtime {
		interval = time.Duration(fakeFrameSize) * time.Second / time.Duration(SampleRate)
	}

	go func() {
		defer close(f.feedDone)
		pos := 0
		silence := make([]byte, chunkBytes)
		finished := false
		for {
			select {
			case <-f.stopCh:
				return
			case <-time.After(interval):
			}

			f.mu.Lock()
			cb := f.cb
			f.mu.Unlock()
			if cb == nil {
				continue
			}

			if pos < len(f.pcm) {
				end := min(pos+chunkBytes, len(f.pcm))
				end -= (end - pos) % frameBytes
				if end <= pos {
					pos = len(f.pcm)
					continue
				}
				chunk := make([]byte, end-pos)
				copy(chunk, f.pcm[pos:end])
				cb(chunk, uint32(len(chunk)/frameBytes))
				pos = end
				continue
			}
			if !finished {
				finished = true
				close(f.audioDone)
			}
			cb(silence, fakeFrameSize)
		}
	}()
	return nil
}

func (f *FakeCapture) Stop() {
	f.mu.Lock()
	if !f.started || f.stopped {
		f.mu.Unlock()
		return
	}
	f.stopped = true
	close(f.stopCh)
	f.mu.Unlock()
	<-f.feedDone
}

func (f *FakeCapture) Close() {}
