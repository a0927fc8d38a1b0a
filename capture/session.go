package capture

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"microwhisper/audio"
	"microwhisper/device"
	"microwhisper/encoder"
	"microwhisper/log"
)

const (
	DefaultMaxDuration   = time.Hour + 100*time.Second
	DefaultMeterInterval = 50 * time.Millisecond
)

type Options struct {
	TempDir       string
	Format        string
	MaxDuration   time.Duration
	MeterInterval time.Duration

	// Emit receives session events. It is called from the caller of
	// Start/Stop and from the meter goroutine, and must not block or call
	// back into the Session.
	Emit func(Event)
	// OnLimit is called when a recording reaches MaxDuration. When nil the
	// session stops itself.
	OnLimit func(Info)
}

// Session owns the recording lifecycle for one input at a time.
type Session struct {
	actx  audio.Context
	avail func() device.Availability
	opts  Options

	mu        sync.Mutex
	state     State
	info      Info
	gen       uint64
	capture   audio.CaptureDevice
	writer    encoder.FileWriter
	restoreID string
	done      chan struct{}
	limit     *time.Timer
	wg        sync.WaitGroup

	power     atomic.Uint64
	writeFail atomic.Bool
}

func New(actx audio.Context, avail func() device.Availability, opts Options) *Session {
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	if opts.Format == "" {
		opts.Format = encoder.FormatFLAC
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = DefaultMaxDuration
	}
	if opts.MeterInterval <= 0 {
		opts.MeterInterval = DefaultMeterInterval
	}
	return &Session{actx: actx, avail: avail, opts: opts}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Current returns the active recording, if any.
func (s *Session) Current() (Info, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info, s.state == Recording
}

func (s *Session) emit(e Event) {
	if s.opts.Emit != nil {
		s.opts.Emit(e)
	}
}

// Start switches the effective input to the source's device, opens a
// capture stream into a new artifact and begins level metering.
func (s *Session) Start(source Source) (Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Idle {
		return Info{}, ErrAlreadyRecording
	}

	a := s.avail()
	target, channels := a.MicrophoneID, 1
	switch source {
	case Microphone:
	case SystemAudio:
		if !a.LoopbackAvailable {
			return Info{}, fmt.Errorf("%w: no %s", ErrSourceUnavailable, source)
		}
		target, channels = a.LoopbackID, 2
	case Both:
		return Info{}, ErrNotImplemented
	default:
		return Info{}, fmt.Errorf("%w: %s", ErrSourceUnavailable, source)
	}

	prev, err := s.actx.DefaultInput()
	if err != nil {
		log.Warnf("read default input: %v", err)
		prev = a.DefaultInputID
	}

	path := filepath.Join(s.opts.TempDir, "recording-"+uuid.NewString()+encoder.Extension(s.opts.Format))
	w, err := encoder.NewFile(s.opts.Format, path, channels)
	if err != nil {
		return Info{}, err
	}

	restoreID := ""
	if target != "" && target != prev {
		if err := s.actx.SetDefaultInput(target); err != nil {
			discard(w)
			return Info{}, fmt.Errorf("%w: %v", ErrDeviceSwitchFailed, err)
		}
		restoreID = prev
	}

	fail := func(err error) (Info, error) {
		discard(w)
		s.restore(restoreID)
		return Info{}, err
	}

	dev, err := s.actx.NewCapture(nil, audio.CaptureConfig{SampleRate: audio.SampleRate, Channels: uint32(channels)})
	if err != nil {
		return fail(fmt.Errorf("open capture: %w", err))
	}

	s.power.Store(math.Float64bits(audio.SilenceDB))
	s.writeFail.Store(false)
	dev.SetCallback(func(data []byte, _ uint32) {
		samples := make([]int16, len(data)/2)
		for i := range samples {
			samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
		}
		if err := w.Write(samples); err != nil && !s.writeFail.Swap(true) {
			log.Errorf("artifact write: %v", err)
		}
		s.power.Store(math.Float64bits(audio.PowerDB(data)))
	})
	if err := dev.Start(); err != nil {
		dev.ClearCallback()
		dev.Close()
		return fail(fmt.Errorf("start capture: %w", err))
	}

	s.gen++
	s.state = Recording
	s.info = Info{Source: source, ArtifactPath: path, StartedAt: time.Now()}
	s.capture = dev
	s.writer = w
	s.restoreID = restoreID
	s.done = make(chan struct{})

	s.wg.Add(1)
	go s.meter(s.done)

	gen := s.gen
	s.limit = time.AfterFunc(s.opts.MaxDuration, func() { s.limitReached(gen) })

	log.RecordingStarted(source.String(), path)
	s.emit(Event{Kind: EventStarted, Info: s.info})
	return s.info, nil
}

// Stop halts capture, finalizes the artifact and restores the previous
// default input. No level event is emitted after Stop returns.
func (s *Session) Stop() (Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked()
}

func (s *Session) stopLocked() (Artifact, error) {
	if s.state != Recording {
		return Artifact{}, ErrNotRecording
	}
	s.state = Stopping

	s.limit.Stop()
	s.capture.Stop()
	s.capture.ClearCallback()
	s.capture.Close()

	close(s.done)
	s.wg.Wait()

	if err := s.writer.Close(); err != nil {
		log.Errorf("finalize artifact %s: %v", s.info.ArtifactPath, err)
	}
	s.restore(s.restoreID)

	frames := s.writer.Frames()
	art := Artifact{
		Path:     s.info.ArtifactPath,
		Source:   s.info.Source,
		Frames:   frames,
		Duration: time.Duration(frames) * time.Second / audio.SampleRate,
	}
	log.RecordingStopped(art.Source.String(), art.Path, art.Duration, art.Frames)

	info := s.info
	s.state = Idle
	s.info = Info{}
	s.capture = nil
	s.writer = nil
	s.restoreID = ""
	s.limit = nil

	s.emit(Event{Kind: EventStopped, Info: info, Artifact: art})
	return art, nil
}

func (s *Session) meter(done <-chan struct{}) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.opts.MeterInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			select {
			case <-done:
				return
			default:
			}
			db := math.Float64frombits(s.power.Load())
			s.emit(Event{Kind: EventLevel, Level: audio.Level(db)})
		}
	}
}

func (s *Session) limitReached(gen uint64) {
	s.mu.Lock()
	if s.gen != gen || s.state != Recording {
		s.mu.Unlock()
		return
	}
	log.Warnf("recording reached max duration %s", s.opts.MaxDuration)
	if s.opts.OnLimit == nil {
		defer s.mu.Unlock()
		if _, err := s.stopLocked(); err != nil {
			log.Warnf("stop at limit: %v", err)
		}
		return
	}
	info := s.info
	s.mu.Unlock()
	s.opts.OnLimit(info)
}

// restore switches the effective input back; failures are only logged.
func (s *Session) restore(id string) {
	if id == "" {
		return
	}
	if err := s.actx.SetDefaultInput(id); err != nil {
		log.Warnf("%v: restore %s: %v", ErrDeviceSwitchFailed, id, err)
	}
}

func discard(w encoder.FileWriter) {
	w.Close()
	if err := os.Remove(w.Path()); err != nil && !os.IsNotExist(err) {
		log.Warnf("remove artifact %s: %v", w.Path(), err)
	}
}
