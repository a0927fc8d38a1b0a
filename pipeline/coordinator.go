// Package pipeline ties device availability, recording and transcription
// together behind a single control loop.
package pipeline

import (
	"context"
	"errors"
	"os"

	"github.com/google/uuid"

	"microwhisper/capture"
	"microwhisper/device"
	"microwhisper/log"
	"microwhisper/transcriber"
)

// ErrClosed is returned by calls made after Run has returned.
var ErrClosed = errors.New("pipeline closed")

// Recorder is the capture side, satisfied by *capture.Session.
type Recorder interface {
	Start(source capture.Source) (capture.Info, error)
	Stop() (capture.Artifact, error)
}

// Transcriber is satisfied by *transcriber.Job.
type Transcriber interface {
	Run(ctx context.Context, req transcriber.Request) <-chan transcriber.Result
}

// Devices is satisfied by *device.Registry.
type Devices interface {
	Availability() device.Availability
	OnTopologyChange(fn func(device.Availability)) (cancel func())
}

// RecorderFactory builds the recorder with hooks that route capture
// events into the coordinator.
type RecorderFactory func(hooks capture.Options) Recorder

type Options struct {
	Source capture.Source
	// Request customizes the transcription request for an artifact.
	Request func(art capture.Artifact) transcriber.Request
}

type Status struct {
	Source       capture.Source
	Recording    bool
	Availability device.Availability
	JobActive    bool
	Queued       int
}

type requestKind int

const (
	reqToggle requestKind = iota
	reqStart
	reqStop
	reqSetSource
	reqStatus
)

type request struct {
	kind   requestKind
	source capture.Source
	reply  chan reply
}

type reply struct {
	err    error
	ok     bool
	status Status
}

type Coordinator struct {
	rec  Recorder
	tr   Transcriber
	devs Devices
	opts Options
	bus  *Bus

	reqs    chan request
	availCh chan device.Availability
	limitCh chan capture.Info
	done    chan struct{}

	// Owned by the Run goroutine.
	source     capture.Source
	avail      device.Availability
	recording  bool
	current    capture.Info
	queue      []capture.Artifact
	jobID      string
	jobResults <-chan transcriber.Result
}

func New(devs Devices, newRecorder RecorderFactory, tr Transcriber, opts Options) *Coordinator {
	c := &Coordinator{
		tr:      tr,
		devs:    devs,
		opts:    opts,
		bus:     NewBus(),
		reqs:    make(chan request),
		availCh: make(chan device.Availability, 8),
		limitCh: make(chan capture.Info, 1),
		done:    make(chan struct{}),
		source:  opts.Source,
	}
	c.rec = newRecorder(capture.Options{Emit: c.captureEvent, OnLimit: c.limitReached})
	return c
}

// Subscribe returns the outward event stream.
func (c *Coordinator) Subscribe(buffer int) (<-chan Event, func()) {
	return c.bus.Subscribe(buffer)
}

// Run owns every state transition until ctx is done. An active recording
// is stopped and its artifact discarded on exit.
func (c *Coordinator) Run(ctx context.Context) error {
	defer c.bus.Close()
	defer close(c.done)

	cancelTopo := c.devs.OnTopologyChange(func(a device.Availability) {
		select {
		case c.availCh <- a:
		case <-c.done:
		}
	})
	defer cancelTopo()

	c.avail = c.devs.Availability()
	if c.source == capture.SystemAudio && !c.avail.LoopbackAvailable {
		c.source = capture.Microphone
	}
	c.publish(Event{Kind: SourceAvailabilityChanged, Availability: c.avail, Source: c.source})

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return ctx.Err()
		case r := <-c.reqs:
			r.reply <- c.handle(ctx, r)
		case a := <-c.availCh:
			c.setAvailability(a)
		case info := <-c.limitCh:
			if c.recording && info.ArtifactPath == c.current.ArtifactPath {
				log.Info("recording limit reached, stopping")
				c.stop(ctx)
			}
		case res, ok := <-c.jobResults:
			c.jobResult(ctx, res, ok)
		}
	}
}

func (c *Coordinator) call(r request) reply {
	r.reply = make(chan reply, 1)
	select {
	case c.reqs <- r:
	case <-c.done:
		return reply{err: ErrClosed}
	}
	return <-r.reply
}

// Toggle stops an active recording or starts one from the selected source.
func (c *Coordinator) Toggle() error {
	return c.call(request{kind: reqToggle}).err
}

func (c *Coordinator) Start() error {
	return c.call(request{kind: reqStart}).err
}

func (c *Coordinator) Stop() error {
	return c.call(request{kind: reqStop}).err
}

// SetSource selects the source for the next recording. It reports false
// when the change was ignored: while recording, or when asking for system
// audio without a loopback device.
func (c *Coordinator) SetSource(s capture.Source) bool {
	return c.call(request{kind: reqSetSource, source: s}).ok
}

func (c *Coordinator) Status() (Status, error) {
	r := c.call(request{kind: reqStatus})
	return r.status, r.err
}

func (c *Coordinator) Source() capture.Source {
	st, _ := c.Status()
	return st.Source
}

func (c *Coordinator) IsRecording() bool {
	st, _ := c.Status()
	return st.Recording
}

func (c *Coordinator) handle(ctx context.Context, r request) reply {
	switch r.kind {
	case reqToggle:
		if c.recording {
			return reply{err: c.stop(ctx)}
		}
		return reply{err: c.start()}
	case reqStart:
		return reply{err: c.start()}
	case reqStop:
		return reply{err: c.stop(ctx)}
	case reqSetSource:
		return reply{ok: c.setSource(r.source)}
	case reqStatus:
		return reply{status: c.status()}
	}
	return reply{}
}

func (c *Coordinator) status() Status {
	return Status{
		Source:       c.source,
		Recording:    c.recording,
		Availability: c.avail,
		JobActive:    c.jobResults != nil,
		Queued:       len(c.queue),
	}
}

func (c *Coordinator) start() error {
	info, err := c.rec.Start(c.source)
	if err != nil {
		log.Warnf("start %s recording: %v", c.source, err)
		return err
	}
	c.recording = true
	c.current = info
	return nil
}

func (c *Coordinator) stop(ctx context.Context) error {
	art, err := c.rec.Stop()
	if err != nil {
		return err
	}
	c.recording = false
	c.current = capture.Info{}
	if c.source == capture.SystemAudio && !c.avail.LoopbackAvailable {
		c.source = capture.Microphone
	}
	c.queue = append(c.queue, art)
	c.nextJob(ctx)
	return nil
}

func (c *Coordinator) setSource(s capture.Source) bool {
	if c.recording {
		return false
	}
	if s == capture.SystemAudio && !c.avail.LoopbackAvailable {
		return false
	}
	if s != c.source {
		c.source = s
		c.publish(Event{Kind: SourceAvailabilityChanged, Availability: c.avail, Source: c.source})
	}
	return true
}

func (c *Coordinator) setAvailability(a device.Availability) {
	changed := a != c.avail
	c.avail = a
	if !a.LoopbackAvailable && c.source == capture.SystemAudio && !c.recording {
		log.Info("loopback device gone, falling back to microphone")
		c.source = capture.Microphone
		changed = true
	}
	if changed {
		c.publish(Event{Kind: SourceAvailabilityChanged, Availability: a, Source: c.source})
	}
}

// nextJob starts transcribing the oldest queued artifact when no job is
// running.
func (c *Coordinator) nextJob(ctx context.Context) {
	if c.jobResults != nil || len(c.queue) == 0 {
		return
	}
	art := c.queue[0]
	c.queue = c.queue[1:]

	req := transcriber.Request{ArtifactPath: art.Path}
	if c.opts.Request != nil {
		req = c.opts.Request(art)
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	c.jobID = req.ID
	c.jobResults = c.tr.Run(ctx, req)
}

func (c *Coordinator) jobResult(ctx context.Context, res transcriber.Result, ok bool) {
	if !ok {
		c.jobResults = nil
		c.jobID = ""
		c.nextJob(ctx)
		return
	}
	e := Event{JobID: c.jobID, Text: res.Text, Err: res.Err}
	switch res.Kind {
	case transcriber.Progress:
		e.Kind = TranscriptionProgress
	case transcriber.Complete:
		e.Kind = TranscriptionComplete
	case transcriber.Failed:
		e.Kind = TranscriptionFailed
	}
	c.publish(e)
}

func (c *Coordinator) shutdown() {
	if c.recording {
		art, err := c.rec.Stop()
		c.recording = false
		if err == nil {
			removeArtifact(art.Path)
		}
	}
	for _, art := range c.queue {
		removeArtifact(art.Path)
	}
	c.queue = nil
}

func removeArtifact(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warnf("remove artifact %s: %v", path, err)
	}
}

func (c *Coordinator) publish(e Event) {
	c.bus.Publish(e)
}

// captureEvent runs on the Run goroutine for start/stop and on the meter
// goroutine for levels; it only publishes.
func (c *Coordinator) captureEvent(e capture.Event) {
	switch e.Kind {
	case capture.EventStarted:
		c.publish(Event{Kind: RecordingStarted, Source: e.Info.Source, ArtifactPath: e.Info.ArtifactPath})
	case capture.EventLevel:
		c.publish(Event{Kind: LevelUpdated, Level: e.Level})
	case capture.EventStopped:
		c.publish(Event{
			Kind:         RecordingStopped,
			Source:       e.Artifact.Source,
			ArtifactPath: e.Artifact.Path,
			Duration:     e.Artifact.Duration,
		})
	}
}

func (c *Coordinator) limitReached(info capture.Info) {
	select {
	case c.limitCh <- info:
	case <-c.done:
	}
}
