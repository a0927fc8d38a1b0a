package pipeline

import (
	"sync"
	"time"

	"microwhisper/capture"
	"microwhisper/device"
)

type EventKind int

const (
	SourceAvailabilityChanged EventKind = iota
	RecordingStarted
	LevelUpdated
	RecordingStopped
	TranscriptionProgress
	TranscriptionComplete
	TranscriptionFailed

	busClosed EventKind = -1
)

func (k EventKind) String() string {
	switch k {
	case SourceAvailabilityChanged:
		return "source_availability_changed"
	case RecordingStarted:
		return "recording_started"
	case LevelUpdated:
		return "level_updated"
	case RecordingStopped:
		return "recording_stopped"
	case TranscriptionProgress:
		return "transcription_progress"
	case TranscriptionComplete:
		return "transcription_complete"
	case TranscriptionFailed:
		return "transcription_failed"
	}
	return "unknown"
}

// Event is a sequenced notification for the presentation layer.
type Event struct {
	Seq  int64
	Time time.Time
	Kind EventKind

	Availability device.Availability
	Source       capture.Source
	ArtifactPath string
	Duration     time.Duration
	Level        float64
	JobID        string
	Text         string
	Err          error
}

// Bus fans events out to subscribers. Publish never blocks; each
// subscriber has its own queue in which a pending level event is replaced
// by a newer one.
type Bus struct {
	mu      sync.Mutex
	nextSeq int64
	subs    map[*subscriber]struct{}
	closed  bool
}

func NewBus() *Bus {
	return &Bus{subs: make(map[*subscriber]struct{})}
}

type subscriber struct {
	mu     sync.Mutex
	queue  []Event
	signal chan struct{}
	out    chan Event
	done   chan struct{}
	once   sync.Once
}

// Subscribe returns a channel of events published from now on and a func
// that unsubscribes and closes the channel.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	s := &subscriber{
		signal: make(chan struct{}, 1),
		out:    make(chan Event, max(buffer, 0)),
		done:   make(chan struct{}),
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(s.out)
		return s.out, func() {}
	}
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	go s.pump()
	return s.out, func() {
		b.mu.Lock()
		delete(b.subs, s)
		b.mu.Unlock()
		s.stop()
	}
}

// Publish stamps e with a sequence number and time and queues it for every
// subscriber.
func (b *Bus) Publish(e Event) Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return e
	}
	b.nextSeq++
	e.Seq = b.nextSeq
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	for s := range b.subs {
		s.push(e)
	}
	return e
}

// Close unsubscribes everyone. Pending events are still delivered.
func (b *Bus) Close() {
	b.mu.Lock()
	b.closed = true
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()
	for s := range subs {
		s.finish()
	}
}

func (s *subscriber) push(e Event) {
	s.mu.Lock()
	if n := len(s.queue); e.Kind == LevelUpdated && n > 0 && s.queue[n-1].Kind == LevelUpdated {
		s.queue[n-1] = e
	} else {
		s.queue = append(s.queue, e)
	}
	s.mu.Unlock()
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}

// finish lets the pump drain the queue before closing out.
func (s *subscriber) finish() {
	s.mu.Lock()
	s.queue = append(s.queue, Event{Kind: busClosed})
	s.mu.Unlock()
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *subscriber) pump() {
	defer close(s.out)
	for {
		select {
		case <-s.done:
			return
		case <-s.signal:
		}
		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			e := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()

			if e.Kind == busClosed {
				return
			}
			select {
			case s.out <- e:
			case <-s.done:
				return
			}
		}
	}
}
