package main

import (
	"fmt"
	"io"
	"time"

	"microwhisper/beep"
	"microwhisper/capture"
	"microwhisper/device"
	"microwhisper/log"
	"microwhisper/pipeline"
)

// EventSink abstracts the display layer so both the Bubble Tea TUI and
// the plain console printer receive the same pipeline events.
type EventSink interface {
	SourceChanged(source capture.Source, avail device.Availability)
	RecordingStart(source capture.Source)
	RecordingStop(duration time.Duration)
	AudioLevel(level float64)
	TranscriptionProgress(text string)
	Transcription(text string, copied bool)
	TranscriptionError(err error)
}

// delivery post-processes finished transcripts.
type delivery struct {
	copy    func(string) error // nil disables clipboard copy
	logText bool
}

func (d delivery) deliver(text string) (copied bool) {
	if d.logText {
		log.TranscriptionText(text)
	}
	if d.copy == nil {
		return false
	}
	if err := d.copy(text); err != nil {
		log.Warnf("clipboard copy: %v", err)
		return false
	}
	return true
}

// forward relays events to sink until the stream closes and returns the
// number of completed transcriptions.
func forward(events <-chan pipeline.Event, sink EventSink, d delivery) int {
	count := 0
	for e := range events {
		switch e.Kind {
		case pipeline.SourceAvailabilityChanged:
			sink.SourceChanged(e.Source, e.Availability)
		case pipeline.RecordingStarted:
			beep.Play(beep.Start)
			sink.RecordingStart(e.Source)
		case pipeline.LevelUpdated:
			sink.AudioLevel(e.Level)
		case pipeline.RecordingStopped:
			beep.Play(beep.Stop)
			sink.RecordingStop(e.Duration)
		case pipeline.TranscriptionProgress:
			sink.TranscriptionProgress(e.Text)
		case pipeline.TranscriptionComplete:
			count++
			sink.Transcription(e.Text, d.deliver(e.Text))
		case pipeline.TranscriptionFailed:
			beep.Play(beep.Error)
			log.Errorf("transcription %s: %v", e.JobID, e.Err)
			sink.TranscriptionError(e.Err)
		}
	}
	return count
}

// consoleSink prints one line per event. Level updates are dropped.
type consoleSink struct {
	w io.Writer
}

func (c consoleSink) SourceChanged(source capture.Source, avail device.Availability) {
	loopback := "unavailable"
	if avail.LoopbackAvailable {
		loopback = avail.LoopbackName
	}
	fmt.Fprintf(c.w, "source: %s (loopback: %s)\n", source, loopback)
}

func (c consoleSink) RecordingStart(source capture.Source) {
	fmt.Fprintf(c.w, "recording (%s)\n", source)
}

func (c consoleSink) RecordingStop(d time.Duration) {
	fmt.Fprintf(c.w, "stopped after %.1fs\n", d.Seconds())
}

func (consoleSink) AudioLevel(float64) {}

func (c consoleSink) TranscriptionProgress(text string) {
	fmt.Fprintln(c.w, text)
}

func (c consoleSink) Transcription(text string, copied bool) {
	if copied {
		fmt.Fprintf(c.w, "transcript [copied]: %s\n", text)
		return
	}
	fmt.Fprintf(c.w, "transcript: %s\n", text)
}

func (c consoleSink) TranscriptionError(err error) {
	fmt.Fprintf(c.w, "transcription failed: %v\n", err)
}
