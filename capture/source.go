// Package capture records one input source into a temporary artifact file.
package capture

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrSourceUnavailable is returned when the requested source has no device.
	ErrSourceUnavailable = errors.New("audio source unavailable")
	// ErrNotImplemented is returned for sources that cannot be recorded yet.
	ErrNotImplemented = errors.New("audio source not implemented")
	// ErrAlreadyRecording is returned when starting while a recording is active.
	ErrAlreadyRecording = errors.New("already recording")
	// ErrNotRecording is returned when stopping while idle.
	ErrNotRecording = errors.New("not recording")
	// ErrDeviceSwitchFailed wraps failures to change the effective input.
	ErrDeviceSwitchFailed = errors.New("input device switch failed")
)

type Source int

const (
	Microphone Source = iota
	SystemAudio
	// Both is reserved for mixed microphone and system capture.
	Both
)

func (s Source) String() string {
	switch s {
	case Microphone:
		return "microphone"
	case SystemAudio:
		return "system"
	case Both:
		return "both"
	default:
		return fmt.Sprintf("source(%d)", int(s))
	}
}

func ParseSource(s string) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "microphone", "mic", "":
		return Microphone, nil
	case "system", "systemaudio", "loopback":
		return SystemAudio, nil
	case "both":
		return Both, nil
	}
	return Microphone, fmt.Errorf("unknown source %q", s)
}

type State int

const (
	Idle State = iota
	Recording
	Stopping
)

func (s State) String() string {
	switch s {
	case Recording:
		return "recording"
	case Stopping:
		return "stopping"
	default:
		return "idle"
	}
}

// Info describes the active recording.
type Info struct {
	Source       Source
	ArtifactPath string
	StartedAt    time.Time
}

// Artifact is a finished recording handed to transcription.
type Artifact struct {
	Path     string
	Source   Source
	Duration time.Duration
	Frames   uint64
}

type EventKind int

const (
	EventStarted EventKind = iota
	EventLevel
	EventStopped
)

type Event struct {
	Kind     EventKind
	Info     Info
	Level    float64
	Artifact Artifact
}
