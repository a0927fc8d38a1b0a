// Package audio wraps the platform sound server: input endpoint
// enumeration, default-input control and PCM capture.
package audio

import "strings"

const (
	WAVHeaderSize = 44

	// SampleRate is the capture rate used for every recording.
	SampleRate = 16000
)

// DataCallback receives interleaved signed 16-bit little-endian PCM.
type DataCallback func(data []byte, frameCount uint32)

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

// Matches reports whether marker occurs in the device name or ID,
// ignoring case.
func (d DeviceInfo) Matches(marker string) bool {
	if marker == "" {
		return false
	}
	m := strings.ToLower(marker)
	return strings.Contains(strings.ToLower(d.Name), m) || strings.Contains(strings.ToLower(d.ID), m)
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	// DefaultInput returns the ID of the input endpoint captures use when
	// no device is given.
	DefaultInput() (string, error)
	// SetDefaultInput changes that endpoint.
	SetDefaultInput(id string) error
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	Close()
}

type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
	DeviceName() string
}

// FindDevice returns the first device whose name or ID contains marker.
func FindDevice(devices []DeviceInfo, marker string) (DeviceInfo, bool) {
	for _, d := range devices {
		if d.Matches(marker) {
			return d, true
		}
	}
	return DeviceInfo{}, false
}
