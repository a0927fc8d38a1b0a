//go:build !linux

package audio

import (
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

// malgoContext keeps the effective input endpoint in-process: miniaudio
// can open any device but cannot change the OS default.
type malgoContext struct {
	ctx *malgo.AllocatedContext

	mu        sync.Mutex
	preferred string
}

func NewContext() (Context, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, err
	}
	return &malgoContext{ctx: ctx}, nil
}

func (m *malgoContext) devices() ([]malgo.DeviceInfo, error) {
	devices, err := m.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("malgo devices: %w", err)
	}
	return devices, nil
}

func (m *malgoContext) Devices() ([]DeviceInfo, error) {
	devices, err := m.devices()
	if err != nil {
		return nil, err
	}
	result := make([]DeviceInfo, 0, len(devices))
	for _, d := range devices {
		result = append(result, DeviceInfo{
			ID:   hex.EncodeToString(d.ID.Pointer()[:]),
			Name: d.Name(),
		})
	}
	return result, nil
}

func (m *malgoContext) DefaultInput() (string, error) {
	m.mu.Lock()
	preferred := m.preferred
	m.mu.Unlock()
	if preferred != "" {
		return preferred, nil
	}

	devices, err := m.devices()
	if err != nil {
		return "", err
	}
	for _, d := range devices {
		if d.IsDefault != 0 {
			return hex.EncodeToString(d.ID.Pointer()[:]), nil
		}
	}
	if len(devices) > 0 {
		return hex.EncodeToString(devices[0].ID.Pointer()[:]), nil
	}
	return "", errors.New("malgo: no capture devices")
}

func (m *malgoContext) SetDefaultInput(id string) error {
	if _, err := hex.DecodeString(id); err != nil {
		return fmt.Errorf("invalid device ID: %w", err)
	}
	m.mu.Lock()
	m.preferred = id
	m.mu.Unlock()
	return nil
}

func (m *malgoContext) NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error) {
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = config.Channels
	deviceConfig.SampleRate = config.SampleRate

	id := ""
	name := "system default"
	if device != nil {
		id, name = device.ID, device.Name
	} else {
		m.mu.Lock()
		id = m.preferred
		m.mu.Unlock()
	}
	if id != "" {
		idBytes, err := hex.DecodeString(id)
		if err != nil {
			return nil, fmt.Errorf("invalid device ID: %w", err)
		}
		var devID malgo.DeviceID
		copy(devID[:], idBytes)
		deviceConfig.Capture.DeviceID = devID.Pointer()
	}

	c := &malgoCapture{name: name}
	callbacks := malgo.DeviceCallbacks{
		Data: func(_, data []byte, frameCount uint32) {
			c.mu.Lock()
			cb := c.cb
			c.mu.Unlock()
			if cb != nil {
				cb(data, frameCount)
			}
		},
	}

	dev, err := malgo.InitDevice(m.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, err
	}
	c.device = dev
	return c, nil
}

func (m *malgoContext) Close() {
	m.ctx.Uninit()
	m.ctx.Free()
}

type malgoCapture struct {
	device *malgo.Device
	name   string

	mu sync.Mutex
	cb DataCallback
}

func (c *malgoCapture) Start() error {
	return c.device.Start()
}

func (c *malgoCapture) Stop() {
	c.device.Stop()
}

func (c *malgoCapture) Close() {
	c.device.Uninit()
}

func (c *malgoCapture) SetCallback(cb DataCallback) {
	c.mu.Lock()
	c.cb = cb
	c.mu.Unlock()
}

func (c *malgoCapture) ClearCallback() {
	c.mu.Lock()
	c.cb = nil
	c.mu.Unlock()
}

func (c *malgoCapture) DeviceName() string {
	return c.name
}
