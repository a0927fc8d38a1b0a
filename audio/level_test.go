package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

func pcmOf(samples ...int16) []byte {
	b := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(b[i*2:], uint16(s))
	}
	return b
}

func TestPowerDB(t *testing.T) {
	tests := []struct {
		name string
		pcm  []byte
		want float64
	}{
		{"empty", nil, SilenceDB},
		{"odd byte", []byte{1}, SilenceDB},
		{"silence", pcmOf(0, 0, 0, 0), SilenceDB},
		{"full scale square", pcmOf(-32768, -32768), 0},
		{"half scale", pcmOf(16384, -16384), 20 * math.Log10(0.5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PowerDB(tt.pcm)
			if math.Abs(got-tt.want) > 0.01 {
				t.Errorf("PowerDB = %.3f, want %.3f", got, tt.want)
			}
		})
	}
}

func TestLevel(t *testing.T) {
	tests := []struct {
		db   float64
		want float64
	}{
		{SilenceDB, 0},
		{-50, 0},
		{-60, 0},
		{-25, 0.5},
		{0, 1},
		{6, 1},
	}
	for _, tt := range tests {
		if got := Level(tt.db); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Level(%v) = %v, want %v", tt.db, got, tt.want)
		}
	}
}

func TestFindDevice(t *testing.T) {
	devices := []DeviceInfo{
		{ID: "alsa_input.pci-0000_00_1f.3.analog-stereo", Name: "Built-in Audio Analog Stereo"},
		{ID: "blackhole.monitor", Name: "Loopback 2ch"},
		{ID: "usb-mic", Name: "BLACKHOLE 16ch"},
	}

	d, ok := FindDevice(devices, "blackhole")
	if !ok || d.ID != "blackhole.monitor" {
		t.Errorf("FindDevice = %+v, %v; want first case-insensitive match on ID", d, ok)
	}
	if _, ok := FindDevice(devices, "soundflower"); ok {
		t.Error("unexpected match")
	}
	if _, ok := FindDevice(devices, ""); ok {
		t.Error("empty marker must not match")
	}
}
