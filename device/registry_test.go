package device

import (
	"context"
	"errors"
	"testing"
	"time"

	"microwhisper/audio"
)

var (
	builtin  = audio.DeviceInfo{ID: "alsa_input.builtin", Name: "Built-in Microphone"}
	usbMic   = audio.DeviceInfo{ID: "alsa_input.usb", Name: "USB Microphone"}
	loopback = audio.DeviceInfo{ID: "blackhole_2ch", Name: "BlackHole 2ch"}
)

func TestEnumerate(t *testing.T) {
	tests := []struct {
		name      string
		devices   []audio.DeviceInfo
		defaultID string
		marker    string
		want      Availability
	}{
		{
			name:      "microphone only",
			devices:   []audio.DeviceInfo{builtin},
			defaultID: builtin.ID,
			marker:    "BlackHole",
			want:      Availability{MicrophoneAvailable: true, DefaultInputID: builtin.ID, MicrophoneID: builtin.ID},
		},
		{
			name:      "loopback present",
			devices:   []audio.DeviceInfo{builtin, loopback},
			defaultID: builtin.ID,
			marker:    "BlackHole",
			want: Availability{
				MicrophoneAvailable: true, LoopbackAvailable: true,
				DefaultInputID: builtin.ID, MicrophoneID: builtin.ID,
				LoopbackID: loopback.ID, LoopbackName: loopback.Name,
			},
		},
		{
			name:      "marker is case insensitive",
			devices:   []audio.DeviceInfo{builtin, loopback},
			defaultID: builtin.ID,
			marker:    "blackhole",
			want: Availability{
				MicrophoneAvailable: true, LoopbackAvailable: true,
				DefaultInputID: builtin.ID, MicrophoneID: builtin.ID,
				LoopbackID: loopback.ID, LoopbackName: loopback.Name,
			},
		},
		{
			name:      "default left on loopback",
			devices:   []audio.DeviceInfo{loopback, usbMic, builtin},
			defaultID: loopback.ID,
			marker:    "BlackHole",
			want: Availability{
				MicrophoneAvailable: true, LoopbackAvailable: true,
				DefaultInputID: loopback.ID, MicrophoneID: usbMic.ID,
				LoopbackID: loopback.ID, LoopbackName: loopback.Name,
			},
		},
		{
			name:   "no devices",
			marker: "BlackHole",
			want:   Availability{MicrophoneAvailable: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(audio.NewFakeContext(tt.devices, tt.defaultID), tt.marker)
			got := r.Enumerate()
			if got != tt.want {
				t.Errorf("Enumerate() = %+v\nwant %+v", got, tt.want)
			}
			if r.Availability() != got {
				t.Error("Availability() should return the last enumeration")
			}
		})
	}
}

func TestEnumerateFailureDegrades(t *testing.T) {
	fc := audio.NewFakeContext([]audio.DeviceInfo{builtin, loopback}, builtin.ID)
	r := New(fc, "BlackHole")
	if !r.Enumerate().LoopbackAvailable {
		t.Fatal("expected loopback before failure")
	}

	fc.DevicesErr = errors.New("sound server gone")
	got := r.Enumerate()
	if got != (Availability{MicrophoneAvailable: true}) {
		t.Errorf("Enumerate() after failure = %+v", got)
	}
}

func TestDefaultInputFailureKeepsLoopback(t *testing.T) {
	fc := audio.NewFakeContext([]audio.DeviceInfo{builtin, loopback}, builtin.ID)
	fc.DefaultErr = errors.New("no default")
	got := New(fc, "BlackHole").Enumerate()
	if !got.LoopbackAvailable || got.DefaultInputID != "" {
		t.Errorf("Enumerate() = %+v", got)
	}
}

func TestInitialAvailability(t *testing.T) {
	r := New(audio.NewFakeContext(nil, ""), "BlackHole")
	if a := r.Availability(); !a.MicrophoneAvailable || a.LoopbackAvailable {
		t.Errorf("initial availability = %+v", a)
	}
}

func TestWatchPushesToHandlers(t *testing.T) {
	fc := audio.NewFakeContext([]audio.DeviceInfo{builtin}, builtin.ID)
	r := New(fc, "BlackHole")
	r.Enumerate()

	got := make(chan Availability, 4)
	cancelA := r.OnTopologyChange(func(a Availability) { got <- a })
	second := make(chan Availability, 4)
	r.OnTopologyChange(func(a Availability) { second <- a })

	changes := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Watch(ctx, changes)
		close(done)
	}()

	fc.SetDevices([]audio.DeviceInfo{builtin, loopback})
	changes <- struct{}{}

	select {
	case a := <-got:
		if !a.LoopbackAvailable || a.LoopbackName != loopback.Name {
			t.Errorf("pushed availability = %+v", a)
		}
	case <-time.After(time.Second):
		t.Fatal("handler not called")
	}
	<-second

	cancelA()
	fc.SetDevices([]audio.DeviceInfo{builtin})
	changes <- struct{}{}

	select {
	case a := <-second:
		if a.LoopbackAvailable {
			t.Errorf("loopback should be gone: %+v", a)
		}
	case <-time.After(time.Second):
		t.Fatal("remaining handler not called")
	}
	select {
	case <-got:
		t.Error("cancelled handler was called")
	default:
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
