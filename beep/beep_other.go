//go:build !linux

package beep

import (
	"encoding/binary"
	"sync"

	"github.com/gen2brain/malgo"
)

var playMu sync.Mutex

// play opens a playback device for the duration of one cue; cues are rare
// enough that keeping a device open is not worth the sleep/wake handling.
func play(samples []int16) {
	playMu.Lock()
	defer playMu.Unlock()

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return
	}
	defer func() {
		mctx.Uninit()
		mctx.Free()
	}()

	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = 1
	config.SampleRate = sampleRate

	var once sync.Once
	done := make(chan struct{})
	pos := 0
	onData := func(out, _ []byte, frameCount uint32) {
		n := copy(out[:frameCount*2], pcm[pos:])
		pos += n
		clear(out[n:])
		if pos >= len(pcm) {
			once.Do(func() { close(done) })
		}
	}

	device, err := malgo.InitDevice(mctx.Context, config, malgo.DeviceCallbacks{Data: onData})
	if err != nil {
		return
	}
	defer device.Uninit()
	if err := device.Start(); err != nil {
		return
	}
	<-done
	device.Stop()
}
