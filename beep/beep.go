// Package beep plays short audible cues when recording starts, stops or
// a transcription fails.
package beep

import (
	"math"
	"sync"
	"sync/atomic"
)

type Cue int

const (
	Start Cue = iota
	Stop
	Error
)

const sampleRate = 44100

type tone struct {
	freq     float64
	duration float64
	volume   float64
	decay    float64
	// repeat plays the tone twice separated by gap seconds.
	repeat bool
	gap    float64
}

var tones = map[Cue]tone{
	Start: {freq: 1200, duration: 0.12, volume: 0.5, decay: 60},
	Stop:  {freq: 900, duration: 0.15, volume: 0.5, decay: 40},
	Error: {freq: 350, duration: 0.08, volume: 0.6, decay: 30, repeat: true, gap: 0.05},
}

var (
	disabled  atomic.Bool
	cacheOnce sync.Once
	cache     map[Cue][]int16
)

func Disable() { disabled.Store(true) }

// Play starts the cue in the background. It never blocks and silently
// does nothing when no output device is available.
func Play(c Cue) {
	if disabled.Load() {
		return
	}
	s := samples(c)
	if len(s) == 0 {
		return
	}
	go play(s)
}

func samples(c Cue) []int16 {
	cacheOnce.Do(func() {
		cache = make(map[Cue][]int16, len(tones))
		for cue, t := range tones {
			cache[cue] = t.render()
		}
	})
	return cache[c]
}

// render produces mono 16-bit samples of an exponentially decaying sine.
func (t tone) render() []int16 {
	n := int(sampleRate * t.duration)
	out := make([]int16, n)
	for i := range out {
		x := float64(i) / sampleRate
		out[i] = int16(math.Sin(2*math.Pi*t.freq*x) * 32767 * t.volume * math.Exp(-x*t.decay))
	}
	if t.repeat {
		gap := make([]int16, int(sampleRate*t.gap))
		out = append(append(out, gap...), out[:n]...)
	}
	return out
}
