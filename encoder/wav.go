package encoder

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WavFile writes 16-bit PCM; the RIFF sizes are patched on Close.
type WavFile struct {
	file     *os.File
	enc      *wav.Encoder
	format   *audio.Format
	channels int
	frames   uint64
	closed   bool
	mu       sync.Mutex
}

func newWavFile(f *os.File, channels int) *WavFile {
	return &WavFile{
		file:     f,
		enc:      wav.NewEncoder(seeker{f}, SampleRate, BitsPerSample, channels, 1),
		format:   &audio.Format{NumChannels: channels, SampleRate: SampleRate},
		channels: channels,
	}
}

func (e *WavFile) Write(samples []int16) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return errors.New("wav: write after close")
	}
	if len(samples) == 0 {
		return nil
	}

	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}
	buf := &audio.IntBuffer{Format: e.format, Data: data, SourceBitDepth: BitsPerSample}
	if err := e.enc.Write(buf); err != nil {
		return fmt.Errorf("writing wav samples: %w", err)
	}
	e.frames += uint64(len(samples) / e.channels)
	return nil
}

func (e *WavFile) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	return errors.Join(e.enc.Close(), e.file.Close())
}

func (e *WavFile) Frames() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frames
}

func (e *WavFile) Path() string {
	return e.file.Name()
}
