package encoder

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
)

// FlacFile buffers samples into fixed-size verbatim frames.
type FlacFile struct {
	file     *os.File
	enc      *flac.Encoder
	channels int
	pending  []int16
	frames   uint64
	closed   bool
	mu       sync.Mutex
}

func newFlacFile(f *os.File, channels int) (*FlacFile, error) {
	info := &meta.StreamInfo{
		BlockSizeMin:  BlockSize,
		BlockSizeMax:  BlockSize,
		SampleRate:    SampleRate,
		NChannels:     uint8(channels),
		BitsPerSample: BitsPerSample,
	}
	enc, err := flac.NewEncoder(seeker{f}, info)
	if err != nil {
		return nil, fmt.Errorf("creating flac encoder: %w", err)
	}
	return &FlacFile{
		file:     f,
		enc:      enc,
		channels: channels,
		pending:  make([]int16, 0, BlockSize*channels),
	}, nil
}

func (e *FlacFile) Write(samples []int16) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return errors.New("flac: write after close")
	}

	blockSamples := BlockSize * e.channels
	for len(samples) > 0 {
		n := min(blockSamples-len(e.pending), len(samples))
		e.pending = append(e.pending, samples[:n]...)
		samples = samples[n:]
		if len(e.pending) == blockSamples {
			if err := e.writeFrame(e.pending); err != nil {
				return err
			}
			e.pending = e.pending[:0]
		}
	}
	return nil
}

func (e *FlacFile) writeFrame(interleaved []int16) error {
	nframes := len(interleaved) / e.channels
	subframes := make([]*frame.Subframe, e.channels)
	for ch := range e.channels {
		samples := make([]int32, nframes)
		for i := range nframes {
			samples[i] = int32(interleaved[i*e.channels+ch])
		}
		subframes[ch] = &frame.Subframe{
			SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
			Samples:   samples,
			NSamples:  nframes,
		}
	}

	layout := frame.ChannelsMono
	if e.channels == 2 {
		layout = frame.ChannelsLR
	}
	f := &frame.Frame{
		Header: frame.Header{
			BlockSize:     uint16(nframes),
			SampleRate:    SampleRate,
			Channels:      layout,
			BitsPerSample: BitsPerSample,
		},
		Subframes: subframes,
	}
	if err := e.enc.WriteFrame(f); err != nil {
		return fmt.Errorf("writing flac frame: %w", err)
	}
	e.frames += uint64(nframes)
	return nil
}

func (e *FlacFile) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true

	var errs []error
	if whole := len(e.pending) - len(e.pending)%e.channels; whole > 0 {
		errs = append(errs, e.writeFrame(e.pending[:whole]))
	}
	e.pending = nil
	errs = append(errs, e.enc.Close(), e.file.Close())
	return errors.Join(errs...)
}

func (e *FlacFile) Frames() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frames
}

func (e *FlacFile) Path() string {
	return e.file.Name()
}
