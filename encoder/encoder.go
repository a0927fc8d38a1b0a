// Package encoder writes captured PCM to a recording artifact on disk.
package encoder

import (
	"fmt"
	"io"
	"os"
)

const (
	SampleRate    = 16000
	BitsPerSample = 16
	BlockSize     = 4096

	FormatFLAC = "flac"
	FormatWAV  = "wav"
)

// FileWriter appends interleaved 16-bit samples to an artifact file.
// Close finalizes headers and closes the file.
type FileWriter interface {
	Write(samples []int16) error
	Close() error
	Frames() uint64
	Path() string
}

func Extension(format string) string {
	if format == FormatWAV {
		return ".wav"
	}
	return ".flac"
}

// NewFile creates path and returns a writer for the given format.
func NewFile(format, path string, channels int) (FileWriter, error) {
	if channels != 1 && channels != 2 {
		return nil, fmt.Errorf("unsupported channel count %d", channels)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create artifact: %w", err)
	}

	var w FileWriter
	switch format {
	case FormatFLAC, "":
		w, err = newFlacFile(f, channels)
	case FormatWAV:
		w, err = newWavFile(f, channels), nil
	default:
		err = fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}
	return w, nil
}

// seeker hides Close from encoders that would otherwise close the file
// before the writer is done with it.
type seeker struct {
	io.WriteSeeker
}
