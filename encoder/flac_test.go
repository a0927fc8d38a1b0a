package encoder

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/mewkiz/flac"
)

func sine(n, channels int) []int16 {
	s := make([]int16, n*channels)
	for i := range n {
		v := int16((i % 64) * 256)
		for ch := range channels {
			s[i*channels+ch] = v >> ch
		}
	}
	return s
}

func decodeFlac(t *testing.T, path string) (channels int, frames int, first []int32) {
	t.Helper()
	stream, err := flac.ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	defer stream.Close()

	channels = int(stream.Info.NChannels)
	for {
		f, err := stream.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("ParseNext: %v", err)
		}
		if first == nil {
			for _, sf := range f.Subframes {
				first = append(first, sf.Samples[1])
			}
		}
		frames += int(f.BlockSize)
	}
	return channels, frames, first
}

func TestFlacFile(t *testing.T) {
	tests := []struct {
		name     string
		channels int
		frames   int
		chunk    int
	}{
		{"mono partial block", 1, BlockSize*2 + 100, 333},
		{"mono exact blocks", 1, BlockSize * 3, BlockSize},
		{"stereo", 2, BlockSize + 7, 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "rec.flac")
			w, err := NewFile(FormatFLAC, path, tt.channels)
			if err != nil {
				t.Fatal(err)
			}

			samples := sine(tt.frames, tt.channels)
			step := tt.chunk * tt.channels
			for i := 0; i < len(samples); i += step {
				if err := w.Write(samples[i:min(i+step, len(samples))]); err != nil {
					t.Fatalf("Write: %v", err)
				}
			}
			if err := w.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}
			if got := w.Frames(); got != uint64(tt.frames) {
				t.Errorf("Frames = %d, want %d", got, tt.frames)
			}

			channels, frames, first := decodeFlac(t, path)
			if channels != tt.channels {
				t.Errorf("channels = %d, want %d", channels, tt.channels)
			}
			if frames != tt.frames {
				t.Errorf("decoded %d frames, want %d", frames, tt.frames)
			}
			for ch, v := range first {
				if want := int32(samples[tt.channels+ch]); v != want {
					t.Errorf("channel %d sample 1 = %d, want %d", ch, v, want)
				}
			}
		})
	}
}

func TestFlacFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.flac")
	w, err := NewFile(FormatFLAC, path, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) < 4 || string(data[:4]) != "fLaC" {
		t.Fatal("output does not start with FLAC magic")
	}
}

func TestWriteAfterClose(t *testing.T) {
	for _, format := range []string{FormatFLAC, FormatWAV} {
		t.Run(format, func(t *testing.T) {
			w, err := NewFile(format, filepath.Join(t.TempDir(), "x"+Extension(format)), 1)
			if err != nil {
				t.Fatal(err)
			}
			if err := w.Close(); err != nil {
				t.Fatal(err)
			}
			if err := w.Close(); err != nil {
				t.Errorf("second Close: %v", err)
			}
			if err := w.Write([]int16{1, 2}); err == nil {
				t.Error("expected error writing after close")
			}
		})
	}
}

func TestNewFileRejects(t *testing.T) {
	dir := t.TempDir()
	if _, err := NewFile(FormatFLAC, filepath.Join(dir, "a"), 3); err == nil {
		t.Error("expected error for 3 channels")
	}
	path := filepath.Join(dir, "b.ogg")
	if _, err := NewFile("ogg", path, 1); err == nil {
		t.Error("expected error for unknown format")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("failed NewFile should not leave a file behind")
	}
}
