package encoder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
)

func TestWavFile(t *testing.T) {
	for _, channels := range []int{1, 2} {
		path := filepath.Join(t.TempDir(), "rec.wav")
		w, err := NewFile(FormatWAV, path, channels)
		if err != nil {
			t.Fatal(err)
		}

		samples := sine(5000, channels)
		if err := w.Write(samples[:1000*channels]); err != nil {
			t.Fatal(err)
		}
		if err := w.Write(samples[1000*channels:]); err != nil {
			t.Fatal(err)
		}
		if err := w.Close(); err != nil {
			t.Fatal(err)
		}
		if w.Frames() != 5000 {
			t.Errorf("Frames = %d, want 5000", w.Frames())
		}

		f, err := os.Open(path)
		if err != nil {
			t.Fatal(err)
		}
		d := wav.NewDecoder(f)
		if !d.IsValidFile() {
			f.Close()
			t.Fatalf("%d channels: invalid wav file", channels)
		}
		buf, err := d.FullPCMBuffer()
		f.Close()
		if err != nil {
			t.Fatal(err)
		}
		if int(d.NumChans) != channels || d.SampleRate != SampleRate || d.BitDepth != BitsPerSample {
			t.Errorf("header = %d ch %d Hz %d bit", d.NumChans, d.SampleRate, d.BitDepth)
		}
		if len(buf.Data) != len(samples) {
			t.Fatalf("decoded %d samples, want %d", len(buf.Data), len(samples))
		}
		if buf.Data[123] != int(samples[123]) {
			t.Errorf("sample 123 = %d, want %d", buf.Data[123], samples[123])
		}
	}
}

func TestExtension(t *testing.T) {
	if Extension(FormatWAV) != ".wav" || Extension(FormatFLAC) != ".flac" || Extension("") != ".flac" {
		t.Error("unexpected extension mapping")
	}
}
