package main

import (
	"context"
	"testing"
	"time"

	"microwhisper/audio"
	"microwhisper/capture"
	"microwhisper/config"
	"microwhisper/transcriber"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())
	cfg, err := config.Load(nil)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Audio.TempDir = t.TempDir()
	cfg.Audio.MeterInterval = 5 * time.Millisecond
	return cfg
}

func TestTranscriberConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Whisper.Executable = "/opt/whisper/bin/whisper"
	cfg.Whisper.Model = "small"
	cfg.Whisper.Language = "de"
	cfg.Whisper.Threads = 4
	cfg.Whisper.BeamSize = 5
	cfg.Whisper.Temperature = 0.2
	cfg.Whisper.InitialPrompt = ""
	cfg.Whisper.FailOnExitCode = true

	tc := transcriberConfig(cfg)
	if tc.Executable != "/opt/whisper/bin/whisper" || tc.Model != "small" || tc.Language != "de" {
		t.Errorf("executable/model/language = %q/%q/%q", tc.Executable, tc.Model, tc.Language)
	}
	if tc.Threads != 4 || !tc.FailOnExitCode {
		t.Errorf("threads = %d, fail on exit = %v", tc.Threads, tc.FailOnExitCode)
	}
	want := transcriber.DecodingParams{
		BeamSize:          5,
		BestOf:            1,
		Temperature:       0.2,
		NoSpeechThreshold: 0.6,
	}
	if tc.Decoding != want {
		t.Errorf("decoding = %+v, want %+v", tc.Decoding, want)
	}
	if tc.ProgressInterval != 2*time.Second {
		t.Errorf("progress interval = %v", tc.ProgressInterval)
	}
	if len(tc.Env) == 0 {
		t.Error("default environment dropped")
	}
}

func TestNewApp(t *testing.T) {
	devices := []audio.DeviceInfo{
		{ID: "mic", Name: "Built-in Microphone"},
		{ID: "bh", Name: "BlackHole 2ch"},
	}

	tests := []struct {
		name     string
		devices  []audio.DeviceInfo
		source   string
		want     capture.Source
		loopback bool
	}{
		{"microphone", devices, config.SourceMicrophone, capture.Microphone, true},
		{"system", devices, config.SourceSystemAudio, capture.SystemAudio, true},
		{"system without loopback", devices[:1], config.SourceSystemAudio, capture.Microphone, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Audio.Source = tt.source

			a, err := newApp(cfg, audio.NewFakeContext(tt.devices, "mic"))
			if err != nil {
				t.Fatal(err)
			}
			if got := a.registry.Availability().LoopbackAvailable; got != tt.loopback {
				t.Errorf("loopback available = %v, want %v", got, tt.loopback)
			}

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- a.coord.Run(ctx) }()
			defer func() {
				cancel()
				<-done
			}()

			st, err := a.coord.Status()
			if err != nil {
				t.Fatal(err)
			}
			if st.Source != tt.want {
				t.Errorf("source = %s, want %s", st.Source, tt.want)
			}
			if st.Recording || st.JobActive {
				t.Errorf("status = %+v", st)
			}
		})
	}
}

func TestNewAppInvalidSource(t *testing.T) {
	cfg := testConfig(t)
	cfg.Audio.Source = "line-in"
	if _, err := newApp(cfg, audio.NewFakeContext(nil, "")); err == nil {
		t.Fatal("expected error for unknown source")
	}
}
