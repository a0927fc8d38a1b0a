package main

import (
	"microwhisper/audio"
	"microwhisper/capture"
	"microwhisper/config"
	"microwhisper/device"
	"microwhisper/log"
	"microwhisper/pipeline"
	"microwhisper/transcriber"
)

// app is the wired recording pipeline for one audio backend.
type app struct {
	registry *device.Registry
	session  *capture.Session
	job      *transcriber.Job
	coord    *pipeline.Coordinator
}

func newApp(cfg *config.Config, actx audio.Context) (*app, error) {
	source, err := capture.ParseSource(cfg.Audio.Source)
	if err != nil {
		return nil, err
	}

	a := &app{
		registry: device.New(actx, cfg.Audio.LoopbackMarker),
		job:      transcriber.NewJob(transcriberConfig(cfg)),
	}
	avail := a.registry.Enumerate()
	if source == capture.SystemAudio && !avail.LoopbackAvailable {
		log.Warnf("no device matches %q, recording from the microphone", cfg.Audio.LoopbackMarker)
	}

	a.coord = pipeline.New(a.registry, func(hooks capture.Options) pipeline.Recorder {
		hooks.TempDir = cfg.Audio.TempDir
		hooks.Format = cfg.Audio.Format
		hooks.MaxDuration = cfg.Audio.MaxDuration
		hooks.MeterInterval = cfg.Audio.MeterInterval
		a.session = capture.New(actx, a.registry.Availability, hooks)
		return a.session
	}, a.job, pipeline.Options{Source: source})
	return a, nil
}

func transcriberConfig(cfg *config.Config) transcriber.Config {
	tc := transcriber.DefaultConfig()
	w := cfg.Whisper
	tc.Executable = w.Executable
	tc.Model = w.Model
	tc.Language = w.Language
	tc.Task = w.Task
	tc.OutputFormat = w.OutputFormat
	tc.Device = w.Device
	tc.Threads = w.Threads
	tc.Decoding = transcriber.DecodingParams{
		BeamSize:                w.BeamSize,
		BestOf:                  w.BestOf,
		Temperature:             w.Temperature,
		NoSpeechThreshold:       w.NoSpeechThreshold,
		ConditionOnPreviousText: w.ConditionOnPreviousText,
		InitialPrompt:           w.InitialPrompt,
	}
	tc.ProgressInterval = w.ProgressInterval
	tc.FailOnExitCode = w.FailOnExitCode
	return tc
}
