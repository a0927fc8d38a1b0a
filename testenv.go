package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"microwhisper/audio"
	"microwhisper/capture"
	"microwhisper/clipboard"
	"microwhisper/config"
	"microwhisper/hotkey"
	"microwhisper/log"
)

// runTestMode drives the pipeline without hardware. Audio comes from a
// 16 kHz mono WAV file and commands from in, one per line:
//
//	TOGGLE             press the hotkey
//	SOURCE mic|system  select the next recording's source
//	SLEEP <ms>
//	WAIT               block until the next transcription finishes
//	WAIT_AUDIO_DONE    block until the WAV has been fully captured
//	QUIT
func runTestMode(cfg *config.Config, wavPath string, in io.Reader, out io.Writer) int {
	fc, err := audio.NewFakeContextFromWAV(wavPath, true)
	if err != nil {
		fmt.Fprintf(out, "Error loading WAV: %v\n", err)
		return 1
	}
	return runScript(cfg, fc, in, out)
}

func runScript(cfg *config.Config, fc *audio.FakeContext, in io.Reader, out io.Writer) int {
	out = &syncWriter{w: out}

	// A fake loopback device makes SOURCE system usable headlessly.
	devices, _ := fc.Devices()
	fc.SetDevices(append(devices, audio.DeviceInfo{ID: "fake-loopback", Name: cfg.Audio.LoopbackMarker + " (fake)"}))

	a, err := newApp(cfg, fc)
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hk := hotkey.NewFake()
	go toggleOnKeydown(ctx, hk, a.coord)

	events, unsubscribe := a.coord.Subscribe(256)
	defer unsubscribe()
	runDone := make(chan error, 1)
	go func() { runDone <- a.coord.Run(ctx) }()

	sink := &scriptSink{consoleSink: consoleSink{out}, finished: make(chan struct{}, 16)}
	d := delivery{logText: cfg.Log.Text}
	if cfg.UI.Copy {
		d.copy = clipboard.Copy
	}
	count := make(chan int, 1)
	go func() { count <- forward(events, sink, d) }()

	scanner := bufio.NewScanner(in)
script:
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch strings.ToUpper(fields[0]) {
		case "TOGGLE":
			hk.SimKeydown()
		case "SOURCE":
			if len(fields) < 2 {
				fmt.Fprintln(out, "usage: SOURCE mic|system")
				continue
			}
			s, err := capture.ParseSource(fields[1])
			if err != nil || !a.coord.SetSource(s) {
				fmt.Fprintf(out, "cannot select source %q\n", fields[1])
			}
		case "SLEEP":
			if len(fields) > 1 {
				if ms, err := strconv.Atoi(fields[1]); err == nil {
					time.Sleep(time.Duration(ms) * time.Millisecond)
				}
			}
		case "WAIT":
			<-sink.finished
		case "WAIT_AUDIO_DONE":
			if caps := fc.Captures(); len(caps) > 0 {
				<-caps[len(caps)-1].AudioDone()
			}
		case "QUIT":
			break script
		default:
			fmt.Fprintf(out, "unknown command %q\n", fields[0])
		}
	}

	cancel()
	<-runDone
	n := <-count
	log.SessionEnd(n)
	return 0
}

// scriptSink prints like the console and signals every finished job.
type scriptSink struct {
	consoleSink
	finished chan struct{}
}

func (s *scriptSink) done() {
	select {
	case s.finished <- struct{}{}:
	default:
	}
}

func (s *scriptSink) Transcription(text string, copied bool) {
	s.consoleSink.Transcription(text, copied)
	s.done()
}

func (s *scriptSink) TranscriptionError(err error) {
	s.consoleSink.TranscriptionError(err)
	s.done()
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
