package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"microwhisper/audio"
	"microwhisper/beep"
	"microwhisper/clipboard"
	"microwhisper/config"
	"microwhisper/doctor"
	"microwhisper/hotkey"
	"microwhisper/log"
	"microwhisper/pipeline"
	"microwhisper/shutdown"
)

var version = "dev"

func run() {
	fs := pflag.NewFlagSet("microwhisper", pflag.ExitOnError)
	config.RegisterFlags(fs)
	versionFlag := fs.Bool("version", false, "Print version and exit")
	doctorFlag := fs.Bool("doctor", false, "Run system diagnostics and exit")
	setupFlag := fs.Bool("setup", false, "Pick the loopback device and save it to the config file")
	testFlag := fs.String("test", "", "Headless mode: capture from this WAV file, read commands from stdin")
	fs.Parse(os.Args[1:])

	if *versionFlag {
		fmt.Printf("microwhisper %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logPath, err := log.ResolveDir(cfg.Log.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}
	initCrashLog()

	if *doctorFlag {
		os.Exit(doctor.Run(os.Stdout, doctor.Options{
			NewContext:     audio.NewContext,
			LoopbackMarker: cfg.Audio.LoopbackMarker,
			Executable:     cfg.Whisper.Executable,
			TempDir:        cfg.Audio.TempDir,
			Hotkey:         hotkey.Diagnose,
			Clipboard: func() (string, error) {
				return "copy and read back verified", clipboard.Verify("microwhisper-doctor")
			},
		}))
	}
	if *setupFlag {
		os.Exit(runSetup(fs, cfg))
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()
	log.SessionStart(cfg.Audio.Source, cfg.Audio.Format, cfg.Whisper.Model)

	if !cfg.UI.Beep {
		beep.Disable()
	}

	if *testFlag != "" {
		os.Exit(runTestMode(cfg, *testFlag, os.Stdin, os.Stdout))
	}

	actx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fmt.Fprintf(os.Stderr, "Error initializing audio: %v\n", err)
		os.Exit(1)
	}
	defer actx.Close()

	a, err := newApp(cfg, actx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := shutdown.Context(context.Background())
	defer stop()

	watcher := audio.NewWatcher(actx, cfg.Audio.WatchInterval)
	go watcher.Run(ctx)
	go a.registry.Watch(ctx, watcher.Changes())

	useTUI := cfg.UI.TUI && term.IsTerminal(int(os.Stdout.Fd()))

	hk := hotkey.New()
	if err := hk.Register(); err != nil {
		log.Errorf("hotkey register error: %v", err)
		if !useTUI {
			fmt.Fprintf(os.Stderr, "Error registering hotkey %s: %v\n", hotkey.Combo, err)
			os.Exit(1)
		}
	} else {
		defer hk.Unregister()
		go toggleOnKeydown(ctx, hk, a.coord)
	}

	events, unsubscribe := a.coord.Subscribe(64)
	defer unsubscribe()
	runDone := make(chan error, 1)
	go func() { runDone <- a.coord.Run(ctx) }()

	d := delivery{logText: cfg.Log.Text}
	if cfg.UI.Copy {
		d.copy = clipboard.Copy
	}
	count := make(chan int, 1)

	if useTUI {
		p := newTUIProgram(a.coord)
		go func() { count <- forward(events, tuiSink{p}, d) }()
		go func() {
			<-ctx.Done()
			p.Quit()
		}()
		if _, err := p.Run(); err != nil {
			log.Errorf("TUI error: %v", err)
		}
		stop()
	} else {
		fmt.Printf("microwhisper %s: press %s to start and stop recording\n", version, hotkey.Combo)
		go func() { count <- forward(events, consoleSink{os.Stdout}, d) }()
		<-ctx.Done()
	}

	if err := <-runDone; err != nil && !errors.Is(err, context.Canceled) {
		log.Errorf("pipeline: %v", err)
	}
	log.SessionEnd(<-count)
}

// toggleOnKeydown flips recording on every hotkey press until ctx is done.
func toggleOnKeydown(ctx context.Context, hk hotkey.Hotkey, coord *pipeline.Coordinator) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-hk.Keydown():
			if err := coord.Toggle(); err != nil {
				log.Warnf("toggle: %v", err)
			}
		}
	}
}

// runSetup lets the user pick the loopback device and saves its name as
// the loopback marker.
func runSetup(fs *pflag.FlagSet, cfg *config.Config) int {
	actx, err := audio.NewContext()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing audio: %v\n", err)
		return 1
	}
	defer actx.Close()

	dev, err := audio.SelectDevice(actx, "Select the system audio (loopback) device:", cfg.Audio.LoopbackMarker)
	if errors.Is(err, audio.ErrSelectionCancelled) {
		fmt.Println("Cancelled.")
		return 1
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	path, err := config.SaveLoopbackMarker(fs, dev.Name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Printf("Loopback device set to %q in %s\n", dev.Name, path)
	return 0
}

// initCrashLog sends fatal runtime errors to crash_log.txt in the log dir.
func initCrashLog() {
	f, err := os.OpenFile(filepath.Join(log.Dir(), "crash_log.txt"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	fmt.Fprintf(f, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
	debug.SetCrashOutput(f, debug.CrashOptions{})
}
