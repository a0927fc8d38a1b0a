// Package doctor runs non-interactive environment checks for microwhisper.
package doctor

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"microwhisper/audio"
)

// warning marks a check result that does not fail the run.
type warning string

func (w warning) Error() string { return string(w) }

type Check struct {
	Name string
	Run  func() (string, error)
}

type Options struct {
	NewContext     func() (audio.Context, error)
	LoopbackMarker string
	Executable     string
	TempDir        string
	Hotkey         func() (string, error)
	Clipboard      func() (string, error)
}

// Run executes all checks and returns an exit code (0=all pass, 1=any fail).
func Run(w io.Writer, opts Options) int {
	fmt.Fprintln(w, "microwhisper doctor - system diagnostics")
	fmt.Fprintln(w, "========================================")

	env := &environment{opts: opts}
	defer env.close()

	ok := runChecks(w, env.checks())
	fmt.Fprintln(w)
	if ok {
		fmt.Fprintln(w, "All checks passed!")
		return 0
	}
	fmt.Fprintln(w, "Some checks failed. See details above.")
	return 1
}

func runChecks(w io.Writer, checks []Check) bool {
	allPass := true
	for i, c := range checks {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "[%d/%d] %s\n", i+1, len(checks), c.Name)
		msg, err := c.Run()
		var warn warning
		switch {
		case errors.As(err, &warn):
			fmt.Fprintf(w, "  WARN: %s\n", warn)
		case err != nil:
			fmt.Fprintf(w, "  FAIL: %v\n", err)
			allPass = false
		default:
			fmt.Fprintf(w, "  PASS: %s\n", msg)
		}
	}
	return allPass
}

// environment shares the audio context between the device checks.
type environment struct {
	opts    Options
	actx    audio.Context
	devices []audio.DeviceInfo
}

func (e *environment) close() {
	if e.actx != nil {
		e.actx.Close()
	}
}

func (e *environment) checks() []Check {
	checks := []Check{
		{"Audio backend", e.checkContext},
		{"Input devices", e.checkDevices},
		{"Loopback device", e.checkLoopback},
		{"Whisper executable", e.checkExecutable},
		{"Temp directory", e.checkTempDir},
	}
	if e.opts.Hotkey != nil {
		checks = append(checks, Check{"Global hotkey", e.opts.Hotkey})
	}
	if e.opts.Clipboard != nil {
		checks = append(checks, Check{"Clipboard", e.opts.Clipboard})
	}
	return checks
}

func (e *environment) checkContext() (string, error) {
	actx, err := e.opts.NewContext()
	if err != nil {
		return "", fmt.Errorf("cannot connect to audio: %w", err)
	}
	e.actx = actx
	return "connected", nil
}

func (e *environment) checkDevices() (string, error) {
	if e.actx == nil {
		return "", errors.New("skipped: no audio backend")
	}
	devices, err := e.actx.Devices()
	if err != nil {
		return "", fmt.Errorf("cannot list devices: %w", err)
	}
	if len(devices) == 0 {
		return "", errors.New("no capture devices found")
	}
	e.devices = devices

	names := make([]string, len(devices))
	for i, d := range devices {
		names[i] = d.Name
	}
	msg := fmt.Sprintf("%d device(s): %s", len(devices), strings.Join(names, ", "))
	if id, err := e.actx.DefaultInput(); err == nil {
		for _, d := range devices {
			if d.ID == id {
				msg += "; default " + d.Name
			}
		}
	}
	return msg, nil
}

func (e *environment) checkLoopback() (string, error) {
	if e.opts.LoopbackMarker == "" {
		return "", warning("no loopback marker configured; system audio disabled")
	}
	if dev, ok := audio.FindDevice(e.devices, e.opts.LoopbackMarker); ok {
		return fmt.Sprintf("%s matches %q", dev.Name, e.opts.LoopbackMarker), nil
	}
	return "", warning(fmt.Sprintf("no device matches %q; system audio unavailable (run -setup to pick one)", e.opts.LoopbackMarker))
}

func (e *environment) checkExecutable() (string, error) {
	path, err := exec.LookPath(e.opts.Executable)
	if err != nil {
		return "", fmt.Errorf("%s not found: %w", e.opts.Executable, err)
	}
	return path, nil
}

func (e *environment) checkTempDir() (string, error) {
	dir := e.opts.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	f, err := os.CreateTemp(dir, "microwhisper-doctor-*")
	if err != nil {
		return "", fmt.Errorf("%s not writable: %w", dir, err)
	}
	f.Close()
	os.Remove(f.Name())
	return dir + " writable", nil
}
