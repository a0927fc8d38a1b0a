package main

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"microwhisper/capture"
	"microwhisper/device"
)

type fakeController struct {
	toggles   int
	toggleErr error
	sources   []capture.Source
	accept    bool
}

func (f *fakeController) Toggle() error {
	f.toggles++
	return f.toggleErr
}

func (f *fakeController) SetSource(s capture.Source) bool {
	f.sources = append(f.sources, s)
	return f.accept
}

func update(t *testing.T, m tuiModel, msg tea.Msg) (tuiModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(tuiModel), cmd
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestTUIKeys(t *testing.T) {
	ctl := &fakeController{accept: true}
	m := newTUIModel(ctl)

	_, cmd := update(t, m, key("r"))
	if cmd == nil {
		t.Fatal("r produced no command")
	}
	if msg := cmd(); msg != nil {
		t.Errorf("toggle cmd msg = %v", msg)
	}
	if ctl.toggles != 1 {
		t.Errorf("toggles = %d", ctl.toggles)
	}

	_, cmd = update(t, m, key("s"))
	cmd()
	_, cmd = update(t, m, key("m"))
	cmd()
	if len(ctl.sources) != 2 || ctl.sources[0] != capture.SystemAudio || ctl.sources[1] != capture.Microphone {
		t.Errorf("sources = %v", ctl.sources)
	}

	_, cmd = update(t, m, key("q"))
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestTUIControlErrors(t *testing.T) {
	ctl := &fakeController{toggleErr: errors.New("no device")}
	m := newTUIModel(ctl)

	_, cmd := update(t, m, key("r"))
	m, _ = update(t, m, cmd())
	if m.lastErr != "no device" {
		t.Errorf("lastErr = %q", m.lastErr)
	}

	_, cmd = update(t, m, key("s"))
	m, _ = update(t, m, cmd())
	if !strings.Contains(m.lastErr, "cannot switch to system") {
		t.Errorf("lastErr = %q", m.lastErr)
	}
}

func TestTUIRecordingLifecycle(t *testing.T) {
	m := newTUIModel(&fakeController{})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})

	m, _ = update(t, m, audioLevelMsg{Level: 1})
	if m.level != 0 {
		t.Error("level applied while idle")
	}

	m, _ = update(t, m, recordingStartMsg{Source: capture.Microphone})
	m, _ = update(t, m, audioLevelMsg{Level: 1})
	if !m.recording || m.level == 0 || m.peak != 1 {
		t.Errorf("recording=%v level=%v peak=%v", m.recording, m.level, m.peak)
	}
	if !strings.Contains(m.View(), "REC") {
		t.Error("view missing REC status")
	}

	m, _ = update(t, m, recordingStopMsg{})
	m, _ = update(t, m, progressMsg{Text: "Processing transcription.."})
	if !strings.Contains(m.View(), "Processing transcription..") {
		t.Error("view missing progress")
	}

	m, _ = update(t, m, transcriptionMsg{Text: "hello world", Copied: true})
	view := m.View()
	for _, want := range []string{"STANDBY", "Last transcription (#1)", "hello world", "copied"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if m.progress != "" {
		t.Error("progress not cleared by completion")
	}
}

func TestTUISourceLine(t *testing.T) {
	m := newTUIModel(&fakeController{})
	if !strings.Contains(m.sourceLine(), "no loopback") {
		t.Errorf("source line = %q", m.sourceLine())
	}
	m, _ = update(t, m, sourceMsg{
		Source:       capture.SystemAudio,
		Availability: device.Availability{MicrophoneAvailable: true, LoopbackAvailable: true, LoopbackName: "BlackHole 2ch"},
	})
	if !strings.Contains(m.sourceLine(), "[system: BlackHole 2ch]") {
		t.Errorf("source line = %q", m.sourceLine())
	}
}

func TestRenderMeter(t *testing.T) {
	count := func(s string) int { return strings.Count(s, "█") }
	tests := []struct {
		level float64
		want  int
	}{
		{0, 0},
		{0.5, meterWidth / 2},
		{1, meterWidth},
		{2, meterWidth},
		{-1, 0},
	}
	for _, tt := range tests {
		if got := count(renderMeter(tt.level)); got != tt.want {
			t.Errorf("renderMeter(%v) filled %d, want %d", tt.level, got, tt.want)
		}
	}
}

func TestWrapText(t *testing.T) {
	tests := []struct {
		text  string
		width int
		want  []string
	}{
		{"", 10, []string{""}},
		{"short", 10, []string{"short"}},
		{"hello brave new world", 11, []string{"hello brave", "new world"}},
		{"abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
	}
	for _, tt := range tests {
		got := wrapText(tt.text, tt.width)
		if strings.Join(got, "|") != strings.Join(tt.want, "|") {
			t.Errorf("wrapText(%q, %d) = %q, want %q", tt.text, tt.width, got, tt.want)
		}
	}
}
