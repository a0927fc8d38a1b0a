package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"microwhisper/capture"
	"microwhisper/device"
	"microwhisper/hotkey"
)

// TUI message types
type sourceMsg struct {
	Source       capture.Source
	Availability device.Availability
}
type recordingStartMsg struct{ Source capture.Source }
type recordingStopMsg struct{ Duration time.Duration }
type audioLevelMsg struct{ Level float64 }
type progressMsg struct{ Text string }
type transcriptionMsg struct {
	Text   string
	Copied bool
}
type transcriptionErrorMsg struct{ Err error }
type controlErrorMsg struct{ Err error }
type tickMsg time.Time

// controller is the part of the pipeline the keyboard drives.
type controller interface {
	Toggle() error
	SetSource(capture.Source) bool
}

type tuiModel struct {
	ctl controller

	recording     bool
	startedAt     time.Time
	now           time.Time
	source        capture.Source
	avail         device.Availability
	level         float64
	peak          float64
	progress      string
	lastText      string
	lastErr       string
	copied        bool
	count         int
	width, height int
}

const meterWidth = 30

var (
	recStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	idleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	keyStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	textStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	copiedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	meterStyles   = []lipgloss.Style{
		lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
)

func newTUIModel(ctl controller) tuiModel {
	return tuiModel{ctl: ctl, avail: device.Availability{MicrophoneAvailable: true}}
}

func newTUIProgram(ctl controller) *tea.Program {
	return tea.NewProgram(newTUIModel(ctl), tea.WithAltScreen())
}

func tuiTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

// control runs fn off the UI goroutine; the coordinator answers through
// the event stream.
func (m tuiModel) control(fn func() error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(); err != nil {
			return controlErrorMsg{err}
		}
		return nil
	}
}

func (m tuiModel) selectSource(s capture.Source) tea.Cmd {
	return func() tea.Msg {
		if !m.ctl.SetSource(s) {
			return controlErrorMsg{fmt.Errorf("cannot switch to %s now", s)}
		}
		return nil
	}
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r", " ":
			return m, m.control(m.ctl.Toggle)
		case "m":
			return m, m.selectSource(capture.Microphone)
		case "s":
			return m, m.selectSource(capture.SystemAudio)
		}

	case tickMsg:
		m.now = time.Time(msg)
		return m, tuiTick()

	case sourceMsg:
		m.source = msg.Source
		m.avail = msg.Availability

	case recordingStartMsg:
		m.recording = true
		m.source = msg.Source
		m.startedAt = time.Now()
		m.now = m.startedAt
		m.level, m.peak = 0, 0
		m.lastErr = ""

	case recordingStopMsg:
		m.recording = false
		m.level = 0

	case audioLevelMsg:
		if m.recording {
			m.level = m.level*0.6 + msg.Level*0.4
			m.peak = max(m.peak, msg.Level)
		}

	case progressMsg:
		m.progress = msg.Text

	case transcriptionMsg:
		m.count++
		m.progress = ""
		m.lastText = msg.Text
		m.copied = msg.Copied

	case transcriptionErrorMsg:
		m.progress = ""
		m.lastErr = msg.Err.Error()

	case controlErrorMsg:
		m.lastErr = msg.Err.Error()
	}
	return m, nil
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var lines []string
	if m.recording {
		elapsed := m.now.Sub(m.startedAt).Seconds()
		lines = append(lines, recStyle.Render(fmt.Sprintf("● REC %.1fs  %s", max(elapsed, 0), m.source)))
		lines = append(lines, renderMeter(m.level))
		if elapsed > 1.0 && m.peak < 0.02 {
			lines = append(lines, warnStyle.Render("⚠ no signal"))
		}
	} else {
		lines = append(lines, idleStyle.Render("○ STANDBY"))
		lines = append(lines, renderMeter(0))
	}
	lines = append(lines, "", m.sourceLine())
	if m.progress != "" {
		lines = append(lines, "", idleStyle.Render(m.progress))
	}
	if m.lastErr != "" {
		lines = append(lines, "", warnStyle.Render("error: "+m.lastErr))
	}

	lines = append(lines, "")
	wrapWidth := max(m.width-2, 10)
	if m.lastText != "" {
		lines = append(lines, idleStyle.Render(fmt.Sprintf("Last transcription (#%d)", m.count)))
		wrapped := wrapText(m.lastText, wrapWidth)
		for i, l := range wrapped {
			l = textStyle.Render(l)
			if i == len(wrapped)-1 && m.copied {
				l += " " + copiedStyle.Render("[✓ copied]")
			}
			lines = append(lines, l)
		}
	} else {
		lines = append(lines, idleStyle.Render("No transcriptions yet"))
	}

	lines = append(lines, "",
		keyStyle.Render(hotkey.Combo)+dimStyle.Render(" or ")+keyStyle.Render("r")+dimStyle.Render(" record/stop  ")+
			keyStyle.Render("m")+dimStyle.Render(" mic  ")+
			keyStyle.Render("s")+dimStyle.Render(" system  ")+
			keyStyle.Render("q")+dimStyle.Render(" quit"),
		dimStyle.Render("microwhisper "+version),
	)

	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		PaddingLeft(1).
		Render(strings.Join(lines, "\n"))
}

func (m tuiModel) sourceLine() string {
	mic := "mic"
	if m.source == capture.Microphone {
		mic = selectedStyle.Render("[mic]")
	}
	var system string
	switch {
	case !m.avail.LoopbackAvailable:
		system = dimStyle.Render("system (no loopback)")
	case m.source == capture.SystemAudio:
		system = selectedStyle.Render("[system: " + m.avail.LoopbackName + "]")
	default:
		system = "system: " + m.avail.LoopbackName
	}
	return "source " + mic + "  " + system
}

// renderMeter draws level (0..1) as a bar; the top third turns yellow,
// then red.
func renderMeter(level float64) string {
	filled := int(min(max(level, 0), 1)*meterWidth + 0.5)
	var b strings.Builder
	for i := range meterWidth {
		if i >= filled {
			b.WriteString(dimStyle.Render("·"))
			continue
		}
		b.WriteString(meterStyles[min(i*3/meterWidth, 2)].Render("█"))
	}
	return b.String()
}

func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	var lines []string
	for len(text) > width {
		splitAt := width
		for i := width; i > 0; i-- {
			if text[i] == ' ' {
				splitAt = i
				break
			}
		}
		lines = append(lines, text[:splitAt])
		text = strings.TrimLeft(text[splitAt:], " ")
	}
	if len(text) > 0 {
		lines = append(lines, text)
	}
	return lines
}

// tuiSink forwards pipeline events into the Bubble Tea program.
type tuiSink struct {
	p *tea.Program
}

func (s tuiSink) SourceChanged(source capture.Source, avail device.Availability) {
	s.p.Send(sourceMsg{Source: source, Availability: avail})
}

func (s tuiSink) RecordingStart(source capture.Source) {
	s.p.Send(recordingStartMsg{Source: source})
}

func (s tuiSink) RecordingStop(d time.Duration) {
	s.p.Send(recordingStopMsg{Duration: d})
}

func (s tuiSink) AudioLevel(level float64) {
	s.p.Send(audioLevelMsg{Level: level})
}

func (s tuiSink) TranscriptionProgress(text string) {
	s.p.Send(progressMsg{Text: text})
}

func (s tuiSink) Transcription(text string, copied bool) {
	s.p.Send(transcriptionMsg{Text: text, Copied: copied})
}

func (s tuiSink) TranscriptionError(err error) {
	s.p.Send(transcriptionErrorMsg{Err: err})
}
